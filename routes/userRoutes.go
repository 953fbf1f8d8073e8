package routes

import (
	"github.com/gin-gonic/gin"

	"civicx-be/controllers"
)

func UserRoutes(r *gin.Engine, uc *controllers.UserController) {
	user := r.Group("/api/user")
	{
		user.GET("/leaderboard", uc.Leaderboard)
	}
}

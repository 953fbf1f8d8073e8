package routes

import (
	"github.com/gin-gonic/gin"

	"civicx-be/controllers"
	"civicx-be/middlewares"
)

func FileRoutes(r *gin.Engine, fc *controllers.FileController, jwtSecret string) {
	file := r.Group("/api/file")
	{
		file.POST("/upload", middlewares.AuthMiddleware(jwtSecret), fc.Upload)
		file.GET("/:id/view", fc.View)
		file.GET("/:id/download", middlewares.AuthMiddleware(jwtSecret), fc.Download)
	}
}

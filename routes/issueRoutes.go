package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"civicx-be/config"
	"civicx-be/controllers"
	"civicx-be/lifecycle"
	"civicx-be/middlewares"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, rdb *redis.Client, cfg config.Config) {
	authed := middlewares.AuthMiddleware(cfg.JWTSecret)

	issue := r.Group("/api/issue")
	{
		issue.POST("/create",
			authed,
			middlewares.RequireCapability(lifecycle.ActionReport),
			middlewares.IssueRateLimiter(rdb, cfg.RateLimitKey, cfg.DailyIssueCap),
			ic.Create)
		issue.GET("/list", authed, ic.List)
		issue.GET("/recent", ic.Recent)
		issue.GET("/nearby", ic.Nearby)
		issue.GET("/analytics", ic.Analytics)
		issue.GET("/mine", authed, ic.Mine)
		issue.GET("/my-votes", authed, ic.MyVotes)
		issue.POST("/suggest-category", authed, ic.SuggestCategory)
		issue.GET("/:id", authed, ic.Get)
		issue.PATCH("/:id/status",
			authed,
			middlewares.RequireCapability(lifecycle.ActionTransition),
			ic.UpdateStatus)
		issue.POST("/:id/vote", authed, ic.Vote)
		issue.POST("/:id/votes/recount",
			authed,
			middlewares.RequireCapability(lifecycle.ActionModerate),
			ic.Recount)
		issue.DELETE("/:id", authed, ic.Delete)
	}
}

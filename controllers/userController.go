package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"civicx-be/pkg/resp"
	"civicx-be/services"
)

type UserController struct {
	leaderboard *services.LeaderboardService
}

func NewUserController(leaderboard *services.LeaderboardService) *UserController {
	return &UserController{leaderboard: leaderboard}
}

// Leaderboard returns the top citizens by reporting activity.
func (uc *UserController) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := uc.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.OK(c, gin.H{"leaderboard": entries})
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Majd04/StepChallenge/config"
	"github.com/Majd04/StepChallenge/models"
	"github.com/Majd04/StepChallenge/services"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	Ranks *services.RankService
}

func NewLeaderboardController(rs *services.RankService) *LeaderboardController {
	return &LeaderboardController{Ranks: rs}
}

func periodParam(c *gin.Context) (models.Period, bool) {
	p, err := models.ParsePeriod(c.DefaultQuery("period", string(models.PeriodWeekly)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return p, true
}

// GetLeaderboard returns a one-shot ranked snapshot for ?period=&limit=.
func (lc *LeaderboardController) GetLeaderboard(c *gin.Context) {
	userID := c.GetString("userID")

	period, ok := periodParam(c)
	if !ok {
		return
	}

	limit := config.LeaderboardLimit()
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= config.LeaderboardLimit() {
			limit = n
		}
	}

	entries, err := lc.Ranks.Leaderboard(c.Request.Context(), userID, period, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"period": period, "entries": entries})
}

// GetMyRank returns the user's 1-based rank; rank 0 means "unknown", which
// is surfaced as known=false rather than first place.
func (lc *LeaderboardController) GetMyRank(c *gin.Context) {
	userID := c.GetString("userID")

	period, ok := periodParam(c)
	if !ok {
		return
	}

	rank := lc.Ranks.Rank(c.Request.Context(), userID, period)
	c.JSON(http.StatusOK, gin.H{
		"period": period,
		"rank":   rank,
		"known":  rank > 0,
	})
}

// GetStepsToRank returns how many steps are needed to strictly overtake the
// holder of ?rank=. Fewer ranked users than the target is reported as
// unattainable, not zero.
func (lc *LeaderboardController) GetStepsToRank(c *gin.Context) {
	userID := c.GetString("userID")

	period, ok := periodParam(c)
	if !ok {
		return
	}

	target, err := strconv.Atoi(c.Query("rank"))
	if err != nil || target < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rank must be a positive integer"})
		return
	}

	needed, err := lc.Ranks.StepsToRank(c.Request.Context(), userID, period, target)
	if errors.Is(err, services.ErrRankUnattainable) {
		c.JSON(http.StatusOK, gin.H{
			"period":      period,
			"target_rank": target,
			"attainable":  false,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period":       period,
		"target_rank":  target,
		"attainable":   true,
		"steps_needed": needed,
	})
}

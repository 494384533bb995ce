package controllers

import (
	"net/http"
	"time"

	"github.com/Majd04/StepChallenge/models"
	"github.com/Majd04/StepChallenge/services"

	"github.com/gin-gonic/gin"
)

// GetToday returns the view-state for the home screen: today's record
// against the daily goal.
func GetToday(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := services.FindUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	today := services.DayKey(time.Now())
	rec, err := services.GetActivityRecord(userID, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	steps := 0
	distance := 0.0
	calories := 0.0
	if rec != nil {
		steps = rec.Steps
		distance = rec.DistanceMeters
		calories = rec.CaloriesBurned
	}

	percent := 0.0
	if user.DailyStepGoal > 0 {
		percent = float64(steps) / float64(user.DailyStepGoal)
		if percent > 1 {
			percent = 1
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"date":            today,
		"steps":           steps,
		"distance_meters": distance,
		"calories_burned": calories,
		"daily_step_goal": user.DailyStepGoal,
		"percent":         percent,
		"goal_reached":    user.DailyStepGoal > 0 && steps >= user.DailyStepGoal,
	})
}

// GetHistory returns raw records for ?start=YYYY-MM-DD&end=YYYY-MM-DD.
func GetHistory(c *gin.Context) {
	userID := c.GetString("userID")

	start := c.Query("start")
	end := c.Query("end")
	if _, err := time.Parse("2006-01-02", start); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
		return
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
		return
	}

	recs, err := services.RangeActivityRecords(userID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": recs})
}

type chartDay struct {
	Date  string `json:"date"`
	Steps int    `json:"steps"`
}

// GetWeeklyChart returns seven buckets from Monday, zero-filled for days
// without records.
func GetWeeklyChart(c *gin.Context) {
	userID := c.GetString("userID")

	now := time.Now()
	weekStart := models.PeriodWeekly.WindowStart(now)

	days, total, err := chartBuckets(userID, weekStart, 7)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"week_start":  services.DayKey(weekStart),
		"days":        days,
		"total_steps": total,
	})
}

// GetMonthlyChart returns one bucket per day of the current month.
func GetMonthlyChart(c *gin.Context) {
	userID := c.GetString("userID")

	now := time.Now()
	monthStart := models.PeriodMonthly.WindowStart(now)
	// Calendar arithmetic, not hours/24: a DST month is not 24h*days long.
	daysInMonth := monthStart.AddDate(0, 1, -1).Day()

	days, total, err := chartBuckets(userID, monthStart, daysInMonth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"month_start": services.DayKey(monthStart),
		"days":        days,
		"total_steps": total,
	})
}

func chartBuckets(userID string, start time.Time, n int) ([]chartDay, int64, error) {
	end := start.AddDate(0, 0, n-1)
	recs, err := services.RangeActivityRecords(userID, services.DayKey(start), services.DayKey(end))
	if err != nil {
		return nil, 0, err
	}

	idx := map[string]int{}
	for _, r := range recs {
		idx[r.Date] = r.Steps
	}

	days := make([]chartDay, 0, n)
	var total int64
	for d := 0; d < n; d++ {
		key := services.DayKey(start.AddDate(0, 0, d))
		steps := idx[key]
		total += int64(steps)
		days = append(days, chartDay{Date: key, Steps: steps})
	}
	return days, total, nil
}

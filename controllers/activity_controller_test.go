package controllers

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/Majd04/StepChallenge/config"
	"github.com/Majd04/StepChallenge/models"
	"github.com/Majd04/StepChallenge/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupControllerDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	assert.NoError(t, config.Migrate(db))
	config.DB = db
}

func activityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "ayla42")
		c.Next()
	})
	r.GET("/activity/today", GetToday)
	r.GET("/activity/history", GetHistory)
	r.GET("/activity/chart/weekly", GetWeeklyChart)
	r.GET("/activity/chart/monthly", GetMonthlyChart)
	return r
}

func TestGetTodayViewState(t *testing.T) {
	setupControllerDB(t)
	assert.NoError(t, config.DB.Create(&models.User{
		UserID: "ayla42", Email: "ayla@example.com", DisplayName: "Ayla", DailyStepGoal: 10000,
	}).Error)

	today := services.DayKey(time.Now())
	assert.NoError(t, services.UpsertActivityRecord("ayla42", today, 4500, 3200, 180, false))

	code, body := doJSON(t, activityRouter(), "/activity/today")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, today, body["date"])
	assert.EqualValues(t, 4500, body["steps"])
	assert.EqualValues(t, 10000, body["daily_step_goal"])
	assert.InDelta(t, 0.45, body["percent"].(float64), 0.001)
	assert.Equal(t, false, body["goal_reached"])
}

func TestGetTodayNoRecordYet(t *testing.T) {
	setupControllerDB(t)
	assert.NoError(t, config.DB.Create(&models.User{
		UserID: "ayla42", Email: "ayla@example.com", DailyStepGoal: 10000,
	}).Error)

	code, body := doJSON(t, activityRouter(), "/activity/today")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["steps"])
	assert.EqualValues(t, 0, body["percent"])
}

func TestGetHistoryValidatesDates(t *testing.T) {
	setupControllerDB(t)
	r := activityRouter()

	code, _ := doJSON(t, r, "/activity/history?start=bad&end=2026-03-08")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, r, "/activity/history?start=2026-03-02&end=08-03-2026")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := doJSON(t, r, "/activity/history?start=2026-03-02&end=2026-03-08")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["records"])
}

func TestMonthlyChartCoversWholeMonth(t *testing.T) {
	setupControllerDB(t)

	code, body := doJSON(t, activityRouter(), "/activity/chart/monthly")
	assert.Equal(t, http.StatusOK, code)

	// Day 0 of next month normalizes to this month's last day; must hold in
	// DST months too, where hours/24 undercounts.
	now := time.Now()
	want := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.Local).Day()
	days := body["days"].([]any)
	assert.Len(t, days, want)

	first := days[0].(map[string]any)
	assert.Equal(t, services.DayKey(models.PeriodMonthly.WindowStart(now)), first["date"])
}

func TestWeeklyChartZeroFillsSevenDays(t *testing.T) {
	setupControllerDB(t)

	now := time.Now()
	weekStart := models.PeriodWeekly.WindowStart(now)
	assert.NoError(t, services.UpsertActivityRecord("ayla42", services.DayKey(weekStart), 1000, 0, 0, false))

	code, body := doJSON(t, activityRouter(), "/activity/chart/weekly")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, services.DayKey(weekStart), body["week_start"])
	assert.EqualValues(t, 1000, body["total_steps"])

	days := body["days"].([]any)
	assert.Len(t, days, 7)
	first := days[0].(map[string]any)
	assert.EqualValues(t, 1000, first["steps"])
	last := days[6].(map[string]any)
	assert.EqualValues(t, 0, last["steps"])
}

package routes

import (
	"net/http"

	"github.com/Majd04/StepChallenge/controllers"
	"github.com/Majd04/StepChallenge/middlewares"
	"github.com/Majd04/StepChallenge/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(hub *services.RealtimeHub, push *services.PushService, ranks *services.RankService) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/verify-mfa", controllers.VerifyMFA)
		auth.POST("/forgot-password", controllers.ForgotPassword)
		auth.POST("/reset-password", controllers.ResetPassword)
	}

	// Protected user routes
	user := r.Group("/user")
	user.Use(middlewares.AuthMiddleware())
	{
		user.GET("/profile", controllers.GetProfile)
		user.PUT("/profile", controllers.UpdateProfile)
		user.DELETE("/profile", controllers.DeleteAccount)
		user.GET("/notifications", controllers.ListNotifications)
		user.POST("/notifications/toggle", controllers.ToggleNotifications)

		dc := controllers.NewDeviceController(push)
		user.POST("/devices", dc.Register)
	}

	activity := r.Group("/activity")
	activity.Use(middlewares.AuthMiddleware())
	{
		activity.GET("/today", controllers.GetToday)
		activity.GET("/history", controllers.GetHistory)
		activity.GET("/chart/weekly", controllers.GetWeeklyChart)
		activity.GET("/chart/monthly", controllers.GetMonthlyChart)
	}

	lc := controllers.NewLeaderboardController(ranks)
	leaderboard := r.Group("/leaderboard")
	leaderboard.Use(middlewares.AuthMiddleware())
	{
		leaderboard.GET("", lc.GetLeaderboard)
		leaderboard.GET("/rank", lc.GetMyRank)
		leaderboard.GET("/steps-to-rank", lc.GetStepsToRank)
	}

	rc := controllers.NewRealtimeController(hub)
	ws := r.Group("/ws")
	ws.Use(middlewares.AuthMiddleware())
	{
		ws.GET("/feed", rc.FeedWS)
	}

	return r
}

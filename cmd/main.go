package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Majd04/StepChallenge/config"
	"github.com/Majd04/StepChallenge/routes"
	"github.com/Majd04/StepChallenge/services"
	"github.com/Majd04/StepChallenge/utils"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	config.InitDB()
	utils.InitS3()
	utils.InitSES()

	hub := services.NewRealtimeHub()
	push, err := services.NewPushService(config.DB)
	if err != nil {
		log.Fatalw("push service init failed", "err", err)
	}

	health := services.NewHealthService()
	cloud := services.NewCloudService()
	ranks := services.NewRankService(cloud, log)
	notifier := services.NewNotifier(config.DB, hub, push, log)
	syncer := services.NewSyncService(config.DB, health, cloud, ranks, notifier, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go syncer.Run(ctx)
	go services.RunLeaderboardFeed(ctx, cloud, hub, config.LeaderboardLimit(), log)

	srv := &http.Server{
		Addr:    ":" + config.Getenv("PORT", "8080"),
		Handler: routes.SetupRouter(hub, push, ranks),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalw("server error", "err", err)
	}
}

// Package main provides the admin API server entry point for the reward
// distribution pipeline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xsequence/sidekick-sub000/internal/api"
	"github.com/0xsequence/sidekick-sub000/internal/config"
	"github.com/0xsequence/sidekick-sub000/internal/job"
	"github.com/0xsequence/sidekick-sub000/internal/logging"
	"github.com/0xsequence/sidekick-sub000/internal/metrics"
	"github.com/0xsequence/sidekick-sub000/internal/service"
	"github.com/0xsequence/sidekick-sub000/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.InitGlobalLogger(logging.LevelInfo, logging.FormatText)
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.Info("Reward pipeline admin API starting")

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	queue := job.NewQueue("rewards", redis, job.Config{
		Workers:         cfg.Queue.Workers,
		PollInterval:    cfg.Queue.PollInterval,
		StallInterval:   cfg.Queue.StallInterval,
		MaxStalledCount: cfg.Queue.MaxStalledCount,
		DefaultAttempts: cfg.Queue.Attempts,
		DefaultBackoff:  cfg.Queue.BackoffDelay,
	})
	scheduleIndex := storage.NewScheduleIndex(redis)
	schedules := service.NewScheduleService(queue, scheduleIndex)

	m := metrics.New()

	server := api.NewServer(&api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, schedules, m)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down admin API")
	if err := server.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
	logger.Info("Admin API stopped")
}

// Package main provides the reward worker entry point. It runs the broker
// loop and the reward distribution handler; any number of worker processes
// may share the same queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xsequence/sidekick-sub000/internal/adapter"
	"github.com/0xsequence/sidekick-sub000/internal/circuitbreaker"
	"github.com/0xsequence/sidekick-sub000/internal/config"
	"github.com/0xsequence/sidekick-sub000/internal/job"
	"github.com/0xsequence/sidekick-sub000/internal/logging"
	"github.com/0xsequence/sidekick-sub000/internal/metrics"
	"github.com/0xsequence/sidekick-sub000/internal/service"
	"github.com/0xsequence/sidekick-sub000/internal/storage"
	"github.com/0xsequence/sidekick-sub000/internal/worker"
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
	logger.Info("Reward worker starting")

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	// The audit store is optional: without Postgres the tracker degrades
	// to a logged no-op and the pipeline keeps distributing.
	var txStore service.TransactionStore
	if cfg.Database.Postgres.Enabled() {
		postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer postgres.Close()
		txStore = storage.NewTransactionRepository(postgres)
		logger.Info("Transaction audit store enabled")
	} else {
		logger.Warn("Postgres not configured, transaction auditing disabled")
	}

	m := metrics.New()

	queue := job.NewQueue("rewards", redis, job.Config{
		Workers:         cfg.Queue.Workers,
		PollInterval:    cfg.Queue.PollInterval,
		StallInterval:   cfg.Queue.StallInterval,
		MaxStalledCount: cfg.Queue.MaxStalledCount,
		DefaultAttempts: cfg.Queue.Attempts,
		DefaultBackoff:  cfg.Queue.BackoffDelay,
		OnStalled: func(jobID string) {
			m.JobsStalled.Inc()
			logger.WithField("jobId", jobID).Warn("Job stalled")
		},
		OnFailed: func(j *job.Job, err error) {
			logger.WithFields(map[string]interface{}{
				"jobId":        j.ID,
				"failedReason": j.FailedReason,
			}).Error("Job moved to failed")
		},
	})

	breakers := circuitbreaker.NewRegistry()
	signers := adapter.NewEthSignerFactory(cfg.Chains, breakers)
	defer signers.Close()

	tracker := service.NewTransactionLifecycle(txStore)
	processor := worker.NewRewardProcessor(signers, tracker, m)
	processor.Register(queue)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- queue.Run(ctx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down reward worker")
	if err := queue.Close(); err != nil {
		logger.WithError(err).Error("Queue close failed")
	}
	cancel()
	<-done
	logger.Info("Reward worker stopped")
}

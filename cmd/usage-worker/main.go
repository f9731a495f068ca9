// Package main 用量流水消费者入口（usage-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"solidwriter-api/internal/config"
	"solidwriter-api/internal/infrastructure/messaging"
	"solidwriter-api/internal/wire"
	"solidwriter-api/pkg/logger"
	"solidwriter-api/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "usage-worker",
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	deps, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	workers := cfg.UsageStream.Workers
	if workers <= 0 {
		workers = 1
	}

	threshold := cfg.UsageStream.DLQAlertThreshold
	if threshold <= 0 {
		threshold = 100
	}

	consumers := make([]*messaging.Consumer, 0, workers)
	for i := 0; i < workers; i++ {
		c := messaging.NewConsumer(deps.RedisClient.Redis(), messaging.ConsumerConfig{
			Stream:       messaging.StreamGenerationUsage,
			Group:        messaging.ConsumerGroupUsageRecorder,
			ConsumerName: fmt.Sprintf("%s-%d", hostnameConsumerName(), i),
			BlockTimeout: cfg.UsageStream.BlockTimeout,
			RetryLimit:   cfg.UsageStream.RetryLimit,
			Backoff: messaging.BackoffConfig{
				Initial:    cfg.UsageStream.RetryBackoff.Initial,
				Max:        cfg.UsageStream.RetryBackoff.Max,
				Multiplier: cfg.UsageStream.RetryBackoff.Multiplier,
			},
			Handler: deps.Recorder.Record,
		})
		consumers = append(consumers, c)
	}

	log := logger.FromContext(ctx)
	log.Info("usage-worker started", "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		g.Go(func() error { return c.Run(gctx) })
	}
	g.Go(func() error {
		consumers[0].MonitorDLQ(gctx, threshold)
		return nil
	})

	<-gctx.Done()
	log.Info("usage-worker shutting down")
	for _, c := range consumers {
		c.Stop()
	}
	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "consumer exited with error", err)
	}
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

var once = flag.Bool("once", false, "run a single maintenance cycle and exit")

func main() {
	flag.Parse()
	bootstrap.Main("cron-worker", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg := rt.Config

	lock, err := cron.NewRedisLock(rt.Redis, cfg.App.Env, instance.GetID(), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	outboxRepo := outbox.NewRepository(rt.DB.DB())
	dlqRepo := outbox.NewDLQRepository(rt.DB.DB())

	jobs := cron.NewRegistry()
	for _, params := range []cron.RetentionJobParams{
		{Name: "outbox-retention", Purge: outboxRepo.DeletePublishedBefore, Retention: cfg.Cron.OutboxRetention},
		{Name: "outbox-dlq-retention", Purge: dlqRepo.DeleteFailedBefore, Retention: cfg.Cron.DLQRetention},
	} {
		params.Logger = rt.Logger
		params.DB = rt.DB
		job, err := cron.NewRetentionJob(params)
		if err == nil {
			err = jobs.Register(job)
		}
		if err != nil {
			return fmt.Errorf("register %s: %w", params.Name, err)
		}
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	if *once {
		return service.RunOnce(ctx)
	}
	rt.Logger.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/conduit-storefront/internal/bootstrap"
	"github.com/angelmondragon/conduit-storefront/internal/cron"
	"github.com/angelmondragon/conduit-storefront/pkg/metrics"
	"github.com/angelmondragon/conduit-storefront/pkg/redis"
)

func main() {
	p := bootstrap.Start("cron-worker")
	cfg, logg := p.Config, p.Logger
	ctx, stop := p.RunContext()
	defer stop()

	stores, err := p.OpenStores(ctx)
	p.Must(ctx, "datastore", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	p.Must(ctx, "redis", err)
	p.Defer("redis", redisClient.Close)

	maint := cfg.Maintenance
	// the lock outlives a cycle but frees itself before the next tick
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("maintenance:"+cfg.App.Env), maint.Interval*9/10)
	p.Must(ctx, "maintenance lock", err)
	outboxJob, err := cron.NewOutboxRetentionJob(stores.Outbox, maint.OutboxRetention)
	p.Must(ctx, "outbox retention job", err)
	cartJob, err := cron.NewIdleCartJob(stores.Idle, maint.IdleCartRetention)
	p.Must(ctx, "idle cart job", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Lock:     lock,
		Jobs:     []cron.Job{outboxJob, cartJob},
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: maint.Interval,
	})
	p.Must(ctx, "cron service", err)

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		p.Exit(ctx, err)
		return
	}
	p.Exit(ctx, nil)
}

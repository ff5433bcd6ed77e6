package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/conduit-storefront/internal/analytics"
	"github.com/angelmondragon/conduit-storefront/internal/bootstrap"
	"github.com/angelmondragon/conduit-storefront/pkg/bigquery"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox/idempotency"
	"github.com/angelmondragon/conduit-storefront/pkg/pubsub"
	"github.com/angelmondragon/conduit-storefront/pkg/redis"
)

// analytics-worker drains the analytics subscription into BigQuery. Redis
// claims keep a redelivered message from being inserted twice.
func main() {
	p := bootstrap.Start("analytics-worker")
	cfg, logg := p.Config, p.Logger
	ctx, stop := p.RunContext()
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	p.Must(ctx, "redis", err)
	p.Defer("redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	p.Must(ctx, "pubsub", err)
	p.Defer("pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	p.Must(ctx, "bigquery", err)
	p.Defer("bigquery", bqClient.Close)

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		p.Must(ctx, "analytics subscription", errors.New("subscription not configured"))
	}

	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	p.Must(ctx, "idempotency manager", err)
	service, err := analytics.NewService(bqClient, claims, logg)
	p.Must(ctx, "analytics service", err)

	logg.Info(ctx, "analytics worker ready")
	if err := service.Run(ctx, subscription); !errors.Is(err, context.Canceled) {
		p.Exit(ctx, err)
		return
	}
	p.Exit(ctx, nil)
}

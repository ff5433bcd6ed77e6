package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/conduit-storefront/internal/bootstrap"
	"github.com/angelmondragon/conduit-storefront/pkg/metrics"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox/registry"
	"github.com/angelmondragon/conduit-storefront/pkg/pubsub"
)

func main() {
	p := bootstrap.Start("outbox-publisher")
	cfg, logg := p.Config, p.Logger
	ctx, stop := p.RunContext()
	defer stop()

	stores, err := p.OpenStores(ctx)
	p.Must(ctx, "datastore", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	p.Must(ctx, "pubsub", err)
	p.Defer("pubsub", pubsubClient.Close)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	p.Must(ctx, "event registry", err)

	service, err := NewService(ServiceParams{
		Config:    cfg,
		Logger:    logg,
		Tx:        stores.Tx,
		Datastore: stores.Pinger,
		PubSub:    &pubsubHandles{Ping: pubsubClient.Ping, Publisher: pubsubClient.Publisher},
		Store:     stores.Outbox,
		Registry:  events,
		Metrics:   metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	p.Must(ctx, "outbox publisher", err)

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		p.Exit(ctx, err)
		return
	}
	p.Exit(ctx, nil)
}

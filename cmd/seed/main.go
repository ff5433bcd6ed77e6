package main

import (
	"flag"

	"github.com/angelmondragon/conduit-storefront/internal/bootstrap"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/pkg/env"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
)

// seed loads the demo catalog, optionally a distributor account and a
// sample quote request. Running it twice changes nothing.
func main() {
	var opts seedOptions
	flag.StringVar(&opts.distributorEmail, "distributor-email", env.Get("STOREFRONT_SEED_DISTRIBUTOR_EMAIL", ""), "create a distributor account with this email")
	flag.StringVar(&opts.distributorPassword, "distributor-password", env.Get("STOREFRONT_SEED_DISTRIBUTOR_PASSWORD", ""), "password for the distributor account")
	flag.BoolVar(&opts.sampleQuote, "sample-quote", true, "submit a sample quote request when the queue is empty")
	flag.Parse()

	p := bootstrap.Start("seed")
	logg := p.Logger
	ctx, stop := p.RunContext()
	defer stop()

	stores, err := p.OpenStores(ctx)
	p.Must(ctx, "datastore", err)

	s := &seeder{
		tx:       stores.Tx,
		catalog:  stores.Catalog,
		users:    stores.Users,
		quoteDB:  stores.Quotes,
		password: p.Config.Password,
		logg:     logg,
	}
	s.quotes, err = quotes.NewService(stores.Quotes, stores.Tx, outbox.NewService(stores.Outbox, logg), nil, logg)
	p.Must(ctx, "quote service", err)

	report, err := s.run(ctx, opts)
	if err == nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"categories":   report.categories,
			"products":     report.products,
			"distributor":  report.distributor,
			"quoteRequest": report.quote,
		}), "seed complete")
	}
	p.Exit(ctx, err)
}

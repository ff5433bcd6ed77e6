package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/conduit-storefront/internal/cart"
	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/internal/products"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/internal/users"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/migrate"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
)

// OutboxStore is the outbox surface of both repositories, publisher and
// retention together.
type OutboxStore interface {
	outbox.Store
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Stores bundles the repositories for the configured datastore. The SQL
// drivers share the GORM repositories; mongo swaps in the document ones.
type Stores struct {
	Driver   string
	Tx       db.TxRunner
	Pinger   db.Pinger
	Users    users.Repository
	Products products.Repository
	Catalog  products.Writer
	Carts    cart.Repository
	Idle     cart.IdlePruner
	Orders   orders.Repository
	Quotes   quotes.Repository
	Outbox   OutboxStore
}

// OpenStores connects to the configured datastore and registers its
// teardown with p. SQL stores are auto-migrated in dev; mongo indexes are
// always ensured.
func (p *Process) OpenStores(ctx context.Context) (*Stores, error) {
	if p.Config.DB.NormalizedDriver() == config.DriverMongo {
		return p.openMongo(ctx)
	}

	client, err := db.New(ctx, p.Config.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	p.Defer("database", client.Close)
	if err := migrate.MaybeRunDev(ctx, p.Config, p.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}

	conn := client.DB()
	return &Stores{
		Driver:   client.Driver(),
		Tx:       client,
		Pinger:   client,
		Users:    users.NewRepository(conn),
		Products: products.NewRepository(conn),
		Catalog:  products.NewWriter(conn),
		Carts:    cart.NewRepository(conn),
		Idle:     cart.NewIdlePruner(conn),
		Orders:   orders.NewRepository(conn),
		Quotes:   quotes.NewRepository(conn),
		Outbox:   outbox.NewRepository(conn),
	}, nil
}

func (p *Process) openMongo(ctx context.Context) (*Stores, error) {
	client, err := mongopkg.New(ctx, p.Config.Mongo, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap mongo: %w", err)
	}
	p.Defer("mongo", func() error { return client.Close(context.Background()) })
	if err := client.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure mongo indexes: %w", err)
	}

	return &Stores{
		Driver:   config.DriverMongo,
		Tx:       client,
		Pinger:   client,
		Users:    users.NewMongoRepository(client),
		Products: products.NewMongoRepository(client),
		Catalog:  products.NewMongoWriter(client),
		Carts:    cart.NewMongoRepository(client),
		Idle:     cart.NewMongoIdlePruner(client),
		Orders:   orders.NewMongoRepository(client),
		Quotes:   quotes.NewMongoRepository(client),
		Outbox:   outbox.NewMongoRepository(client),
	}, nil
}

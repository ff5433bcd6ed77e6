package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

// Collection names shared by the mongo repositories.
const (
	CollectionCategories     = "categories"
	CollectionProducts       = "products"
	CollectionCartLines      = "cart_lines"
	CollectionUsers          = "users"
	CollectionOrders         = "orders"
	CollectionOrderLines     = "order_lines"
	CollectionQuoteRequests  = "quote_requests"
	CollectionDeclinedQuotes = "declined_quotes"
	CollectionOutboxEvents   = "outbox_events"
	CollectionOutboxDLQ      = "outbox_dlq"
)

// Client wraps the driver client and the storefront database handle.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB with the uuid and decimal codecs registered.
// Multi-document transactions require a replica set or sharded cluster.
func New(ctx context.Context, cfg config.MongoConfig, logg *logger.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetRegistry(NewRegistry())
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	c := &Client{client: client, db: client.Database(cfg.Database)}
	if err := c.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "database", cfg.Database), "mongo connection established")
	}
	return c, nil
}

// Database returns the storefront database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Collection returns a handle to the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Ping verifies the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// InTx runs fn inside a session transaction. Operations issued with the
// callback context are part of the transaction; a nested call joins the outer one.
func (c *Client) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, fn(txCtx)
	})
	return err
}

type index struct {
	collection string
	name       string
	keys       bson.D
	unique     bool
}

var indexes = []index{
	{CollectionProducts, "ux_products_sku", bson.D{{Key: "sku", Value: 1}}, true},
	{CollectionProducts, "ix_products_category", bson.D{{Key: "category_id", Value: 1}, {Key: "name", Value: 1}}, false},
	{CollectionCartLines, "ux_cart_lines_owner_product", bson.D{{Key: "owner_id", Value: 1}, {Key: "product_id", Value: 1}}, true},
	{CollectionUsers, "ux_users_email", bson.D{{Key: "email", Value: 1}}, true},
	{CollectionOrders, "ux_orders_order_number", bson.D{{Key: "order_number", Value: 1}}, true},
	{CollectionOrders, "ix_orders_user_created", bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, false},
	{CollectionOrderLines, "ix_order_lines_order", bson.D{{Key: "order_id", Value: 1}}, false},
	{CollectionQuoteRequests, "ux_quote_requests_request_number", bson.D{{Key: "request_number", Value: 1}}, true},
	{CollectionDeclinedQuotes, "ux_declined_quotes_quote_request", bson.D{{Key: "quote_request_id", Value: 1}}, true},
	{CollectionOutboxEvents, "ix_outbox_events_unpublished", bson.D{{Key: "published_at", Value: 1}, {Key: "created_at", Value: 1}}, false},
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	for _, idx := range indexes {
		model := mongo.IndexModel{
			Keys:    idx.keys,
			Options: options.Index().SetName(idx.name).SetUnique(idx.unique),
		}
		if _, err := c.Collection(idx.collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index %s.%s: %w", idx.collection, idx.name, err)
		}
	}
	return nil
}

// Package db owns the SQL connection (Postgres in production, SQLite for
// local runs and tests) and the transaction plumbing repositories share.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

type Client struct {
	conn   *gorm.DB
	driver string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// TxRunner runs fn inside a transaction carried on the context it passes
// to fn. Repositories resolving their handle with Conn join it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var dialectors = map[string]func(dsn string) gorm.Dialector{
	config.DriverPostgres: func(dsn string) gorm.Dialector {
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	},
	config.DriverSQLite: sqlite.Open,
}

func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	driver := cfg.NormalizedDriver()
	dial, ok := dialectors[driver]
	if !ok {
		return nil, fmt.Errorf("db driver %q is not a SQL driver", cfg.Driver)
	}

	level := gormlogger.Silent
	if cfg.LogQueries {
		level = gormlogger.Info
	}
	conn, err := open(dial(cfg.DSN), level)
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	tune(sqlDB, cfg)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", driver), "database connection established")
	}
	return &Client{conn: conn, driver: driver}, nil
}

// Open returns a GORM handle with statement logging off. Tests use it with
// an in-memory sqlite dialector.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return open(dialector, gormlogger.Silent)
}

func open(dialector gorm.Dialector, level gormlogger.LogLevel) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}
	return conn, nil
}

// tune applies only the pool limits that are set; zero keeps database/sql's
// default.
func tune(sqlDB *sql.DB, cfg config.DBConfig) {
	if n := cfg.MaxOpenConns; n > 0 {
		sqlDB.SetMaxOpenConns(n)
	}
	if n := cfg.MaxIdleConns; n > 0 {
		sqlDB.SetMaxIdleConns(n)
	}
	if d := cfg.ConnMaxLifetime; d > 0 {
		sqlDB.SetConnMaxLifetime(d)
	}
	if d := cfg.ConnMaxIdleTime; d > 0 {
		sqlDB.SetConnMaxIdleTime(d)
	}
}

// NewFromConn wraps an already opened handle, inferring the driver from
// its dialector.
func NewFromConn(conn *gorm.DB) *Client {
	c := &Client{conn: conn, driver: config.DriverPostgres}
	if conn != nil && conn.Dialector != nil && conn.Dialector.Name() == "sqlite" {
		c.driver = config.DriverSQLite
	}
	return c
}

func (c *Client) DB() *gorm.DB { return c.conn }
func (c *Client) Driver() string { return c.driver }

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Exec and Raw run on the ambient transaction when ctx carries one.
func (c *Client) Exec(ctx context.Context, query string, args ...any) *gorm.DB {
	return Conn(ctx, c.conn).Exec(query, args...)
}

func (c *Client) Raw(ctx context.Context, query string, args ...any) *gorm.DB {
	return Conn(ctx, c.conn).Raw(query, args...)
}

// WithTx commits when fn returns nil and rolls back otherwise, including on
// panic. Nested calls reuse the transaction already on ctx.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(tx)
	}
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	committed = true
	return nil
}

func (c *Client) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(ContextWithTx(ctx, tx))
	})
}

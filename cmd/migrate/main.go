package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/conduit-storefront/internal/bootstrap"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/migrate"
	mongopkg "github.com/angelmondragon/conduit-storefront/pkg/mongo"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory (create and validate only)")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate work on files only
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(os.DirFS(*dir), "."); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	p := bootstrap.Start("migrate")
	ctx, stop := p.RunContext()
	defer stop()
	ctx = p.Logger.WithField(ctx, "cmd", *cmd)

	driver := p.Config.DB.NormalizedDriver()
	if driver != config.DriverPostgres && *cmd != "up" {
		fail("-cmd=%s is not supported for %s", *cmd, driver)
	}

	switch driver {
	case config.DriverMongo:
		client, err := mongopkg.New(ctx, p.Config.Mongo, p.Logger)
		p.Must(ctx, "mongo", err)
		p.Defer("mongo", func() error { return client.Close(ctx) })
		p.Must(ctx, "mongo indexes", client.EnsureIndexes(ctx))
		p.Logger.Info(ctx, "mongo indexes ensured")

	case config.DriverSQLite:
		client, err := db.New(ctx, p.Config.DB, p.Logger)
		p.Must(ctx, "database", err)
		p.Defer("database", client.Close)
		p.Must(ctx, "sqlite schema", db.AutoMigrate(ctx, client.DB()))
		p.Logger.Info(ctx, "sqlite schema migrated")

	default:
		client, err := db.New(ctx, p.Config.DB, p.Logger)
		p.Must(ctx, "database", err)
		p.Defer("database", client.Close)
		sqlDB, err := client.DB().DB()
		p.Must(ctx, "sql database", err)
		p.Must(ctx, "goose "+*cmd, migrate.Run(ctx, sqlDB, os.Stdout, *cmd, *version))
	}
	p.Exit(ctx, nil)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

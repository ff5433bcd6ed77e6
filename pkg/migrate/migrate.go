// Package migrate ships the Postgres schema as embedded goose migrations.
// SQLite builds its schema from the models and Mongo only needs indexes,
// so neither goes through goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `cmd/migrate -cmd=create` writes new files.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS

// Run executes up, down, status or version against db. version needs
// target as YYYYMMDDHHMMSS and moves up or down to it. Progress goes to out.
func Run(ctx context.Context, db *sql.DB, out io.Writer, command, target string) error {
	if db == nil {
		return errors.New("db is required")
	}
	sub, err := fs.Sub(Migrations, embeddedDir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		report(out, results...)
		return wrap("up", err)
	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			report(out, result)
		}
		return wrap("down", err)
	case "status":
		return status(ctx, provider, out)
	case "version":
		return migrateTo(ctx, provider, out, target)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

func migrateTo(ctx context.Context, provider *goose.Provider, out io.Writer, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || len(target) != len(versionLayout) {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil
	case current < version:
		results, err = provider.UpTo(ctx, version)
	default:
		results, err = provider.DownTo(ctx, version)
	}
	report(out, results...)
	return wrap(fmt.Sprintf("to %d", version), err)
}

func status(ctx context.Context, provider *goose.Provider, out io.Writer) error {
	rows, err := provider.Status(ctx)
	if err != nil {
		return wrap("status", err)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, row := range rows {
		applied := "-"
		if !row.AppliedAt.IsZero() {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.Source.Version, row.State, applied, row.Source.Path)
	}
	return w.Flush()
}

func report(out io.Writer, results ...*goose.MigrationResult) {
	for _, r := range results {
		fmt.Fprintf(out, "%-4s %s (%s)\n", r.Direction, r.Source.Path, r.Duration.Round(time.Millisecond))
	}
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}

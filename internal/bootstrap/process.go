// Package bootstrap is the startup path shared by the binaries under cmd/:
// environment and config loading, the process logger, datastore selection
// and ordered teardown.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

type Process struct {
	Name   string
	Config *config.Config
	Logger *logger.Logger

	closers []namedCloser
}

type namedCloser struct {
	name string
	fn   func() error
}

// Start loads .env when present, then the config, and rebuilds the logger
// at the configured level. Failures are fatal.
func Start(name string) *Process {
	p := &Process{Name: name, Logger: logger.New(logger.Options{ServiceName: name})}
	if err := godotenv.Load(); err != nil {
		p.Logger.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	p.Must(context.Background(), "config", err)
	cfg.Service.Kind = name

	p.Config = cfg
	p.Logger = logger.New(logger.Options{
		ServiceName: name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return p
}

// Defer registers fn to run on Close. Closers run last-in first-out.
func (p *Process) Defer(name string, fn func() error) {
	p.closers = append(p.closers, namedCloser{name: name, fn: fn})
}

func (p *Process) Close() error {
	var err error
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if cerr := c.fn(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", c.name, cerr))
		}
	}
	p.closers = nil
	return err
}

// Must exits the process when err is set, closing what was opened so far.
func (p *Process) Must(ctx context.Context, resource string, err error) {
	if err == nil {
		return
	}
	p.Logger.Error(ctx, "resource not working: "+resource, err)
	if cerr := p.Close(); cerr != nil {
		p.Logger.Error(ctx, "teardown after failed start", cerr)
	}
	os.Exit(1)
}

// RunContext is cancelled on SIGINT or SIGTERM and carries the process
// log fields.
func (p *Process) RunContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = p.Logger.WithFields(ctx, map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Config.Service.Kind,
		"driver":      p.Config.DB.NormalizedDriver(),
	})
	return ctx, stop
}

// Exit closes everything and exits non-zero when runErr or teardown failed.
func (p *Process) Exit(ctx context.Context, runErr error) {
	if runErr != nil {
		p.Logger.Error(ctx, p.Name+" stopped unexpectedly", runErr)
	}
	closeErr := p.Close()
	if closeErr != nil {
		p.Logger.Error(ctx, "teardown failed", closeErr)
	}
	if runErr != nil || closeErr != nil {
		os.Exit(1)
	}
	p.Logger.Info(ctx, p.Name+" shut down gracefully")
}

// Package terminal is the shared plumbing of the shopper and distributor
// command line clients.
package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/angelmondragon/conduit-storefront/internal/auth"
	"github.com/angelmondragon/conduit-storefront/pkg/apiclient"
	"github.com/angelmondragon/conduit-storefront/pkg/clientstate"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/env"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

// Env is what every command receives.
type Env struct {
	Config *config.ClientConfig
	State  *clientstate.Store
	API    *apiclient.Client
	Logger *logger.Logger
	Out    io.Writer
}

// Open loads .env, the client config and the state file, and builds an API
// client carrying the stored session.
func Open(service string, out io.Writer) (*Env, error) {
	_ = godotenv.Load()

	logg := logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(env.Get("STOREFRONT_LOG_LEVEL", "warn")),
		Output:      os.Stderr,
	})

	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	state, err := clientstate.Open(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	api, err := apiclient.NewClient(cfg.APIBaseURL, apiclient.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, err
	}
	return &Env{
		Config: cfg,
		State:  state,
		API:    api.WithSession(state.Session()),
		Logger: logg,
		Out:    out,
	}, nil
}

// Refresh rotates the stored tokens and rebuilds the API client with them.
func (e *Env) Refresh(ctx context.Context) error {
	resp, err := e.API.Refresh(ctx)
	if err != nil {
		return err
	}
	session := apiclient.SessionFrom(resp)
	if err := e.State.SaveSession(session); err != nil {
		return err
	}
	e.API = e.API.WithSession(session)
	return nil
}

// SignIn stores the session from a token response and switches the API
// client over to it.
func (e *Env) SignIn(resp *auth.TokenResponse) error {
	session := apiclient.SessionFrom(resp)
	if err := e.State.SaveSession(session); err != nil {
		return err
	}
	e.API = e.API.WithSession(session)
	e.Printf("signed in as %s\n", session.UserID)
	return nil
}

// SignOut revokes the session server side when there is one, then forgets it
// locally even if the server call failed.
func (e *Env) SignOut(ctx context.Context) error {
	if e.API.Session().Authenticated() {
		if err := e.API.Logout(ctx); err != nil {
			e.Logger.Warn(e.Logger.WithField(ctx, "error", err.Error()), "server logout failed")
		}
	}
	if err := e.State.ClearSession(); err != nil {
		return err
	}
	e.API = e.API.WithSession(clientstate.Session{})
	e.Printf("signed out\n")
	return nil
}

// Printf writes to Out.
func (e *Env) Printf(format string, args ...any) {
	fmt.Fprintf(e.Out, format, args...)
}

var printer = message.NewPrinter(language.AmericanEnglish)

// Money renders an amount in dollars with thousands separators.
func Money(amount decimal.Decimal) string {
	value, _ := amount.Round(2).Float64()
	return printer.Sprintf("$%v", number.Decimal(value, number.Scale(2)))
}

// Table writes header and rows as aligned columns.
func Table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

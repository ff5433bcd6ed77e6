package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/conduit-storefront/internal/terminal"
)

const usage = `usage: distributor <command> [flags] [args]

overview:  summary [-q TERM]
orders:    orders [-status S] [-q TERM] | order ID | transition ID STATUS
quotes:    quotes [-status S] [-q TERM] | quote ID | price ID AMOUNT | accept ID
           decline ID [-reason R] | declined [-q TERM] | declined-quote ID
account:   login -email E -password P | logout | refresh
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := terminal.Open("distributor", os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "distributor:", err)
		os.Exit(1)
	}

	if err := newDistributor(e).run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "distributor:", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

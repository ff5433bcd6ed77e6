package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/conduit-storefront/internal/terminal"
)

const usage = `usage: shopper <command> [flags] [args]

catalog:   categories | products [-featured] [-category ID] | product ID
cart:      cart | add ID [QTY] | set ID QTY | remove ID | clear
checkout:  checkout -name N -email E -phone P -street S -city C -state ST -zip Z [-notes T]
quotes:    quote -name N -email E -phone P -items ID:QTY[,ID:QTY] [-company C] [-message M] | quotes
account:   register -email E -password P | login -email E -password P | logout | refresh
           magic-link -email E | magic-complete -email E -token T | orders | cancel ID
settings:  theme [light|dark] | whoami
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := terminal.Open("shopper", os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shopper:", err)
		os.Exit(1)
	}

	if err := newShopper(e).run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "shopper:", err)
		if err == errUsage {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

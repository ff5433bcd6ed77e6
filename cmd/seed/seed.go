package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/conduit-storefront/internal/products"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/internal/users"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/security"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

type seeder struct {
	tx       db.TxRunner
	catalog  products.Writer
	users    users.Repository
	quoteDB  quotes.Repository
	quotes   quotes.Service
	password config.PasswordConfig
	logg     *logger.Logger
}

type seedOptions struct {
	distributorEmail    string
	distributorPassword string
	sampleQuote         bool
}

type seedReport struct {
	categories  int
	products    int
	distributor string
	quote       string
}

func (s *seeder) run(ctx context.Context, opts seedOptions) (seedReport, error) {
	var report seedReport

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		for _, c := range categorySeeds {
			if err := s.catalog.UpsertCategory(ctx, c.model()); err != nil {
				return fmt.Errorf("category %q: %w", c.name, err)
			}
			report.categories++
		}
		for _, p := range productSeeds {
			if err := s.catalog.UpsertProduct(ctx, p.model()); err != nil {
				return fmt.Errorf("product %s: %w", p.sku, err)
			}
			report.products++
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	if opts.distributorEmail != "" {
		email, err := s.ensureDistributor(ctx, opts.distributorEmail, opts.distributorPassword)
		if err != nil {
			return report, err
		}
		report.distributor = email
	}

	if opts.sampleQuote {
		number, err := s.ensureSampleQuote(ctx)
		if err != nil {
			return report, err
		}
		report.quote = number
	}
	return report, nil
}

// ensureDistributor creates the account once. An existing account is left
// untouched, including its password.
func (s *seeder) ensureDistributor(ctx context.Context, email, password string) (string, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != enums.UserRoleDistributor {
			return "", fmt.Errorf("%s exists with role %s", existing.Email, existing.Role)
		}
		return existing.Email, nil
	case !errors.Is(err, repo.ErrNotFound):
		return "", fmt.Errorf("find distributor: %w", err)
	}

	if err := security.ValidatePassword(password, s.password); err != nil {
		return "", err
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: &hash,
		Role:         enums.UserRoleDistributor,
	})
	if err != nil {
		return "", fmt.Errorf("create distributor: %w", err)
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "distributor account created")
	return user.Email, nil
}

// ensureSampleQuote submits a request through the quote service so the outbox
// sees it too. Nothing is submitted while the queue already has work in it.
func (s *seeder) ensureSampleQuote(ctx context.Context) (string, error) {
	active, err := s.quoteDB.ListActive(ctx, quotes.ListQuery{Limit: 1})
	if err != nil {
		return "", fmt.Errorf("list quote queue: %w", err)
	}
	if len(active) > 0 {
		return "", nil
	}

	company := "Northside Electrical Contractors"
	emt, box := productSeeds[2], productSeeds[6]
	quote, err := s.quotes.Submit(ctx, nil, quotes.QuoteInput{
		CustomerName:  "Maria Delgado",
		CustomerEmail: "maria.delgado@example.com",
		CustomerPhone: "+1 512 555 0142",
		CompanyName:   &company,
		Items: []types.QuoteItem{
			{ProductID: seedID("product", emt.sku), ProductName: emt.name, Quantity: 400},
			{ProductID: seedID("product", box.sku), ProductName: box.name, Quantity: 60},
		},
		Message: "Pricing for a warehouse fit-out, delivery to Austin within three weeks.",
	})
	if err != nil {
		return "", err
	}
	return quote.RequestNumber, nil
}

package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/conduit-storefront/pkg/errors"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

// ProductLookup resolves catalog rows for cart lines.
type ProductLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service owns the persisted per-owner cart.
type Service interface {
	Load(ctx context.Context, owner string) (*Cart, error)
	Add(ctx context.Context, owner string, productID uuid.UUID, qty int) (*Cart, error)
	UpdateQuantity(ctx context.Context, owner string, productID uuid.UUID, qty int) (*Cart, error)
	Remove(ctx context.Context, owner string, productID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, owner string) error
}

type service struct {
	repo     Repository
	products ProductLookup
	logg     *logger.Logger
}

// NewService wires the cart service.
func NewService(repository Repository, products ProductLookup, logg *logger.Logger) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repository, products: products, logg: logg}, nil
}

func validateOwner(owner string) error {
	if owner == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	return nil
}

func (s *service) Load(ctx context.Context, owner string) (*Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}

	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		product, err := s.products.FindByID(ctx, row.ProductID)
		if err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"owner_id":   owner,
					"product_id": row.ProductID.String(),
					"error":      err.Error(),
				}), "cart product lookup failed; line dropped")
			}
			continue
		}
		lines = append(lines, Line{Product: snapshot(product), Quantity: row.Quantity})
	}

	c := newCart(owner, lines)
	return &c, nil
}

func (s *service) Add(ctx context.Context, owner string, productID uuid.UUID, qty int) (*Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return s.Load(ctx, owner)
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.repo.Increment(ctx, owner, productID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart line")
	}
	return s.Load(ctx, owner)
}

func (s *service) UpdateQuantity(ctx context.Context, owner string, productID uuid.UUID, qty int) (*Cart, error) {
	if qty <= 0 {
		return s.Remove(ctx, owner, productID)
	}
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.repo.SetQuantity(ctx, owner, productID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return s.Load(ctx, owner)
}

func (s *service) Remove(ctx context.Context, owner string, productID uuid.UUID) (*Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, owner, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	return s.Load(ctx, owner)
}

func (s *service) Clear(ctx context.Context, owner string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	if err := s.repo.DeleteAll(ctx, owner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) requireProduct(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return nil
}

func snapshot(p *models.Product) Product {
	out := Product{
		ID:    p.ID,
		Name:  p.Name,
		SKU:   p.SKU,
		Unit:  p.Unit,
		Price: p.Price,
	}
	if p.ImageURL != nil {
		out.ImageURL = *p.ImageURL
	}
	return out
}

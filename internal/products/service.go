package products

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

const (
	DefaultFeaturedLimit   = 3
	DefaultCategoriesLimit = 4
	DefaultListLimit       = 50
	MaxListLimit           = 200
)

// ImageSigner resolves a stored object path to a readable URL.
type ImageSigner interface {
	SignedReadURL(ctx context.Context, object string) (string, error)
}

// Service exposes the read-only storefront catalog.
type Service interface {
	ListFeatured(ctx context.Context, limit int) ([]ProductDTO, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]ProductDTO, error)
	List(ctx context.Context, limit int) ([]ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListCategories(ctx context.Context, limit int) ([]CategoryDTO, error)
}

type service struct {
	repo   Repository
	signer ImageSigner
	logg   *logger.Logger
}

// NewService builds the catalog service. signer may be nil when no bucket is configured.
func NewService(repository Repository, signer ImageSigner, logg *logger.Logger) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repository, signer: signer, logg: logg}, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func (s *service) ListFeatured(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.ListFeatured(ctx, normalizeLimit(limit, DefaultFeaturedLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return s.toDTOs(ctx, rows), nil
}

func (s *service) ListByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]ProductDTO, error) {
	if categoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	rows, err := s.repo.ListByCategory(ctx, categoryID, normalizeLimit(limit, DefaultListLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list category products")
	}
	return s.toDTOs(ctx, rows), nil
}

func (s *service) List(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.List(ctx, normalizeLimit(limit, DefaultListLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return s.toDTOs(ctx, rows), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	dto := toProductDTO(*row, s.imageURL(ctx, *row))
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context, limit int) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx, normalizeLimit(limit, DefaultCategoriesLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategoryDTO(row))
	}
	return out, nil
}

func (s *service) toDTOs(ctx context.Context, rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toProductDTO(row, s.imageURL(ctx, row)))
	}
	return out
}

// imageURL prefers a signed URL for image_path and falls back to the stored URL.
func (s *service) imageURL(ctx context.Context, p models.Product) string {
	fallback := deref(p.ImageURL)
	if s.signer == nil || p.ImagePath == nil || *p.ImagePath == "" {
		return fallback
	}
	signed, err := s.signer.SignedReadURL(ctx, *p.ImagePath)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"product_id": p.ID.String(),
			"image_path": *p.ImagePath,
			"error":      err.Error(),
		}), "product image signing failed")
		return fallback
	}
	return signed
}

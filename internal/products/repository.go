package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
)

// Repository is the catalog persistence surface shared by the GORM and Mongo backends.
type Repository interface {
	ListFeatured(ctx context.Context, limit int) ([]models.Product, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]models.Product, error)
	List(ctx context.Context, limit int) ([]models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListCategories(ctx context.Context, limit int) ([]models.Category, error)
}

type gormRepository struct {
	repo.Base
}

// NewRepository returns the GORM catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) ListFeatured(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).
		Where("is_featured = ?", true).
		Order("name ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).
		Where("category_id = ?", categoryID).
		Order("name ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) List(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).Order("name ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.DB(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, repo.Translate(err)
	}
	return &row, nil
}

func (r *gormRepository) ListCategories(ctx context.Context, limit int) ([]models.Category, error) {
	var rows []models.Category
	err := r.DB(ctx).
		Order("sort_order ASC").
		Order("name ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
)

// Repository persists cart lines keyed by (owner_id, product_id).
type Repository interface {
	ListByOwner(ctx context.Context, owner string) ([]models.CartLine, error)
	// Increment adds qty to the line, creating it when missing.
	Increment(ctx context.Context, owner string, productID uuid.UUID, qty int) error
	// SetQuantity writes the exact quantity, creating the line when missing.
	SetQuantity(ctx context.Context, owner string, productID uuid.UUID, qty int) error
	Delete(ctx context.Context, owner string, productID uuid.UUID) error
	DeleteAll(ctx context.Context, owner string) error
}

type gormRepository struct {
	repo.Base
}

// NewRepository returns the GORM cart repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) ListByOwner(ctx context.Context, owner string) ([]models.CartLine, error) {
	var rows []models.CartLine
	err := r.DB(ctx).
		Where("owner_id = ?", owner).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) Increment(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	return r.upsert(ctx, owner, productID, qty, gorm.Expr("quantity + ?", qty))
}

func (r *gormRepository) SetQuantity(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	return r.upsert(ctx, owner, productID, qty, qty)
}

// upsert updates first and inserts when nothing matched. A concurrent insert
// that wins the unique index race is resolved by retrying the update.
func (r *gormRepository) upsert(ctx context.Context, owner string, productID uuid.UUID, insertQty int, update any) error {
	updated, err := r.update(ctx, owner, productID, update)
	if err != nil || updated {
		return err
	}

	line := models.CartLine{
		ID:        uuid.New(),
		OwnerID:   owner,
		ProductID: productID,
		Quantity:  insertQty,
	}
	err = repo.Translate(r.DB(ctx).Create(&line).Error)
	if !errors.Is(err, repo.ErrDuplicate) {
		return err
	}
	updated, err = r.update(ctx, owner, productID, update)
	if err == nil && !updated {
		return repo.ErrStale
	}
	return err
}

func (r *gormRepository) update(ctx context.Context, owner string, productID uuid.UUID, quantity any) (bool, error) {
	res := r.DB(ctx).Model(&models.CartLine{}).
		Where("owner_id = ? AND product_id = ?", owner, productID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *gormRepository) Delete(ctx context.Context, owner string, productID uuid.UUID) error {
	return r.DB(ctx).
		Where("owner_id = ? AND product_id = ?", owner, productID).
		Delete(&models.CartLine{}).Error
}

func (r *gormRepository) DeleteAll(ctx context.Context, owner string) error {
	return r.DB(ctx).Where("owner_id = ?", owner).Delete(&models.CartLine{}).Error
}

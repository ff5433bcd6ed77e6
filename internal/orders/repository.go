package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/pagination"
	"github.com/angelmondragon/conduit-storefront/pkg/textsearch"
)

// ListQuery is the repository form of ListParams.
type ListQuery struct {
	Status *enums.OrderStatus
	Search string
	Limit  int
	Cursor *pagination.Cursor
}

// Repository persists orders and their lines.
type Repository interface {
	Create(ctx context.Context, order *models.Order) error
	CreateLines(ctx context.Context, lines []models.OrderLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	// List returns up to Limit+1 rows newest first so callers can detect a next page.
	List(ctx context.Context, q ListQuery) ([]models.Order, error)
	// UpdateStatus moves the order from -> to and returns ErrStale when the
	// stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error
}

type gormRepository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) Create(ctx context.Context, order *models.Order) error {
	return repo.Translate(r.DB(ctx).Omit("Lines").Create(order).Error)
}

func (r *gormRepository) CreateLines(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	return repo.Translate(r.DB(ctx).Create(&lines).Error)
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, repo.Translate(err)
	}
	return &order, nil
}

func (r *gormRepository) FindLines(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("product_name ASC").
		Find(&lines).Error
	return lines, err
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]models.Order, error) {
	query := r.DB(ctx).Model(&models.Order{})
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if textsearch.Fold(q.Search) != "" {
		query = query.Where(`search_key LIKE ? ESCAPE '\'`, textsearch.LikePattern(q.Search))
	}
	if q.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []models.Order
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) error {
	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrStale
	}
	return nil
}

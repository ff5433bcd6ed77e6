package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/pagination"
	"github.com/angelmondragon/conduit-storefront/pkg/textsearch"
)

const maxDeclinedList = 500

type ListQuery struct {
	Status *enums.QuoteStatus
	Search string
	Limit  int
	Cursor *pagination.Cursor
}

// Repository persists quote requests and their declined archive.
type Repository interface {
	Create(ctx context.Context, quote *models.QuoteRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.QuoteRequest, error)
	// ListActive excludes declined requests and returns up to Limit+1 rows newest first.
	ListActive(ctx context.Context, q ListQuery) ([]models.QuoteRequest, error)
	// UpdateStatus is a compare-and-set on the current status. price is written when non-nil.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.QuoteStatus, price *decimal.Decimal, at time.Time) error

	CreateDeclined(ctx context.Context, declined *models.DeclinedQuote) error
	FindDeclined(ctx context.Context, id uuid.UUID) (*models.DeclinedQuote, error)
	ListDeclined(ctx context.Context, search string) ([]models.DeclinedQuote, error)
}

type gormRepository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{Base: repo.NewBase(db)}
}

func (r *gormRepository) Create(ctx context.Context, quote *models.QuoteRequest) error {
	return repo.Translate(r.DB(ctx).Create(quote).Error)
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	var quote models.QuoteRequest
	if err := r.DB(ctx).Where("id = ?", id).First(&quote).Error; err != nil {
		return nil, repo.Translate(err)
	}
	return &quote, nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.QuoteRequest, error) {
	var rows []models.QuoteRequest
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) ListActive(ctx context.Context, q ListQuery) ([]models.QuoteRequest, error) {
	query := r.DB(ctx).Model(&models.QuoteRequest{}).
		Where("status <> ?", enums.QuoteStatusDeclined)
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if textsearch.Fold(q.Search) != "" {
		query = query.Where(`search_key LIKE ? ESCAPE '\'`, textsearch.LikePattern(q.Search))
	}
	if q.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []models.QuoteRequest
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.QuoteStatus, price *decimal.Decimal, at time.Time) error {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if price != nil {
		updates["quoted_price"] = *price
	}
	res := r.DB(ctx).Model(&models.QuoteRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrStale
	}
	return nil
}

func (r *gormRepository) CreateDeclined(ctx context.Context, declined *models.DeclinedQuote) error {
	return repo.Translate(r.DB(ctx).Create(declined).Error)
}

func (r *gormRepository) FindDeclined(ctx context.Context, id uuid.UUID) (*models.DeclinedQuote, error) {
	var row models.DeclinedQuote
	if err := r.DB(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, repo.Translate(err)
	}
	return &row, nil
}

func (r *gormRepository) ListDeclined(ctx context.Context, search string) ([]models.DeclinedQuote, error) {
	query := r.DB(ctx).Model(&models.DeclinedQuote{})
	if textsearch.Fold(search) != "" {
		query = query.Where(`search_key LIKE ? ESCAPE '\'`, textsearch.LikePattern(search))
	}
	var rows []models.DeclinedQuote
	err := query.
		Order("declined_at DESC, id DESC").
		Limit(maxDeclinedList).
		Find(&rows).Error
	return rows, err
}

package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
)

const maxDLQErrorLen = 1024

// Store persists outbox rows and their dead letters.
type Store interface {
	Insert(ctx context.Context, event models.OutboxEvent) error
	FetchUnpublishedForPublish(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
	MarkTerminal(ctx context.Context, id uuid.UUID, err error, terminalAttempts int) error
	InsertDLQ(ctx context.Context, entry models.OutboxDLQ) error
}

// Repository is the GORM Store. It joins the transaction carried on ctx.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, event models.OutboxEvent) error {
	return dbpkg.Conn(ctx, r.db).Create(&event).Error
}

// FetchUnpublishedForPublish locks a batch of pending rows. On Postgres the rows
// are claimed with FOR UPDATE SKIP LOCKED so parallel publishers never share work.
func (r *Repository) FetchUnpublishedForPublish(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	q := dbpkg.Conn(ctx, r.db).
		Where("published_at IS NULL").
		Where("attempt_count < ?", maxAttempts).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var rows []models.OutboxEvent
	err := q.Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return dbpkg.Conn(ctx, r.db).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now().UTC(),
		}).Error
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	return dbpkg.Conn(ctx, r.db).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    truncateError(err.Error()),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// MarkTerminal pins attempt_count at the ceiling so the row is never fetched again.
func (r *Repository) MarkTerminal(ctx context.Context, id uuid.UUID, err error, terminalAttempts int) error {
	return dbpkg.Conn(ctx, r.db).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    truncateError(err.Error()),
			"attempt_count": terminalAttempts,
		}).Error
}

func (r *Repository) InsertDLQ(ctx context.Context, entry models.OutboxDLQ) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		msg := truncateError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return dbpkg.Conn(ctx, r.db).Create(&entry).Error
}

// ListDLQ returns the most recent dead letters.
func (r *Repository) ListDLQ(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.OutboxDLQ
	err := dbpkg.Conn(ctx, r.db).
		Order("failed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeletePublishedBefore removes rows published before cutoff. Unpublished rows
// and dead-lettered rows are kept.
func (r *Repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := dbpkg.Conn(ctx, r.db).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func truncateError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	return message[:maxDLQErrorLen]
}

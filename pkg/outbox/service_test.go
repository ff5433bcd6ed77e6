package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := dbpkg.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())))
	require.NoError(t, err)
	require.NoError(t, dbpkg.AutoMigrate(context.Background(), conn))
	return conn
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), logger.Nop())
	orderID := uuid.New()
	userID := uuid.New()

	err := svc.Emit(context.Background(), DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &ActorRef{UserID: &userID, Role: string(enums.UserRoleClient)},
		Data:          map[string]string{"orderNumber": "ORD-1-ABCDEF"},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, userID, *envelope.Actor.UserID)
	assert.JSONEq(t, `{"orderNumber":"ORD-1-ABCDEF"}`, string(envelope.Data))
}

func TestEmitValidates(t *testing.T) {
	svc := NewService(NewRepository(newTestDB(t)), nil)
	err := svc.Emit(context.Background(), DomainEvent{EventType: "nope", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()})
	assert.Error(t, err)
	err = svc.Emit(context.Background(), DomainEvent{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder})
	assert.Error(t, err)
}

func TestEmitJoinsTransaction(t *testing.T) {
	conn := newTestDB(t)
	client := dbpkg.NewFromConn(conn)
	svc := NewService(NewRepository(conn), nil)

	err := client.InTx(context.Background(), func(ctx context.Context) error {
		if err := svc.Emit(ctx, DomainEvent{
			EventType:     enums.EventQuoteSubmitted,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   uuid.New(),
			Data:          map[string]any{},
		}); err != nil {
			return err
		}
		return errors.New("rollback")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRepositoryLifecycle(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, repo.Insert(ctx, models.OutboxEvent{
			ID:            ids[i],
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublished(ctx, ids[0]))
	require.NoError(t, repo.MarkFailed(ctx, ids[1], errors.New("transient")))
	require.NoError(t, repo.MarkTerminal(ctx, ids[2], errors.New("fatal"), 3))

	rows, err = repo.FetchUnpublishedForPublish(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "transient", *rows[0].LastError)

	long := strings.Repeat("x", 2*maxDLQErrorLen)
	require.NoError(t, repo.InsertDLQ(ctx, models.OutboxDLQ{
		EventID:       ids[2],
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &long,
		AttemptCount:  3,
	}))
	dlq, err := repo.ListDLQ(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	assert.Len(t, *dlq[0].ErrorMessage, maxDLQErrorLen)
}

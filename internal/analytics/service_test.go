package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/conduit-storefront/pkg/bigquery"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
)

type fakeSink struct {
	rows []bigquery.EventRow
	err  error
}

func (f *fakeSink) InsertEvents(_ context.Context, rows []bigquery.EventRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeClaims struct {
	claimed  map[string]bool
	released []string
	err      error
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{claimed: map[string]bool{}}
}

func (f *fakeClaims) Claim(_ context.Context, consumer, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	key := consumer + ":" + eventID
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeClaims) Release(_ context.Context, consumer, eventID string) error {
	delete(f.claimed, consumer+":"+eventID)
	f.released = append(f.released, eventID)
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, sink *fakeSink, claims *fakeClaims) *Service {
	t.Helper()
	svc, err := NewService(sink, claims, logger.Nop())
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func orderPlacedMessage(t *testing.T, eventID string) ([]byte, map[string]string) {
	t.Helper()
	userID := uuid.New()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		Actor:      &outbox.ActorRef{UserID: &userID, Role: "client"},
		Data:       json.RawMessage(`{"orderNumber":"ORD-20260301-0001"}`),
	})
	require.NoError(t, err)
	return data, map[string]string{
		"event_type":     string(enums.EventOrderPlaced),
		"aggregate_type": string(enums.AggregateOrder),
		"aggregate_id":   uuid.NewString(),
	}
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(nil, newFakeClaims(), logger.Nop())
	require.Error(t, err)
	_, err = NewService(&fakeSink{}, nil, logger.Nop())
	require.Error(t, err)
	_, err = NewService(&fakeSink{}, newFakeClaims(), nil)
	require.Error(t, err)
}

func TestProcessStoresRow(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, sink, newFakeClaims())
	eventID := uuid.NewString()
	data, attrs := orderPlacedMessage(t, eventID)

	assert.Equal(t, Ack, svc.Process(context.Background(), "m-1", data, attrs))

	require.Len(t, sink.rows, 1)
	row := sink.rows[0]
	assert.Equal(t, eventID, row.EventID)
	assert.Equal(t, "order.placed", row.EventType)
	assert.Equal(t, "order", row.AggregateType)
	assert.Equal(t, attrs["aggregate_id"], row.AggregateID)
	assert.Equal(t, "client", row.ActorRole)
	assert.NotEmpty(t, row.ActorUserID)
	assert.JSONEq(t, `{"orderNumber":"ORD-20260301-0001"}`, row.Payload)
	assert.Equal(t, fixedNow, row.IngestedAt)
}

func TestProcessSkipsRedelivery(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, sink, newFakeClaims())
	data, attrs := orderPlacedMessage(t, uuid.NewString())

	assert.Equal(t, Ack, svc.Process(context.Background(), "m-1", data, attrs))
	assert.Equal(t, Ack, svc.Process(context.Background(), "m-2", data, attrs))
	assert.Len(t, sink.rows, 1)
}

func TestProcessReleasesClaimOnSinkFailure(t *testing.T) {
	sink := &fakeSink{err: errors.New("bq down")}
	claims := newFakeClaims()
	svc := newTestService(t, sink, claims)
	eventID := uuid.NewString()
	data, attrs := orderPlacedMessage(t, eventID)

	assert.Equal(t, Nack, svc.Process(context.Background(), "m-1", data, attrs))
	assert.Equal(t, []string{eventID}, claims.released)

	sink.err = nil
	assert.Equal(t, Ack, svc.Process(context.Background(), "m-2", data, attrs))
	assert.Len(t, sink.rows, 1)
}

func TestProcessNacksWhenClaimFails(t *testing.T) {
	claims := newFakeClaims()
	claims.err = errors.New("redis down")
	svc := newTestService(t, &fakeSink{}, claims)
	data, attrs := orderPlacedMessage(t, uuid.NewString())

	assert.Equal(t, Nack, svc.Process(context.Background(), "m-1", data, attrs))
}

func TestProcessDropsMalformedMessages(t *testing.T) {
	data, attrs := orderPlacedMessage(t, uuid.NewString())

	cases := map[string]func() ([]byte, map[string]string){
		"bad json": func() ([]byte, map[string]string) { return []byte("{"), attrs },
		"unknown event type": func() ([]byte, map[string]string) {
			bad := map[string]string{"event_type": "nope", "aggregate_type": "order", "aggregate_id": "x"}
			return data, bad
		},
		"missing aggregate id": func() ([]byte, map[string]string) {
			bad := map[string]string{"event_type": "order.placed", "aggregate_type": "order"}
			return data, bad
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			sink := &fakeSink{}
			svc := newTestService(t, sink, newFakeClaims())
			d, a := build()
			assert.Equal(t, Ack, svc.Process(context.Background(), "m", d, a))
			assert.Empty(t, sink.rows)
		})
	}
}

func TestProcessFallsBackToAttributeEventID(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(t, sink, newFakeClaims())
	data, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	attrs := map[string]string{
		"event_id":       "evt-attr",
		"event_type":     string(enums.EventQuoteDeclined),
		"aggregate_type": string(enums.AggregateQuoteRequest),
		"aggregate_id":   uuid.NewString(),
		"created_at":     "2026-03-01T10:00:00Z",
	}

	assert.Equal(t, Ack, svc.Process(context.Background(), "m", data, attrs))
	require.Len(t, sink.rows, 1)
	assert.Equal(t, "evt-attr", sink.rows[0].EventID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), sink.rows[0].OccurredAt)
}

package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/conduit-storefront/pkg/bigquery"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
)

const consumerName = "analytics"

// Sink receives decoded rows. *bigquery.Client satisfies it.
type Sink interface {
	InsertEvents(ctx context.Context, rows []bigquery.EventRow) error
}

// Claimer deduplicates redeliveries. *idempotency.Manager satisfies it.
type Claimer interface {
	Claim(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

// Service copies domain events from the analytics subscription into BigQuery.
type Service struct {
	sink   Sink
	claims Claimer
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(sink Sink, claims Claimer, logg *logger.Logger) (*Service, error) {
	if sink == nil {
		return nil, errors.New("analytics sink is required")
	}
	if claims == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{sink: sink, claims: claims, logg: logg, now: time.Now}, nil
}

// Outcome tells Run whether to ack the message.
type Outcome int

const (
	Ack Outcome = iota
	Nack
)

// Run consumes until ctx is canceled.
func (s *Service) Run(ctx context.Context, subscription *gcppubsub.Subscriber) error {
	if subscription == nil {
		return errors.New("analytics subscription is required")
	}
	return subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.Process(innerCtx, msg.ID, msg.Data, msg.Attributes) == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process handles one delivery. Malformed messages are acked and dropped;
// sink and claim failures are nacked so Pub/Sub redelivers them.
func (s *Service) Process(ctx context.Context, messageID string, data []byte, attrs map[string]string) Outcome {
	logCtx := s.logg.WithField(ctx, "message_id", messageID)

	row, err := s.decode(data, attrs)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "invalid analytics envelope")
		return Ack
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":       row.EventID,
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID,
	})

	claimed, err := s.claims.Claim(logCtx, consumerName, row.EventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return Nack
	}
	if !claimed {
		s.logg.Info(logCtx, "event already processed")
		return Ack
	}

	if err := s.sink.InsertEvents(logCtx, []bigquery.EventRow{row}); err != nil {
		s.logg.Error(logCtx, "analytics insert failed", err)
		if releaseErr := s.claims.Release(logCtx, consumerName, row.EventID); releaseErr != nil {
			s.logg.Error(logCtx, "idempotency release failed", releaseErr)
		}
		return Nack
	}

	s.logg.Info(logCtx, "analytics event stored")
	return Ack
}

func (s *Service) decode(data []byte, attrs map[string]string) (bigquery.EventRow, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return bigquery.EventRow{}, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(attrs["event_type"]))
	if err != nil {
		return bigquery.EventRow{}, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(strings.TrimSpace(attrs["aggregate_type"]))
	if err != nil {
		return bigquery.EventRow{}, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := strings.TrimSpace(attrs["aggregate_id"])
	if aggregateID == "" {
		return bigquery.EventRow{}, errors.New("aggregate_id missing")
	}

	eventID := strings.TrimSpace(envelope.EventID)
	if eventID == "" {
		eventID = strings.TrimSpace(attrs["event_id"])
	}
	if eventID == "" {
		return bigquery.EventRow{}, errors.New("event_id missing")
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(attrs["created_at"])); err == nil {
			occurredAt = parsed
		}
	}

	row := bigquery.EventRow{
		EventID:       eventID,
		EventType:     string(eventType),
		AggregateType: string(aggregateType),
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Payload:       string(envelope.Data),
		IngestedAt:    s.now().UTC(),
	}
	if envelope.Actor != nil {
		if envelope.Actor.UserID != nil {
			row.ActorUserID = envelope.Actor.UserID.String()
		}
		row.ActorRole = envelope.Actor.Role
	}
	return row, nil
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/pkg/enums"
)

// OutboxEvent represents an append-only event emitted via the outbox pattern.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null" bson:"event_type"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null" bson:"aggregate_type"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null" bson:"aggregate_id"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null" bson:"payload"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	PublishedAt   *time.Time                `gorm:"column:published_at;index" bson:"published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0" bson:"attempt_count"`
	LastError     *string                   `gorm:"column:last_error" bson:"last_error,omitempty"`
}

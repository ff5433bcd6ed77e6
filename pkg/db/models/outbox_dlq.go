package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/pkg/enums"
)

// OutboxDLQ captures outbox rows that exhausted their publish attempts.
type OutboxDLQ struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	EventID       uuid.UUID                  `gorm:"column:event_id;type:uuid;not null" bson:"event_id"`
	EventType     enums.OutboxEventType      `gorm:"column:event_type;not null" bson:"event_type"`
	AggregateType enums.OutboxAggregateType  `gorm:"column:aggregate_type;not null" bson:"aggregate_type"`
	AggregateID   uuid.UUID                  `gorm:"column:aggregate_id;type:uuid;not null" bson:"aggregate_id"`
	Payload       json.RawMessage            `gorm:"column:payload_json;type:jsonb;not null" bson:"payload"`
	ErrorReason   enums.OutboxDLQErrorReason `gorm:"column:error_reason;not null" bson:"error_reason"`
	ErrorMessage  *string                    `gorm:"column:error_message" bson:"error_message,omitempty"`
	AttemptCount  int                        `gorm:"column:attempt_count;not null;default:0" bson:"attempt_count"`
	FailedAt      time.Time                  `gorm:"column:failed_at" bson:"failed_at"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
}

// TableName keeps the table name singular-suffixed like the migration.
func (OutboxDLQ) TableName() string {
	return "outbox_dlq"
}

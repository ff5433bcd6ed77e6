// Package registry knows every event the storefront emits: its aggregate, the
// topic it is published to and the Go type of its payload.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a validated outbox row with its payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that can never be published as stored, so the
// publisher dead-letters it instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

func payload[T any]() func() any {
	return func() any { return new(T) }
}

// catalog lists each event's aggregate and payload type.
var catalog = map[enums.OutboxEventType]EventDescriptor{
	enums.EventOrderPlaced:        {AggregateType: enums.AggregateOrder, PayloadFactory: payload[payloads.OrderPlacedEvent]()},
	enums.EventOrderStatusChanged: {AggregateType: enums.AggregateOrder, PayloadFactory: payload[payloads.OrderStatusChangedEvent]()},
	enums.EventQuoteSubmitted:     {AggregateType: enums.AggregateQuoteRequest, PayloadFactory: payload[payloads.QuoteSubmittedEvent]()},
	enums.EventQuoteQuoted:        {AggregateType: enums.AggregateQuoteRequest, PayloadFactory: payload[payloads.QuoteStatusChangedEvent]()},
	enums.EventQuoteAccepted:      {AggregateType: enums.AggregateQuoteRequest, PayloadFactory: payload[payloads.QuoteStatusChangedEvent]()},
	enums.EventQuoteDeclined:      {AggregateType: enums.AggregateQuoteRequest, PayloadFactory: payload[payloads.QuoteDeclinedEvent]()},
	enums.EventMagicLinkRequested: {AggregateType: enums.AggregateUser, PayloadFactory: payload[payloads.MagicLinkRequestedEvent]()},
	enums.EventUserRegistered:     {AggregateType: enums.AggregateUser, PayloadFactory: payload[payloads.UserRegisteredEvent]()},
}

// NewEventRegistry routes every event to the domain topic. Subscribers filter
// on the event_type attribute.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	entries := make(map[enums.OutboxEventType]EventDescriptor, len(catalog))
	for eventType, desc := range catalog {
		desc.EventType = eventType
		desc.Topic = cfg.DomainTopic
		entries[eventType] = desc
	}
	return &EventRegistry{entries: entries}, nil
}

func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is a NonRetryableError: retrying cannot fix a stored row.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, permanent("aggregate mismatch: %s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("missing aggregate_id")
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("%s has no payload", event.EventType)
	}
	out := desc.PayloadFactory()
	if err := json.Unmarshal(env.Data, out); err != nil {
		return nil, permanent("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: out}, nil
}

package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateQuoteRequest OutboxAggregateType = "quote_request"
	AggregateUser         OutboxAggregateType = "user"
)

// OutboxEventType is the routing key of a domain event. The publisher maps
// each one to a topic; the analytics worker stores it verbatim.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order.placed"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventQuoteSubmitted     OutboxEventType = "quote.submitted"
	EventQuoteQuoted        OutboxEventType = "quote.quoted"
	EventQuoteAccepted      OutboxEventType = "quote.accepted"
	EventQuoteDeclined      OutboxEventType = "quote.declined"
	EventMagicLinkRequested OutboxEventType = "auth.magic_link_requested"
	EventUserRegistered     OutboxEventType = "auth.user_registered"
)

var (
	aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateQuoteRequest, AggregateUser}
	eventTypes     = []OutboxEventType{
		EventOrderPlaced,
		EventOrderStatusChanged,
		EventQuoteSubmitted,
		EventQuoteQuoted,
		EventQuoteAccepted,
		EventQuoteDeclined,
		EventMagicLinkRequested,
		EventUserRegistered,
	}
)

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseKnown(aggregateTypes, value, "aggregate type")
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseKnown(eventTypes, value, "event type")
}

// parseKnown matches value exactly; wire values are never normalized.
func parseKnown[T ~string](known []T, value, kind string) (T, error) {
	if v := T(value); slices.Contains(known, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}

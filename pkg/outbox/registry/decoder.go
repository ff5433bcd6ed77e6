package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/conduit-storefront/pkg/enums"
)

// DecodeFunc turns a raw envelope data block into a typed payload.
type DecodeFunc func(payload json.RawMessage) (interface{}, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry holds versioned payload decoders for subscribers such as the
// analytics worker, which receive envelopes without the outbox row around them.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	decoders map[decoderKey]DecodeFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]DecodeFunc)}
}

// NewDefaultDecoderRegistry registers a version 1 JSON decoder for every event
// the event registry knows.
func NewDefaultDecoderRegistry(events *EventRegistry) *DecoderRegistry {
	reg := NewDecoderRegistry()
	for eventType, desc := range events.entries {
		factory := desc.PayloadFactory
		reg.Register(eventType, 1, func(payload json.RawMessage) (interface{}, error) {
			out := factory()
			if err := json.Unmarshal(payload, out); err != nil {
				return nil, err
			}
			return out, nil
		})
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder DecodeFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}

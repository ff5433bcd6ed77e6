package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// publisher is the part of *pubsub.Publisher the service uses. Publish is
// asynchronous: the message is queued for a bundle and the result resolves
// once the server acknowledges it.
type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (serverID string, err error)
}

type publisherFactory func(topic string) publisher

// pubsubHandles is the slice of the Pub/Sub client the publisher needs.
type pubsubHandles struct {
	Ping      func(context.Context) error
	Publisher func(topic string) *gcppubsub.Publisher
}

func (h *pubsubHandles) factory() publisherFactory {
	if h == nil || h.Publisher == nil {
		return nil
	}
	return func(topic string) publisher {
		p := h.Publisher(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

type gcpPublisher struct{ p *gcppubsub.Publisher }

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{g.p.Publish(ctx, msg)}
}

type gcpResult struct{ r *gcppubsub.PublishResult }

func (g gcpResult) Get(ctx context.Context) (string, error) {
	if g.r == nil {
		return "", errors.New("publish result is nil")
	}
	return g.r.Get(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type pinger interface {
	Ping(context.Context) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type batchMetrics interface {
	ObserveBatch(time.Duration)
	Published(eventType string)
	Failed(eventType string)
	DeadLettered(eventType string)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	Tx               db.TxRunner
	Datastore        pinger
	PubSub           *pubsubHandles
	Store            outbox.Store
	Registry         registryResolver
	PublisherFactory publisherFactory
	Metrics          batchMetrics
}

// Service drains outbox rows to Pub/Sub. Each batch is claimed inside one
// transaction, so on Postgres parallel publishers never see the same rows.
type Service struct {
	logg        *logger.Logger
	tx          db.TxRunner
	store       outbox.Store
	registry    registryResolver
	publishers  publisherFactory
	metrics     batchMetrics
	probes      map[string]func(context.Context) error
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("config is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.Tx == nil:
		return nil, errors.New("transaction runner is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}
	publishers := p.PublisherFactory
	if publishers == nil {
		publishers = p.PubSub.factory()
	}
	if publishers == nil {
		return nil, errors.New("pubsub publisher is required")
	}

	probes := map[string]func(context.Context) error{}
	if p.Datastore != nil {
		probes["datastore"] = p.Datastore.Ping
	}
	if p.PubSub != nil && p.PubSub.Ping != nil {
		probes["pubsub"] = p.PubSub.Ping
	}

	cfg := p.Config.Outbox
	s := &Service{
		logg:        p.Logger,
		tx:          p.Tx,
		store:       p.Store,
		registry:    p.Registry,
		publishers:  publishers,
		metrics:     p.Metrics,
		probes:      probes,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		poll:        defaultPoll,
	}
	if cfg.BatchSize > 0 {
		s.batchSize = cfg.BatchSize
	}
	if cfg.MaxAttempts > 0 {
		s.maxAttempts = cfg.MaxAttempts
	}
	if cfg.PollIntervalMS > 0 {
		s.poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return s, nil
}

// Run publishes until ctx ends. A full batch is followed immediately by the
// next one, an empty batch waits one poll interval and a failed batch backs
// off exponentially.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range s.probes {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, name+" unreachable at startup", err)
			return fmt.Errorf("%s ping: %w", name, err)
		}
	}

	delay := backoff{base: s.poll, max: maxBackoff}
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher stopping")
			return err
		}
		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = delay.next()
		case processed:
			delay.reset()
			continue
		default:
			delay.reset()
			wait = s.poll
		}
		if err := sleep(ctx, wait+rand.N(jitterWindow)); err != nil {
			return err
		}
	}
}

// pending is one claimed row on its way through a batch.
type pending struct {
	row      models.OutboxEvent
	resolved *registry.ResolvedEvent
	result   publishResult
	err      error
}

// processBatch reports whether any row was claimed. Publish failures are
// recorded on their rows; only bookkeeping failures abort the batch.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	var claimed int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		rows, err := s.store.FetchUnpublishedForPublish(ctx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(rows)
		if claimed == 0 {
			return nil
		}

		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		// queue every message first so the client can bundle them
		batch := make([]*pending, len(rows))
		for i, row := range rows {
			batch[i] = s.enqueue(publishCtx, row)
		}
		for _, p := range batch {
			if p.result != nil {
				_, p.err = p.result.Get(publishCtx)
			}
			if err := s.settle(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if claimed > 0 && s.metrics != nil {
		s.metrics.ObserveBatch(time.Since(started))
	}
	return claimed > 0, err
}

func (s *Service) enqueue(ctx context.Context, row models.OutboxEvent) *pending {
	p := &pending{row: row}
	p.resolved, p.err = s.registry.Resolve(row)
	if p.err != nil {
		return p
	}
	topic := p.resolved.Descriptor.Topic
	pub := s.publishers(topic)
	if pub == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
		return p
	}
	p.result = pub.Publish(ctx, &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       p.resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if p.result == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("publisher for %s returned no result", topic))
	}
	return p
}

// settle writes the outcome of one row: published, failed for retry, or dead
// lettered.
func (s *Service) settle(ctx context.Context, p *pending) error {
	row := p.row
	logCtx := s.logg.WithFields(ctx, s.fields(p))

	if p.err == nil {
		if err := s.store.MarkPublished(ctx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		s.count(row, batchMetrics.Published)
		s.logg.Info(logCtx, "outbox event published")
		return nil
	}

	var nonRetryable registry.NonRetryableError
	if errors.As(p.err, &nonRetryable) {
		return s.deadLetter(logCtx, row, enums.OutboxDLQReasonNonRetryable, p.err)
	}
	if row.AttemptCount+1 >= s.maxAttempts {
		return s.deadLetter(logCtx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", p.err))
	}

	s.logg.Warn(s.logg.WithField(logCtx, "error", p.err.Error()), "outbox publish failed, will retry")
	if err := s.store.MarkFailed(ctx, row.ID, p.err); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	s.count(row, batchMetrics.Failed)
	return nil
}

func (s *Service) deadLetter(ctx context.Context, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": cause.Error(), "error_reason": reason}), "outbox event dead-lettered")

	msg := cause.Error()
	if err := s.store.InsertDLQ(ctx, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := s.store.MarkTerminal(ctx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	s.count(row, batchMetrics.DeadLettered)
	return nil
}

func (s *Service) count(row models.OutboxEvent, inc func(batchMetrics, string)) {
	if s.metrics != nil {
		inc(s.metrics, string(row.EventType))
	}
}

func (s *Service) fields(p *pending) map[string]any {
	f := map[string]any{
		"outbox_id":      p.row.ID.String(),
		"event_type":     p.row.EventType,
		"aggregate_type": p.row.AggregateType,
		"aggregate_id":   p.row.AggregateID.String(),
		"attempt_count":  p.row.AttemptCount,
	}
	if p.resolved != nil {
		f["event_id"] = p.resolved.Envelope.EventID
		f["topic"] = p.resolved.Descriptor.Topic
	}
	if p.row.LastError != nil {
		f["last_error"] = *p.row.LastError
	}
	return f
}

// backoff doubles from base up to max.
type backoff struct {
	base, max, cur time.Duration
}

func (b *backoff) next() time.Duration {
	if b.cur <= 0 {
		b.cur = b.base
	}
	b.cur = min(b.cur*2, b.max)
	return b.cur
}

func (b *backoff) reset() { b.cur = 0 }

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package cron

import (
	"context"
	"fmt"
	"time"
)

// OutboxPruner is implemented by both outbox repositories.
type OutboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartPruner is implemented by both cart idle pruners.
type CartPruner interface {
	DeleteIdleCarts(ctx context.Context, before time.Time) (int64, error)
}

// retentionJob deletes whatever prune selects as older than now minus keep.
type retentionJob struct {
	name  string
	keep  time.Duration
	prune func(ctx context.Context, cutoff time.Time) (int64, error)
	now   func() time.Time
}

// NewOutboxRetentionJob drops published outbox rows once they are older than
// keep. Rows still waiting for the publisher are never touched.
func NewOutboxRetentionJob(store OutboxPruner, keep time.Duration) (Job, error) {
	if store == nil {
		return nil, fmt.Errorf("outbox store required")
	}
	return newRetentionJob("outbox-retention", keep, store.DeletePublishedBefore)
}

// NewIdleCartJob drops carts whose newest line was last written before now
// minus keep.
func NewIdleCartJob(carts CartPruner, keep time.Duration) (Job, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart pruner required")
	}
	return newRetentionJob("idle-carts", keep, carts.DeleteIdleCarts)
}

func newRetentionJob(name string, keep time.Duration, prune func(context.Context, time.Time) (int64, error)) (Job, error) {
	if keep <= 0 {
		return nil, fmt.Errorf("%s: retention must be positive", name)
	}
	return &retentionJob{
		name:  name,
		keep:  keep,
		prune: prune,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) (int64, error) {
	n, err := j.prune(ctx, j.now().Add(-j.keep))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", j.name, err)
	}
	return n, nil
}

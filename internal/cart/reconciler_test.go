package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	mu       sync.Mutex
	failures map[string]int
}

func (m *countingMetrics) CartRemoteFailure(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = map[string]int{}
	}
	m.failures[op]++
}

func (m *countingMetrics) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[op]
}

// scriptedRemote wraps a real remote, failing or blocking chosen writes.
type scriptedRemote struct {
	Remote

	failAdd uuid.UUID
	gate    chan struct{}
	entered chan struct{}

	mu   sync.Mutex
	adds int
}

func (s *scriptedRemote) Add(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	s.mu.Lock()
	s.adds++
	first := s.adds == 1
	s.mu.Unlock()

	if first && s.gate != nil {
		close(s.entered)
		<-s.gate
	}
	if productID == s.failAdd {
		return errors.New("remote unavailable")
	}
	return s.Remote.Add(ctx, owner, productID, qty)
}

func (s *scriptedRemote) addCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adds
}

func newTestReconciler(t *testing.T, remote Remote, metrics FailureRecorder) *Reconciler {
	t.Helper()
	r, err := NewReconciler(remote, uuid.NewString(), ReconcilerConfig{Metrics: metrics, WriteTimeout: 5 * time.Second})
	require.NoError(t, err)
	return r
}

func localRemote(t *testing.T, f fixture) *LocalRemote {
	t.Helper()
	remote, err := NewLocalRemote(f.svc)
	require.NoError(t, err)
	return remote
}

func flush(t *testing.T, r *Reconciler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Flush(ctx))
}

func TestReconcilerTotalsMatchRemoteAfterAdds(t *testing.T) {
	f := newFixture(t)
	r := newTestReconciler(t, localRemote(t, f), nil)

	r.Add(f.snapshot(0), 2)
	r.Add(f.snapshot(1), 1)
	r.Add(f.snapshot(0), 1)
	r.Add(f.snapshot(2), 0)

	// local state is updated before any remote write lands
	assert.Equal(t, 4, r.Count())
	assert.True(t, decimal.RequireFromString("14.75").Equal(r.Total()), r.Total().String())

	flush(t, r)
	remote, err := f.svc.Load(context.Background(), r.Owner())
	require.NoError(t, err)
	assert.Equal(t, r.Count(), remote.Count)
	assert.True(t, remote.Total.Equal(r.Total()))
	assert.Equal(t, quantities(remote.Lines), quantities(r.Lines()))
}

func TestReconcilerRepeatedAddMerges(t *testing.T) {
	f := newFixture(t)
	r := newTestReconciler(t, localRemote(t, f), nil)

	r.Add(f.snapshot(0), 2)
	r.Add(f.snapshot(0), 3)

	lines := r.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	require.NoError(t, r.Load(context.Background()))
	lines = r.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestReconcilerUpdateToZeroMatchesRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	viaUpdate := newTestReconciler(t, localRemote(t, f), nil)
	viaRemove := newTestReconciler(t, localRemote(t, f), nil)
	for _, r := range []*Reconciler{viaUpdate, viaRemove} {
		r.Add(f.snapshot(0), 2)
		r.Add(f.snapshot(1), 1)
	}
	viaUpdate.UpdateQuantity(f.products[0].ID, 0)
	viaRemove.Remove(f.products[0].ID)

	assert.Equal(t, quantities(viaRemove.Lines()), quantities(viaUpdate.Lines()))

	flush(t, viaUpdate)
	flush(t, viaRemove)
	a, err := f.svc.Load(ctx, viaUpdate.Owner())
	require.NoError(t, err)
	b, err := f.svc.Load(ctx, viaRemove.Owner())
	require.NoError(t, err)
	assert.Equal(t, quantities(b.Lines), quantities(a.Lines))
	assert.Equal(t, map[uuid.UUID]int{f.products[1].ID: 1}, quantities(a.Lines))
}

func TestReconcilerClearThenLoadIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := newTestReconciler(t, localRemote(t, f), nil)

	r.Add(f.snapshot(0), 1)
	r.Add(f.snapshot(2), 6)
	require.NoError(t, r.Clear(ctx))
	assert.Empty(t, r.Lines())

	require.NoError(t, r.Load(ctx))
	assert.Empty(t, r.Lines())
	assert.Equal(t, 0, r.Count())
	assert.True(t, r.Total().IsZero())
}

func TestReconcilerConvergesAfterRemoteFailure(t *testing.T) {
	f := newFixture(t)
	metrics := &countingMetrics{}
	remote := &scriptedRemote{Remote: localRemote(t, f), failAdd: f.products[1].ID}
	r := newTestReconciler(t, remote, metrics)

	r.Add(f.snapshot(0), 2)
	r.Add(f.snapshot(1), 3)
	flush(t, r)

	assert.False(t, r.Stale())
	assert.Equal(t, 1, metrics.count("add"))
	assert.Equal(t, map[uuid.UUID]int{f.products[0].ID: 2}, quantities(r.Lines()))

	persisted, err := f.svc.Load(context.Background(), r.Owner())
	require.NoError(t, err)
	assert.Equal(t, quantities(persisted.Lines), quantities(r.Lines()))
}

func TestReconcilerTracksPendingWrites(t *testing.T) {
	f := newFixture(t)
	remote := &scriptedRemote{
		Remote:  localRemote(t, f),
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	r := newTestReconciler(t, remote, nil)
	a, b := f.products[0].ID, f.products[1].ID

	r.Add(f.snapshot(0), 1)
	<-remote.entered
	r.Add(f.snapshot(1), 1)
	r.Add(f.snapshot(1), 1)

	assert.Equal(t, 1, r.Pending(a))
	assert.Equal(t, 2, r.Pending(b))
	assert.Equal(t, 3, r.Count())

	close(remote.gate)
	flush(t, r)
	assert.Zero(t, r.Pending(a))
	assert.Zero(t, r.Pending(b))
	assert.Equal(t, 3, remote.addCalls())
}

func TestReconcilerClearDropsQueuedWrites(t *testing.T) {
	f := newFixture(t)
	remote := &scriptedRemote{
		Remote:  localRemote(t, f),
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	r := newTestReconciler(t, remote, nil)
	b := f.products[1].ID

	r.Add(f.snapshot(0), 1)
	<-remote.entered
	r.Add(f.snapshot(1), 2)
	r.UpdateQuantity(b, 4)

	done := make(chan error, 1)
	go func() { done <- r.Clear(context.Background()) }()

	require.Eventually(t, func() bool { return r.Pending(b) == 0 }, time.Second, 5*time.Millisecond)
	close(remote.gate)
	require.NoError(t, <-done)

	assert.Equal(t, 1, remote.addCalls())
	assert.Empty(t, r.Lines())
	persisted, err := f.svc.Load(context.Background(), r.Owner())
	require.NoError(t, err)
	assert.Empty(t, persisted.Lines)
}

func TestReconcilerMergeKeepsPendingLines(t *testing.T) {
	a := Product{ID: uuid.New(), Price: decimal.NewFromInt(1)}
	b := Product{ID: uuid.New(), Price: decimal.NewFromInt(2)}
	r := &Reconciler{
		lines:   []Line{{Product: a, Quantity: 5}},
		pending: map[uuid.UUID]int{a.ID: 1},
		stale:   true,
	}

	r.merge([]Line{{Product: a, Quantity: 1}, {Product: b, Quantity: 2}})

	assert.Equal(t, map[uuid.UUID]int{a.ID: 5, b.ID: 2}, quantities(r.lines))
	assert.True(t, r.stale)

	delete(r.pending, a.ID)
	r.merge([]Line{{Product: a, Quantity: 1}})
	assert.Equal(t, map[uuid.UUID]int{a.ID: 1}, quantities(r.lines))
	assert.False(t, r.stale)
}

func TestNewReconcilerValidates(t *testing.T) {
	_, err := NewReconciler(nil, "owner", ReconcilerConfig{})
	require.Error(t, err)
	_, err = NewReconciler(&LocalRemote{}, "", ReconcilerConfig{})
	require.Error(t, err)
}

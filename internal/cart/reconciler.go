package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

const defaultWriteTimeout = 10 * time.Second

type opKind string

const (
	opAdd    opKind = "add"
	opUpdate opKind = "update"
	opRemove opKind = "remove"
)

type op struct {
	kind      opKind
	productID uuid.UUID
	qty       int
}

// FailureRecorder counts remote writes that failed after a local update.
type FailureRecorder interface {
	CartRemoteFailure(op string)
}

// ReconcilerConfig tunes a Reconciler. Zero values fall back to defaults.
type ReconcilerConfig struct {
	WriteTimeout time.Duration
	Logger       *logger.Logger
	Metrics      FailureRecorder
}

// Reconciler keeps an optimistic local copy of one owner's cart and replays
// every local change against the Remote in the order it was made.
//
// Local state changes first and callers never wait on the remote for Add,
// UpdateQuantity or Remove. A failed remote write marks the reconciler stale;
// once no writes are pending the remote cart is re-fetched and replaces the
// local lines.
type Reconciler struct {
	remote       Remote
	owner        string
	writeTimeout time.Duration
	logg         *logger.Logger
	metrics      FailureRecorder

	mu       sync.Mutex
	lines    []Line
	pending  map[uuid.UUID]int
	stale    bool
	queue    []op
	draining bool
	idle     chan struct{}
}

// NewReconciler builds an empty reconciler for owner. Call Load to populate it.
func NewReconciler(remote Remote, owner string, cfg ReconcilerConfig) (*Reconciler, error) {
	if remote == nil {
		return nil, fmt.Errorf("cart remote required")
	}
	if owner == "" {
		return nil, fmt.Errorf("cart owner required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	idle := make(chan struct{})
	close(idle)
	return &Reconciler{
		remote:       remote,
		owner:        owner,
		writeTimeout: cfg.WriteTimeout,
		logg:         cfg.Logger,
		metrics:      cfg.Metrics,
		pending:      map[uuid.UUID]int{},
		idle:         idle,
	}, nil
}

func (r *Reconciler) Owner() string {
	return r.owner
}

// Load waits for in-flight writes and replaces local state with the remote cart.
func (r *Reconciler) Load(ctx context.Context) error {
	if err := r.Flush(ctx); err != nil {
		return err
	}
	remote, err := r.remote.Load(ctx, r.owner)
	if err != nil {
		r.recordFailure(ctx, opKind("load"), uuid.Nil, err)
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merge(remote.Lines)
	return nil
}

// Add increments the product's line locally, creating it when missing.
func (r *Reconciler) Add(product Product, qty int) {
	if qty <= 0 || product.ID == uuid.Nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(product.ID); i >= 0 {
		r.lines[i].Quantity += qty
	} else {
		r.lines = append(r.lines, Line{Product: product, Quantity: qty})
	}
	r.enqueue(op{kind: opAdd, productID: product.ID, qty: qty})
}

// UpdateQuantity sets the exact quantity. qty <= 0 removes the line.
func (r *Reconciler) UpdateQuantity(productID uuid.UUID, qty int) {
	if qty <= 0 {
		r.Remove(productID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(productID); i >= 0 {
		r.lines[i].Quantity = qty
	} else {
		// the remote creates the row; the next re-fetch brings in its product
		r.stale = true
	}
	r.enqueue(op{kind: opUpdate, productID: productID, qty: qty})
}

func (r *Reconciler) Remove(productID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(productID); i >= 0 {
		r.lines = append(r.lines[:i], r.lines[i+1:]...)
	}
	r.enqueue(op{kind: opRemove, productID: productID})
}

// Clear drops queued writes, empties local state and clears the remote before returning.
func (r *Reconciler) Clear(ctx context.Context) error {
	r.mu.Lock()
	for _, dropped := range r.queue {
		r.release(dropped.productID)
	}
	r.queue = nil
	r.lines = nil
	r.mu.Unlock()

	if err := r.Flush(ctx); err != nil {
		return err
	}
	if err := r.remote.Clear(ctx, r.owner); err != nil {
		r.mu.Lock()
		r.stale = true
		r.mu.Unlock()
		r.recordFailure(ctx, opKind("clear"), uuid.Nil, err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
	r.stale = false
	return nil
}

// Flush blocks until every queued write and any follow-up re-fetch has finished.
func (r *Reconciler) Flush(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lines returns a copy of the local lines with subtotals filled in.
func (r *Reconciler) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return newCart(r.owner, append([]Line(nil), r.lines...)).Lines
}

func (r *Reconciler) Total() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, _ := Totals(r.lines)
	return total
}

func (r *Reconciler) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, count := Totals(r.lines)
	return count
}

// Pending reports how many remote writes for productID are queued or running.
func (r *Reconciler) Pending(productID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[productID]
}

// Stale reports whether a remote failure is waiting for a re-fetch.
func (r *Reconciler) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale
}

// indexOf and the helpers below expect r.mu to be held.
func (r *Reconciler) indexOf(productID uuid.UUID) int {
	for i := range r.lines {
		if r.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (r *Reconciler) enqueue(o op) {
	r.pending[o.productID]++
	r.queue = append(r.queue, o)
	if r.draining {
		return
	}
	r.draining = true
	r.idle = make(chan struct{})
	go r.drain(r.idle)
}

func (r *Reconciler) release(productID uuid.UUID) {
	if r.pending[productID] <= 1 {
		delete(r.pending, productID)
		return
	}
	r.pending[productID]--
}

// merge applies remote lines, keeping local values for products with writes still pending.
func (r *Reconciler) merge(remote []Line) {
	merged := make([]Line, 0, len(remote))
	for _, line := range remote {
		if r.pending[line.Product.ID] > 0 {
			continue
		}
		merged = append(merged, line)
	}
	for _, line := range r.lines {
		if r.pending[line.Product.ID] > 0 {
			merged = append(merged, line)
		}
	}
	r.lines = merged
	r.stale = len(r.pending) > 0 && r.stale
}

// drain runs queued writes one at a time so the remote sees them in local order.
func (r *Reconciler) drain(idle chan struct{}) {
	refetched := false
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			if !r.stale || refetched {
				r.draining = false
				close(idle)
				r.mu.Unlock()
				return
			}
			r.mu.Unlock()
			r.refetch()
			refetched = true
			continue
		}
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		err := r.send(next)

		r.mu.Lock()
		r.release(next.productID)
		if err != nil {
			r.stale = true
		}
		r.mu.Unlock()

		if err != nil {
			r.recordFailure(context.Background(), next.kind, next.productID, err)
		}
		refetched = false
	}
}

func (r *Reconciler) send(o op) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	switch o.kind {
	case opAdd:
		return r.remote.Add(ctx, r.owner, o.productID, o.qty)
	case opUpdate:
		return r.remote.SetQuantity(ctx, r.owner, o.productID, o.qty)
	case opRemove:
		return r.remote.Remove(ctx, r.owner, o.productID)
	default:
		return fmt.Errorf("unknown cart op %q", o.kind)
	}
}

func (r *Reconciler) refetch() {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	remote, err := r.remote.Load(ctx, r.owner)
	if err != nil {
		r.recordFailure(ctx, opKind("load"), uuid.Nil, err)
		return
	}
	r.mu.Lock()
	r.merge(remote.Lines)
	r.mu.Unlock()
}

func (r *Reconciler) recordFailure(ctx context.Context, kind opKind, productID uuid.UUID, err error) {
	fields := map[string]any{
		"owner_id": r.owner,
		"op":       string(kind),
	}
	if productID != uuid.Nil {
		fields["product_id"] = productID.String()
	}
	r.logg.Error(r.logg.WithFields(ctx, fields), "cart remote write failed", err)
	if r.metrics != nil {
		r.metrics.CartRemoteFailure(string(kind))
	}
}

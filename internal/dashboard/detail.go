package dashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/internal/orders"
)

// OrderFetcher loads one order with its lines.
type OrderFetcher interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error)
}

// DetailLoader fetches the lines of the selected order in the background.
// Only the latest selection is delivered, and nothing is delivered after Close.
// onLoaded runs under the loader lock and must not call back into it.
type DetailLoader struct {
	fetch    OrderFetcher
	onLoaded func(*orders.OrderDTO, error)

	mu      sync.Mutex
	closed  bool
	current uuid.UUID
	gen     uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDetailLoader(fetch OrderFetcher, onLoaded func(*orders.OrderDTO, error)) *DetailLoader {
	return &DetailLoader{fetch: fetch, onLoaded: onLoaded}
}

// Select starts loading id and abandons any earlier selection still in flight.
func (d *DetailLoader) Select(ctx context.Context, id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	d.current = id
	d.gen++
	gen := d.gen
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		order, err := d.fetch.GetOrder(loadCtx, id)
		d.complete(gen, order, err)
	}()
}

// Selected returns the id of the latest selection.
func (d *DetailLoader) Selected() uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Close cancels the in-flight load and waits for it to finish.
func (d *DetailLoader) Close() {
	d.mu.Lock()
	d.closed = true
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *DetailLoader) complete(gen uint64, order *orders.OrderDTO, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.gen != gen || d.onLoaded == nil {
		return
	}
	d.onLoaded(order, err)
}

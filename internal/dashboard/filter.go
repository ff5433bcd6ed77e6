// Package dashboard holds the distributor view state: the loaded orders and
// quotes, the status filters and a debounced search over them.
package dashboard

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/textsearch"
)

// DefaultDebounce is the quiet period after the last keystroke before a search applies.
const DefaultDebounce = 300 * time.Millisecond

// StatusAll disables a status filter.
const StatusAll = "all"

// View is one filtered rendering of the dashboard.
type View struct {
	Orders      []orders.OrderDTO
	Quotes      []quotes.QuoteDTO
	Declined    []quotes.DeclinedQuoteDTO
	Search      string
	OrderStatus string
	QuoteStatus string
}

type Option func(*Filter)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.delay = d
		}
	}
}

// Filter recomputes the View whenever its data or filters change and hands it
// to onChange. Status changes apply immediately; search terms are debounced.
// onChange runs while deliveries are serialized, so it must not call any
// Filter method that delivers or waits on delivery: Close, Load, the Set*
// and Upsert* methods, or AddDeclined. A callback that reacts to a view by
// changing the filter has to do so from another goroutine.
type Filter struct {
	mu       sync.Mutex
	delay    time.Duration
	onChange func(View)

	orders   []orders.OrderDTO
	quotes   []quotes.QuoteDTO
	declined []quotes.DeclinedQuoteDTO

	orderStatus string
	quoteStatus string
	search      string
	pending     string

	timer   *time.Timer
	seq     uint64
	version uint64
	closed  bool

	// deliverMu serializes callbacks and lets Close wait for one in flight.
	deliverMu sync.Mutex
	delivered uint64
}

func NewFilter(onChange func(View), opts ...Option) *Filter {
	f := &Filter{
		delay:       DefaultDebounce,
		onChange:    onChange,
		orderStatus: StatusAll,
		quoteStatus: StatusAll,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load replaces the data set. Declined quote requests are kept out of the
// active quote list.
func (f *Filter) Load(orderList []orders.OrderDTO, quoteList []quotes.QuoteDTO, declined []quotes.DeclinedQuoteDTO) {
	f.update(func() {
		f.orders = append([]orders.OrderDTO(nil), orderList...)
		f.quotes = f.quotes[:0:0]
		for _, q := range quoteList {
			if q.Status != enums.QuoteStatusDeclined {
				f.quotes = append(f.quotes, q)
			}
		}
		f.declined = append([]quotes.DeclinedQuoteDTO(nil), declined...)
	})
}

func (f *Filter) SetOrderStatus(status string) {
	f.update(func() { f.orderStatus = normalizeStatus(status) })
}

func (f *Filter) SetQuoteStatus(status string) {
	f.update(func() { f.quoteStatus = normalizeStatus(status) })
}

// SetSearch schedules term to apply after the debounce period. A newer call
// within the period replaces it, so only the last term is applied.
func (f *Filter) SetSearch(term string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.pending = strings.TrimSpace(term)
	f.seq++
	seq := f.seq
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.delay, func() { f.applySearch(seq) })
}

// UpsertOrder replaces an order after a status change, or prepends a new one.
func (f *Filter) UpsertOrder(order orders.OrderDTO) {
	f.update(func() {
		for i := range f.orders {
			if f.orders[i].ID == order.ID {
				f.orders[i] = order
				return
			}
		}
		f.orders = append([]orders.OrderDTO{order}, f.orders...)
	})
}

// UpsertQuote replaces a quote request; a declined request leaves the list.
func (f *Filter) UpsertQuote(quote quotes.QuoteDTO) {
	f.update(func() {
		for i := range f.quotes {
			if f.quotes[i].ID != quote.ID {
				continue
			}
			if quote.Status == enums.QuoteStatusDeclined {
				f.quotes = append(f.quotes[:i], f.quotes[i+1:]...)
			} else {
				f.quotes[i] = quote
			}
			return
		}
		if quote.Status != enums.QuoteStatusDeclined {
			f.quotes = append([]quotes.QuoteDTO{quote}, f.quotes...)
		}
	})
}

// AddDeclined records a decline: the archive entry is prepended and its source
// request removed from the active list.
func (f *Filter) AddDeclined(d quotes.DeclinedQuoteDTO) {
	f.update(func() {
		f.removeQuote(d.QuoteRequestID)
		f.declined = append([]quotes.DeclinedQuoteDTO{d}, f.declined...)
	})
}

// View returns the current filtered view without notifying.
func (f *Filter) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compute()
}

// Close stops pending debounced work. No callback runs after Close returns.
func (f *Filter) Close() {
	f.mu.Lock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()

	f.deliverMu.Lock()
	f.deliverMu.Unlock()
}

func (f *Filter) update(mutate func()) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	mutate()
	view := f.compute()
	f.version++
	version := f.version
	f.mu.Unlock()
	f.deliver(view, version)
}

func (f *Filter) applySearch(seq uint64) {
	f.mu.Lock()
	if f.closed || seq != f.seq {
		f.mu.Unlock()
		return
	}
	f.search = f.pending
	f.timer = nil
	view := f.compute()
	f.version++
	version := f.version
	f.mu.Unlock()
	f.deliver(view, version)
}

func (f *Filter) deliver(view View, version uint64) {
	if f.onChange == nil {
		return
	}
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	// an older view computed concurrently must not overwrite a newer one
	if closed || version <= f.delivered {
		return
	}
	f.delivered = version
	f.onChange(view)
}

func (f *Filter) removeQuote(id uuid.UUID) {
	for i := range f.quotes {
		if f.quotes[i].ID == id {
			f.quotes = append(f.quotes[:i], f.quotes[i+1:]...)
			return
		}
	}
}

func (f *Filter) compute() View {
	view := View{
		Orders:      []orders.OrderDTO{},
		Quotes:      []quotes.QuoteDTO{},
		Declined:    []quotes.DeclinedQuoteDTO{},
		Search:      f.search,
		OrderStatus: f.orderStatus,
		QuoteStatus: f.quoteStatus,
	}
	for _, o := range f.orders {
		if statusMatches(f.orderStatus, string(o.Status)) && textsearch.Match(f.search, o.OrderNumber, o.CustomerName) {
			view.Orders = append(view.Orders, o)
		}
	}
	for _, q := range f.quotes {
		if statusMatches(f.quoteStatus, string(q.Status)) && textsearch.Match(f.search, q.RequestNumber, q.CustomerName) {
			view.Quotes = append(view.Quotes, q)
		}
	}
	for _, d := range f.declined {
		if textsearch.Match(f.search, d.RequestNumber, d.CustomerName) {
			view.Declined = append(view.Declined, d)
		}
	}
	return view
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return StatusAll
	}
	return status
}

func statusMatches(filter, status string) bool {
	return filter == StatusAll || filter == status
}

package dashboard

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
)

type viewLog struct {
	mu    sync.Mutex
	views []View
	ch    chan View
}

func newViewLog() *viewLog {
	return &viewLog{ch: make(chan View, 64)}
}

func (l *viewLog) record(v View) {
	l.mu.Lock()
	l.views = append(l.views, v)
	l.mu.Unlock()
	l.ch <- v
}

func (l *viewLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.views)
}

func (l *viewLog) next(t *testing.T) View {
	t.Helper()
	select {
	case v := <-l.ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no view delivered")
		return View{}
	}
}

func fixtures() ([]orders.OrderDTO, []quotes.QuoteDTO, []quotes.DeclinedQuoteDTO) {
	orderList := []orders.OrderDTO{
		{ID: uuid.New(), OrderNumber: "ORD-1700000000001-AAAAAA", CustomerName: "José Pérez", Status: enums.OrderStatusPending},
		{ID: uuid.New(), OrderNumber: "ORD-1700000000002-BBBBBB", CustomerName: "Maria Lopez", Status: enums.OrderStatusShipped},
		{ID: uuid.New(), OrderNumber: "ORD-1700000000003-CCCCCC", CustomerName: "Joseph Kim", Status: enums.OrderStatusPending},
	}
	quoteList := []quotes.QuoteDTO{
		{ID: uuid.New(), RequestNumber: "QR-1700000000001-AAAAA", CustomerName: "Núñez Electric", Status: enums.QuoteStatusPending},
		{ID: uuid.New(), RequestNumber: "QR-1700000000002-BBBBB", CustomerName: "Lopez Supply", Status: enums.QuoteStatusQuoted},
		{ID: uuid.New(), RequestNumber: "QR-1700000000003-CCCCC", CustomerName: "Old", Status: enums.QuoteStatusDeclined},
	}
	declined := []quotes.DeclinedQuoteDTO{
		{ID: uuid.New(), QuoteRequestID: quoteList[2].ID, RequestNumber: quoteList[2].RequestNumber, CustomerName: "Old"},
	}
	return orderList, quoteList, declined
}

func TestLoadExcludesDeclinedAndAppliesStatus(t *testing.T) {
	log := newViewLog()
	f := NewFilter(log.record)
	defer f.Close()

	f.Load(fixtures())
	v := log.next(t)
	assert.Len(t, v.Orders, 3)
	assert.Len(t, v.Quotes, 2)
	assert.Len(t, v.Declined, 1)

	f.SetOrderStatus("pending")
	v = log.next(t)
	assert.Len(t, v.Orders, 2)

	f.SetQuoteStatus("quoted")
	v = log.next(t)
	require.Len(t, v.Quotes, 1)
	assert.Equal(t, "Lopez Supply", v.Quotes[0].CustomerName)

	f.SetOrderStatus("ALL")
	v = log.next(t)
	assert.Len(t, v.Orders, 3)
}

func TestSearchDebounceAppliesOnlyLastTerm(t *testing.T) {
	log := newViewLog()
	f := NewFilter(log.record, WithDebounce(40*time.Millisecond))
	defer f.Close()
	f.Load(fixtures())
	log.next(t)

	for _, term := range []string{"j", "jo", "jos", "jose p"} {
		f.SetSearch(term)
		time.Sleep(5 * time.Millisecond)
	}
	// nothing applies before the quiet period
	assert.Equal(t, "", f.View().Search)

	v := log.next(t)
	assert.Equal(t, "jose p", v.Search)
	require.Len(t, v.Orders, 1)
	assert.Equal(t, "José Pérez", v.Orders[0].CustomerName)

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 2, log.count())
}

func TestSearchMatchesNumbersAndFoldsAccents(t *testing.T) {
	log := newViewLog()
	f := NewFilter(log.record, WithDebounce(10*time.Millisecond))
	defer f.Close()
	f.Load(fixtures())
	log.next(t)

	f.SetSearch("NUNEZ")
	v := log.next(t)
	require.Len(t, v.Quotes, 1)
	assert.Empty(t, v.Orders)

	f.SetSearch("bbbbb")
	v = log.next(t)
	assert.Len(t, v.Orders, 1)
	assert.Len(t, v.Quotes, 1)

	f.SetSearch("  ")
	v = log.next(t)
	assert.Len(t, v.Orders, 3)
}

func TestCloseDropsPendingSearch(t *testing.T) {
	log := newViewLog()
	f := NewFilter(log.record, WithDebounce(30*time.Millisecond))
	f.Load(fixtures())
	log.next(t)

	f.SetSearch("maria")
	f.Close()
	time.Sleep(100 * time.Millisecond)

	f.SetOrderStatus("shipped")
	f.UpsertOrder(orders.OrderDTO{ID: uuid.New()})
	assert.Equal(t, 1, log.count())
}

func TestUpsertAndDecline(t *testing.T) {
	log := newViewLog()
	f := NewFilter(log.record)
	defer f.Close()
	orderList, quoteList, _ := fixtures()
	f.Load(orderList, quoteList, nil)
	log.next(t)

	shipped := orderList[0]
	shipped.Status = enums.OrderStatusShipped
	f.UpsertOrder(shipped)
	v := log.next(t)
	assert.Len(t, v.Orders, 3)
	assert.Equal(t, enums.OrderStatusShipped, v.Orders[0].Status)

	quoted := quoteList[0]
	quoted.Status = enums.QuoteStatusQuoted
	f.UpsertQuote(quoted)
	v = log.next(t)
	assert.Equal(t, enums.QuoteStatusQuoted, v.Quotes[0].Status)

	f.AddDeclined(quotes.DeclinedQuoteDTO{ID: uuid.New(), QuoteRequestID: quoted.ID, CustomerName: quoted.CustomerName})
	v = log.next(t)
	require.Len(t, v.Quotes, 1)
	assert.NotEqual(t, quoted.ID, v.Quotes[0].ID)
	assert.Len(t, v.Declined, 1)
}

func TestCallbackCanChangeFilterFromAnotherGoroutine(t *testing.T) {
	log := newViewLog()
	var f *Filter
	var once sync.Once
	f = NewFilter(func(v View) {
		log.record(v)
		// narrowing after the first load, as a view restoring saved filters would
		once.Do(func() { go f.SetOrderStatus("shipped") })
	})
	defer f.Close()

	orderList, quoteList, declined := fixtures()
	f.Load(orderList, quoteList, declined)
	assert.Len(t, log.next(t).Orders, 3)

	v := log.next(t)
	assert.Equal(t, "shipped", v.OrderStatus)
	require.Len(t, v.Orders, 1)
	assert.Equal(t, "Maria Lopez", v.Orders[0].CustomerName)
}

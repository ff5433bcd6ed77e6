package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/conduit-storefront/internal/auth"
	"github.com/angelmondragon/conduit-storefront/internal/dashboard"
	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/internal/terminal"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

var errUsage = errors.New("invalid arguments")

const dateFormat = "2006-01-02"

type distributor struct {
	env      *terminal.Env
	debounce time.Duration
}

func newDistributor(e *terminal.Env) *distributor {
	// nothing is typed interactively, so the search applies right away
	return &distributor{env: e, debounce: time.Millisecond}
}

func (d *distributor) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "summary":
		return d.summary(ctx, args)
	case "orders":
		return d.listOrders(ctx, args)
	case "order":
		return d.showOrder(ctx, args)
	case "transition":
		return d.transition(ctx, args)
	case "quotes":
		return d.listQuotes(ctx, args)
	case "quote":
		return d.showQuote(ctx, args)
	case "price":
		return d.price(ctx, args)
	case "accept":
		return d.accept(ctx, args)
	case "decline":
		return d.decline(ctx, args)
	case "declined":
		return d.listDeclined(ctx, args)
	case "declined-quote":
		return d.showDeclined(ctx, args)
	case "login":
		return d.login(ctx, args)
	case "logout":
		return d.env.SignOut(ctx)
	case "refresh":
		return d.env.Refresh(ctx)
	default:
		return errUsage
	}
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(args []string, i int) (uuid.UUID, error) {
	if len(args) <= i {
		return uuid.Nil, errUsage
	}
	id, err := uuid.Parse(strings.TrimSpace(args[i]))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", args[i])
	}
	return id, nil
}

// viewQuery is what a listing command asks of the dashboard filter.
type viewQuery struct {
	orderStatus string
	quoteStatus string
	search      string
}

func (q viewQuery) validate() error {
	if s := normalize(q.orderStatus); s != "" && s != dashboard.StatusAll {
		if _, err := enums.ParseOrderStatus(s); err != nil {
			return err
		}
	}
	if s := normalize(q.quoteStatus); s != "" && s != dashboard.StatusAll {
		if _, err := enums.ParseQuoteStatus(s); err != nil {
			return err
		}
	}
	return nil
}

func normalize(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// filtered runs the loaded lists through a dashboard Filter and waits for the
// view that carries the requested search term.
func (d *distributor) filtered(ctx context.Context, q viewQuery, orderList []orders.OrderDTO, quoteList []quotes.QuoteDTO, declined []quotes.DeclinedQuoteDTO) (dashboard.View, error) {
	views := make(chan dashboard.View, 8)
	filter := dashboard.NewFilter(func(v dashboard.View) {
		select {
		case views <- v:
		default:
		}
	}, dashboard.WithDebounce(d.debounce))
	defer filter.Close()

	filter.Load(orderList, quoteList, declined)
	filter.SetOrderStatus(q.orderStatus)
	filter.SetQuoteStatus(q.quoteStatus)

	term := strings.TrimSpace(q.search)
	if term == "" {
		return filter.View(), nil
	}
	filter.SetSearch(term)
	for {
		select {
		case v := <-views:
			if v.Search == term {
				return v, nil
			}
		case <-ctx.Done():
			return dashboard.View{}, ctx.Err()
		}
	}
}

func (d *distributor) summary(ctx context.Context, args []string) error {
	fs := newFlags("summary")
	search := fs.String("q", "", "search term")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var (
		orderList []orders.OrderDTO
		quoteList []quotes.QuoteDTO
		declined  []quotes.DeclinedQuoteDTO
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orderList, err = d.env.API.ListAllOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		quoteList, err = d.env.API.ListAllQuotes(gctx)
		return err
	})
	g.Go(func() (err error) {
		declined, err = d.env.API.ListDeclined(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	view, err := d.filtered(ctx, viewQuery{search: *search}, orderList, quoteList, declined)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, 12)
	for _, status := range enums.OrderStatuses() {
		count := 0
		for _, o := range view.Orders {
			if o.Status == status {
				count++
			}
		}
		rows = append(rows, []string{"order", string(status), strconv.Itoa(count)})
	}
	for _, status := range enums.ActiveQuoteStatuses() {
		count := 0
		for _, q := range view.Quotes {
			if q.Status == status {
				count++
			}
		}
		rows = append(rows, []string{"quote", string(status), strconv.Itoa(count)})
	}
	rows = append(rows, []string{"quote", string(enums.QuoteStatusDeclined), strconv.Itoa(len(view.Declined))})
	return terminal.Table(d.env.Out, []string{"KIND", "STATUS", "COUNT"}, rows)
}

func (d *distributor) listOrders(ctx context.Context, args []string) error {
	fs := newFlags("orders")
	q := viewQuery{}
	fs.StringVar(&q.orderStatus, "status", dashboard.StatusAll, "order status")
	fs.StringVar(&q.search, "q", "", "search term")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := q.validate(); err != nil {
		return err
	}

	list, err := d.env.API.ListAllOrders(ctx)
	if err != nil {
		return err
	}
	view, err := d.filtered(ctx, q, list, nil, nil)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(view.Orders))
	for _, o := range view.Orders {
		rows = append(rows, []string{
			o.ID.String(),
			o.OrderNumber,
			terminal.Truncate(o.CustomerName, 28),
			string(o.Status),
			terminal.Money(o.TotalAmount),
			o.CreatedAt.Format(dateFormat),
		})
	}
	return terminal.Table(d.env.Out, []string{"ID", "ORDER", "CUSTOMER", "STATUS", "TOTAL", "PLACED"}, rows)
}

type loadedOrder struct {
	order *orders.OrderDTO
	err   error
}

func (d *distributor) showOrder(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}

	done := make(chan loadedOrder, 1)
	loader := dashboard.NewDetailLoader(d.env.API, func(o *orders.OrderDTO, err error) {
		done <- loadedOrder{order: o, err: err}
	})
	defer loader.Close()
	loader.Select(ctx, id)

	var res loadedOrder
	select {
	case res = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.err != nil {
		return res.err
	}
	d.printOrder(res.order)
	return nil
}

func (d *distributor) printOrder(o *orders.OrderDTO) {
	addr := o.ShippingAddress
	d.env.Printf("%s  %s  placed %s\n", o.OrderNumber, o.Status, o.CreatedAt.Format(dateFormat))
	d.env.Printf("%s <%s> %s\n", o.CustomerName, o.CustomerEmail, o.CustomerPhone)
	d.env.Printf("%s, %s, %s %s, %s\n", addr.Street, addr.City, addr.State, addr.Zip, addr.Country)
	if o.Notes != nil && *o.Notes != "" {
		d.env.Printf("notes: %s\n", *o.Notes)
	}
	d.env.Printf("\n")

	rows := make([][]string, 0, len(o.Lines)+1)
	for _, l := range o.Lines {
		rows = append(rows, []string{l.ProductSKU, terminal.Truncate(l.ProductName, 40), strconv.Itoa(l.Quantity), terminal.Money(l.UnitPrice), terminal.Money(l.Subtotal)})
	}
	rows = append(rows, []string{"", "TOTAL", "", "", terminal.Money(o.TotalAmount)})
	_ = terminal.Table(d.env.Out, []string{"SKU", "PRODUCT", "QTY", "UNIT", "SUBTOTAL"}, rows)
}

func (d *distributor) transition(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return errUsage
	}
	status, err := enums.ParseOrderStatus(normalize(args[1]))
	if err != nil {
		return err
	}
	order, err := d.env.API.TransitionOrder(ctx, id, string(status))
	if err != nil {
		return err
	}
	d.env.Printf("order %s is %s\n", order.OrderNumber, order.Status)
	return nil
}

func (d *distributor) listQuotes(ctx context.Context, args []string) error {
	fs := newFlags("quotes")
	q := viewQuery{}
	fs.StringVar(&q.quoteStatus, "status", dashboard.StatusAll, "quote status")
	fs.StringVar(&q.search, "q", "", "search term")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := q.validate(); err != nil {
		return err
	}

	list, err := d.env.API.ListAllQuotes(ctx)
	if err != nil {
		return err
	}
	view, err := d.filtered(ctx, q, nil, list, nil)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(view.Quotes))
	for _, qr := range view.Quotes {
		rows = append(rows, []string{
			qr.ID.String(),
			qr.RequestNumber,
			terminal.Truncate(qr.CustomerName, 28),
			string(qr.Status),
			strconv.Itoa(len(qr.Items)),
			quotedPrice(qr.QuotedPrice),
			qr.CreatedAt.Format(dateFormat),
		})
	}
	return terminal.Table(d.env.Out, []string{"ID", "REQUEST", "CUSTOMER", "STATUS", "ITEMS", "QUOTED", "RECEIVED"}, rows)
}

func quotedPrice(p *decimal.Decimal) string {
	if p == nil {
		return "-"
	}
	return terminal.Money(*p)
}

func (d *distributor) showQuote(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	q, err := d.env.API.GetQuote(ctx, id)
	if err != nil {
		return err
	}
	d.env.Printf("%s  %s  received %s\n", q.RequestNumber, q.Status, q.CreatedAt.Format(dateFormat))
	d.env.Printf("%s <%s> %s\n", q.CustomerName, q.CustomerEmail, q.CustomerPhone)
	if q.CompanyName != nil {
		d.env.Printf("company: %s\n", *q.CompanyName)
	}
	d.env.Printf("quoted: %s\n", quotedPrice(q.QuotedPrice))
	if q.Message != "" {
		d.env.Printf("\n%s\n", q.Message)
	}
	d.env.Printf("\n")
	return d.printItems(q.Items)
}

func (d *distributor) printItems(items types.QuoteItems) error {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.ProductID.String(), terminal.Truncate(it.ProductName, 40), strconv.Itoa(it.Quantity)})
	}
	return terminal.Table(d.env.Out, []string{"PRODUCT", "NAME", "QTY"}, rows)
}

func (d *distributor) price(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return errUsage
	}
	amount, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(args[1]), "$"))
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[1])
	}
	q, err := d.env.API.SetQuoted(ctx, id, amount)
	if err != nil {
		return err
	}
	d.env.Printf("quote %s is %s at %s\n", q.RequestNumber, q.Status, quotedPrice(q.QuotedPrice))
	return nil
}

func (d *distributor) accept(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	q, err := d.env.API.AcceptQuote(ctx, id)
	if err != nil {
		return err
	}
	d.env.Printf("quote %s is %s\n", q.RequestNumber, q.Status)
	return nil
}

func (d *distributor) decline(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	fs := newFlags("decline")
	reason := fs.String("reason", "", "reason shown in the archive")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	archived, err := d.env.API.DeclineQuote(ctx, id, *reason)
	if err != nil {
		return err
	}
	d.env.Printf("quote %s declined and archived as %s\n", archived.RequestNumber, archived.ID)
	return nil
}

func (d *distributor) listDeclined(ctx context.Context, args []string) error {
	fs := newFlags("declined")
	q := viewQuery{}
	fs.StringVar(&q.search, "q", "", "search term")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	list, err := d.env.API.ListDeclined(ctx, "")
	if err != nil {
		return err
	}
	view, err := d.filtered(ctx, q, nil, nil, list)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(view.Declined))
	for _, dq := range view.Declined {
		rows = append(rows, []string{
			dq.ID.String(),
			dq.RequestNumber,
			terminal.Truncate(dq.CustomerName, 28),
			terminal.Truncate(dq.DeclinedReason, 40),
			dq.DeclinedAt.Format(dateFormat),
		})
	}
	return terminal.Table(d.env.Out, []string{"ID", "REQUEST", "CUSTOMER", "REASON", "DECLINED"}, rows)
}

func (d *distributor) showDeclined(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	dq, err := d.env.API.GetDeclined(ctx, id)
	if err != nil {
		return err
	}
	d.env.Printf("%s  declined %s\n", dq.RequestNumber, dq.DeclinedAt.Format(dateFormat))
	d.env.Printf("%s <%s> %s\n", dq.CustomerName, dq.CustomerEmail, dq.CustomerPhone)
	if dq.DeclinedReason != "" {
		d.env.Printf("reason: %s\n", dq.DeclinedReason)
	}
	d.env.Printf("\n")
	return d.printItems(dq.Items)
}

func (d *distributor) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return errUsage
	}
	resp, err := d.env.API.Login(ctx, auth.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	return d.env.SignIn(resp)
}

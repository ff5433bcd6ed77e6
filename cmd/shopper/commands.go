package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/internal/auth"
	"github.com/angelmondragon/conduit-storefront/internal/cart"
	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/internal/products"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/internal/terminal"
	"github.com/angelmondragon/conduit-storefront/pkg/apiclient"
	"github.com/angelmondragon/conduit-storefront/pkg/clientstate"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

var errUsage = errors.New("invalid arguments")

type shopper struct {
	env *terminal.Env
}

func newShopper(e *terminal.Env) *shopper {
	return &shopper{env: e}
}

func (s *shopper) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "categories":
		return s.categories(ctx)
	case "products":
		return s.products(ctx, args)
	case "product":
		return s.product(ctx, args)
	case "cart":
		return s.showCart(ctx)
	case "add", "set", "remove", "clear":
		return s.editCart(ctx, command, args)
	case "checkout":
		return s.checkout(ctx, args)
	case "quote":
		return s.submitQuote(ctx, args)
	case "quotes":
		return s.myQuotes(ctx)
	case "orders":
		return s.myOrders(ctx)
	case "cancel":
		return s.cancel(ctx, args)
	case "register":
		return s.register(ctx, args)
	case "login":
		return s.login(ctx, args)
	case "logout":
		return s.env.SignOut(ctx)
	case "refresh":
		return s.env.Refresh(ctx)
	case "magic-link":
		return s.magicLink(ctx, args)
	case "magic-complete":
		return s.magicComplete(ctx, args)
	case "theme":
		return s.theme(args)
	case "whoami":
		return s.whoami()
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

func (s *shopper) categories(ctx context.Context) error {
	list, err := s.env.API.ListCategories(ctx, 0)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{c.ID.String(), c.Name, terminal.Truncate(c.Description, 60)})
	}
	return terminal.Table(s.env.Out, []string{"ID", "NAME", "DESCRIPTION"}, rows)
}

func (s *shopper) products(ctx context.Context, args []string) error {
	fs := newFlags("products")
	featured := fs.Bool("featured", false, "featured products only")
	category := fs.String("category", "", "category id")
	limit := fs.Int("limit", 0, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	q := apiclient.ProductQuery{Featured: *featured, Limit: *limit}
	if *category != "" {
		id, err := uuid.Parse(*category)
		if err != nil {
			return fmt.Errorf("invalid category %q", *category)
		}
		q.CategoryID = &id
	}
	list, err := s.env.API.ListProducts(ctx, q)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{p.ID.String(), p.SKU, terminal.Truncate(p.Name, 40), terminal.Money(p.Price) + "/" + p.Unit})
	}
	return terminal.Table(s.env.Out, []string{"ID", "SKU", "NAME", "PRICE"}, rows)
}

func (s *shopper) product(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	p, err := s.env.API.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	s.env.Printf("%s  %s\n%s per %s  (min %d, %d in stock)\n", p.SKU, p.Name, terminal.Money(p.Price), p.Unit, p.MinOrderQuantity, p.StockQuantity)
	if p.Description != "" {
		s.env.Printf("\n%s\n", p.Description)
	}
	return nil
}

// reconciler loads the current cart into a Reconciler bound to this client's owner.
func (s *shopper) reconciler(ctx context.Context) (*cart.Reconciler, error) {
	owner, err := s.env.State.OwnerID()
	if err != nil {
		return nil, err
	}
	r, err := cart.NewReconciler(s.env.API, owner, cart.ReconcilerConfig{
		WriteTimeout: s.env.Config.RequestTimeout,
		Logger:       s.env.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *shopper) showCart(ctx context.Context) error {
	r, err := s.reconciler(ctx)
	if err != nil {
		return err
	}
	return s.printCart(r)
}

func (s *shopper) printCart(r *cart.Reconciler) error {
	lines := r.Lines()
	if len(lines) == 0 {
		s.env.Printf("cart is empty\n")
		return nil
	}
	rows := make([][]string, 0, len(lines)+1)
	for _, l := range lines {
		rows = append(rows, []string{l.Product.SKU, terminal.Truncate(l.Product.Name, 40), strconv.Itoa(l.Quantity), terminal.Money(l.Subtotal)})
	}
	rows = append(rows, []string{"", "TOTAL", strconv.Itoa(r.Count()), terminal.Money(r.Total())})
	return terminal.Table(s.env.Out, []string{"SKU", "NAME", "QTY", "SUBTOTAL"}, rows)
}

func (s *shopper) editCart(ctx context.Context, command string, args []string) error {
	r, err := s.reconciler(ctx)
	if err != nil {
		return err
	}

	switch command {
	case "clear":
		if err := r.Clear(ctx); err != nil {
			return err
		}
		return s.printCart(r)
	case "add":
		id, err := parseID(args, 0)
		if err != nil {
			return err
		}
		qty := 1
		if len(args) > 1 {
			if qty, err = strconv.Atoi(args[1]); err != nil || qty <= 0 {
				return fmt.Errorf("quantity must be a positive integer")
			}
		}
		p, err := s.env.API.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		r.Add(cartProduct(p), qty)
	case "set":
		id, err := parseID(args, 0)
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return errUsage
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil || qty < 0 {
			return fmt.Errorf("quantity must be zero or more")
		}
		r.UpdateQuantity(id, qty)
	case "remove":
		id, err := parseID(args, 0)
		if err != nil {
			return err
		}
		r.Remove(id)
	}

	if err := r.Flush(ctx); err != nil {
		return err
	}
	if r.Stale() {
		s.env.Printf("warning: the server rejected a change; showing the saved cart\n")
	}
	return s.printCart(r)
}

func cartProduct(p *products.ProductDTO) cart.Product {
	return cart.Product{
		ID:       p.ID,
		Name:     p.Name,
		SKU:      p.SKU,
		Unit:     p.Unit,
		Price:    p.Price,
		ImageURL: p.ImageURL,
	}
}

func (s *shopper) checkout(ctx context.Context, args []string) error {
	fs := newFlags("checkout")
	var input orders.CheckoutInput
	var notes string
	fs.StringVar(&input.CustomerName, "name", "", "")
	fs.StringVar(&input.CustomerEmail, "email", "", "")
	fs.StringVar(&input.CustomerPhone, "phone", "", "")
	fs.StringVar(&input.ShippingAddress.Street, "street", "", "")
	fs.StringVar(&input.ShippingAddress.City, "city", "", "")
	fs.StringVar(&input.ShippingAddress.State, "state", "", "")
	fs.StringVar(&input.ShippingAddress.Zip, "zip", "", "")
	fs.StringVar(&input.ShippingAddress.Country, "country", "", "")
	fs.StringVar(&notes, "notes", "", "")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if notes != "" {
		input.Notes = &notes
	}

	owner, err := s.env.State.OwnerID()
	if err != nil {
		return err
	}
	order, err := s.env.API.PlaceOrder(ctx, owner, uuid.NewString(), input)
	if err != nil {
		return err
	}
	s.env.Printf("order %s placed: %s (%s)\n", order.OrderNumber, terminal.Money(order.TotalAmount), order.Status)
	return nil
}

// parseItems reads "ID:QTY,ID:QTY".
func parseItems(raw string) ([]types.QuoteItem, error) {
	var items []types.QuoteItem
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idRaw, qtyRaw, found := strings.Cut(part, ":")
		if !found {
			qtyRaw = "1"
		}
		id, err := uuid.Parse(strings.TrimSpace(idRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q", idRaw)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyRaw))
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("invalid quantity %q", qtyRaw)
		}
		items = append(items, types.QuoteItem{ProductID: id, Quantity: qty})
	}
	if len(items) == 0 {
		return nil, errors.New("at least one item is required")
	}
	return items, nil
}

func (s *shopper) submitQuote(ctx context.Context, args []string) error {
	fs := newFlags("quote")
	var input quotes.QuoteInput
	var company, items string
	fs.StringVar(&input.CustomerName, "name", "", "")
	fs.StringVar(&input.CustomerEmail, "email", "", "")
	fs.StringVar(&input.CustomerPhone, "phone", "", "")
	fs.StringVar(&input.Message, "message", "", "")
	fs.StringVar(&company, "company", "", "")
	fs.StringVar(&items, "items", "", "")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	parsed, err := parseItems(items)
	if err != nil {
		return err
	}
	input.Items = parsed
	if company != "" {
		input.CompanyName = &company
	}

	quote, err := s.env.API.SubmitQuote(ctx, uuid.NewString(), input)
	if err != nil {
		return err
	}
	s.env.Printf("quote request %s submitted (%s)\n", quote.RequestNumber, quote.Status)
	return nil
}

func (s *shopper) myQuotes(ctx context.Context) error {
	list, err := s.env.API.MyQuotes(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, q := range list {
		price := "-"
		if q.QuotedPrice != nil {
			price = terminal.Money(*q.QuotedPrice)
		}
		rows = append(rows, []string{q.RequestNumber, string(q.Status), strconv.Itoa(len(q.Items)), price, q.CreatedAt.Format("2006-01-02")})
	}
	return terminal.Table(s.env.Out, []string{"REQUEST", "STATUS", "ITEMS", "QUOTED", "CREATED"}, rows)
}

func (s *shopper) myOrders(ctx context.Context) error {
	list, err := s.env.API.MyOrders(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list))
	for _, o := range list {
		rows = append(rows, []string{o.ID.String(), o.OrderNumber, string(o.Status), terminal.Money(o.TotalAmount), o.CreatedAt.Format("2006-01-02")})
	}
	return terminal.Table(s.env.Out, []string{"ID", "ORDER", "STATUS", "TOTAL", "PLACED"}, rows)
}

func (s *shopper) cancel(ctx context.Context, args []string) error {
	id, err := parseID(args, 0)
	if err != nil {
		return err
	}
	order, err := s.env.API.CancelOrder(ctx, id)
	if err != nil {
		return err
	}
	s.env.Printf("order %s is %s\n", order.OrderNumber, order.Status)
	return nil
}

func credentials(name string, args []string) (string, string, error) {
	fs := newFlags(name)
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return "", "", errUsage
	}
	return *email, *password, nil
}

func (s *shopper) register(ctx context.Context, args []string) error {
	email, password, err := credentials("register", args)
	if err != nil {
		return err
	}
	user, err := s.env.API.Register(ctx, auth.RegisterRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	s.env.Printf("registered %s; run login to sign in\n", user.Email)
	return nil
}

func (s *shopper) login(ctx context.Context, args []string) error {
	email, password, err := credentials("login", args)
	if err != nil {
		return err
	}
	resp, err := s.env.API.Login(ctx, auth.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.env.SignIn(resp)
}

func (s *shopper) magicLink(ctx context.Context, args []string) error {
	fs := newFlags("magic-link")
	email := fs.String("email", "", "")
	if err := fs.Parse(args); err != nil || *email == "" {
		return errUsage
	}
	if err := s.env.API.SendMagicLink(ctx, auth.MagicLinkRequest{Email: *email}); err != nil {
		return err
	}
	return s.env.State.Set(clientstate.KeyMagicLinkEmail, *email)
}

func (s *shopper) magicComplete(ctx context.Context, args []string) error {
	fs := newFlags("magic-complete")
	email := fs.String("email", "", "")
	token := fs.String("token", "", "")
	if err := fs.Parse(args); err != nil || *token == "" {
		return errUsage
	}
	if *email == "" {
		*email = s.env.State.Get(clientstate.KeyMagicLinkEmail)
	}
	if *email == "" {
		return errUsage
	}
	resp, err := s.env.API.CompleteMagicLink(ctx, auth.MagicLinkCompleteRequest{Email: *email, Token: *token})
	if err != nil {
		return err
	}
	if err := s.env.State.Set(clientstate.KeyMagicLinkEmail, ""); err != nil {
		return err
	}
	return s.env.SignIn(resp)
}

func (s *shopper) theme(args []string) error {
	if len(args) == 0 {
		s.env.Printf("%s\n", s.env.State.Theme())
		return nil
	}
	return s.env.State.SetTheme(args[0])
}

func (s *shopper) whoami() error {
	session := s.env.State.Session()
	owner, err := s.env.State.OwnerID()
	if err != nil {
		return err
	}
	if !session.Authenticated() {
		s.env.Printf("anonymous (cart owner %s)\n", owner)
		return nil
	}
	s.env.Printf("user %s (%s), cart owner %s\n", session.UserID, session.Role, owner)
	return nil
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/internal/cart"
	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/pkg/auth"
	"github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/conduit-storefront/pkg/errors"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox/payloads"
	"github.com/angelmondragon/conduit-storefront/pkg/pagination"
	"github.com/angelmondragon/conduit-storefront/pkg/textsearch"
)

const (
	numberAttempts      = 3
	msgCartEmpty        = "cart is empty"
	msgOrderNotFound    = "order not found"
	msgConcurrentChange = "order status changed concurrently"
)

// CartSource is the part of the cart service checkout depends on.
type CartSource interface {
	Load(ctx context.Context, owner string) (*cart.Cart, error)
	Clear(ctx context.Context, owner string) error
}

// Recorder receives order lifecycle counters.
type Recorder interface {
	OrderPlaced()
	OrderTransition(from, to string)
}

// Service covers checkout and the order status workflow.
type Service interface {
	Place(ctx context.Context, owner string, principal *auth.Principal, input CheckoutInput) (*OrderDTO, error)
	Transition(ctx context.Context, actor *auth.Principal, orderID uuid.UUID, to string) (*OrderDTO, error)
	CancelByCustomer(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	List(ctx context.Context, params ListParams) (pagination.Page[OrderDTO], error)
}

type service struct {
	repo    Repository
	carts   CartSource
	tx      db.TxRunner
	outbox  outbox.Emitter
	metrics Recorder
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service. metrics may be nil.
func NewService(repository Repository, carts CartSource, tx db.TxRunner, emitter outbox.Emitter, metrics Recorder, logg *logger.Logger) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    repository,
		carts:   carts,
		tx:      tx,
		outbox:  emitter,
		metrics: metrics,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Place(ctx context.Context, owner string, principal *auth.Principal, input CheckoutInput) (*OrderDTO, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	input, err := normalizeCheckout(input)
	if err != nil {
		return nil, err
	}

	current, err := s.carts.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if current == nil || len(current.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgCartEmpty)
	}

	var placed *models.Order
	var lines []models.OrderLine
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		placed, lines, err = s.place(ctx, owner, principal, input, current)
		if err == nil || !errors.Is(err, repo.ErrDuplicate) {
			break
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order number collision; retrying")
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}

	if s.metrics != nil {
		s.metrics.OrderPlaced()
	}
	logCtx := s.logg.WithOrderNumber(s.logg.WithOwnerID(ctx, owner), placed.OrderNumber)
	s.logg.Info(logCtx, "order placed")

	if err := s.carts.Clear(ctx, owner); err != nil {
		s.logg.Error(logCtx, "clear cart after checkout", err)
	}

	dto := toOrderDTO(*placed, lines)
	return &dto, nil
}

func (s *service) place(ctx context.Context, owner string, principal *auth.Principal, input CheckoutInput, current *cart.Cart) (*models.Order, []models.OrderLine, error) {
	now := s.now()
	number, err := NewOrderNumber(now)
	if err != nil {
		return nil, nil, err
	}

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		UserID:          principal.UserIDPtr(),
		OwnerID:         owner,
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		ShippingAddress: input.ShippingAddress,
		Status:          enums.OrderStatusPending,
		Notes:           input.Notes,
		SearchKey:       textsearch.Key(number, input.CustomerName),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	total := decimal.Zero
	lines := make([]models.OrderLine, 0, len(current.Lines))
	for _, line := range current.Lines {
		subtotal := line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(subtotal)
		lines = append(lines, models.OrderLine{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			ProductSKU:  line.Product.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.Product.Price,
			Subtotal:    subtotal,
			CreatedAt:   now,
		})
	}
	order.TotalAmount = total

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, order); err != nil {
			return err
		}
		if err := s.repo.CreateLines(ctx, lines); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(principal, owner),
			OccurredAt:    now,
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				CustomerEmail: order.CustomerEmail,
				TotalAmount:   order.TotalAmount,
				LineCount:     len(lines),
				PlacedAt:      now,
			},
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return order, lines, nil
}

func (s *service) Transition(ctx context.Context, actor *auth.Principal, orderID uuid.UUID, to string) (*OrderDTO, error) {
	target, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(to)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, order, target)
}

func (s *service) CancelByCustomer(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgOrderNotFound)
	}
	return s.transition(ctx, &auth.Principal{UserID: userID, Role: enums.UserRoleClient}, order, enums.OrderStatusCancelled)
}

func (s *service) transition(ctx context.Context, actor *auth.Principal, order *models.Order, target enums.OrderStatus) (*OrderDTO, error) {
	from := order.Status
	if err := from.ValidateTransition(target); err != nil {
		return nil, stateConflict(err)
	}

	now := s.now()
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, order.ID, from, target, now); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor, ""),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          target,
				ChangedBy:   actor.UserIDPtr(),
				ChangedAt:   now,
			},
		})
	})
	if err != nil {
		if errors.Is(err, repo.ErrStale) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, msgConcurrentChange)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	if s.metrics != nil {
		s.metrics.OrderTransition(string(from), string(target))
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderNumber(ctx, order.OrderNumber), map[string]any{
		"from": string(from),
		"to":   string(target),
	}), "order status changed")

	return s.Get(ctx, order.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.FindLines(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order lines")
	}
	dto := toOrderDTO(*order, lines)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOrderDTO(row, nil))
	}
	return out, nil
}

func (s *service) List(ctx context.Context, params ListParams) (pagination.Page[OrderDTO], error) {
	q := ListQuery{Search: params.Search, Limit: params.Limit}
	if status := strings.ToLower(strings.TrimSpace(params.Status)); status != "" && status != "all" {
		parsed, err := enums.ParseOrderStatus(status)
		if err != nil {
			return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		q.Status = &parsed
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q.Cursor = cursor

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toOrderDTO(row, nil))
	}
	return pagination.BuildPage(dtos, params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgOrderNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func normalizeCheckout(input CheckoutInput) (CheckoutInput, error) {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	input.ShippingAddress = input.ShippingAddress.Normalize()
	addr := input.ShippingAddress
	if input.Notes != nil {
		trimmed := strings.TrimSpace(*input.Notes)
		if trimmed == "" {
			input.Notes = nil
		} else {
			input.Notes = &trimmed
		}
	}

	missing := []string{}
	for field, value := range map[string]string{
		"customer_name":           input.CustomerName,
		"customer_email":          input.CustomerEmail,
		"customer_phone":          input.CustomerPhone,
		"shipping_address.street": addr.Street,
		"shipping_address.city":   addr.City,
		"shipping_address.state":  addr.State,
		"shipping_address.zip":    addr.Zip,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return input, pkgerrors.New(pkgerrors.CodeValidation, "missing checkout fields").
			WithDetails(map[string]any{"missing": missing})
	}
	if !strings.Contains(input.CustomerEmail, "@") {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "customer email is invalid")
	}
	return input, nil
}

func stateConflict(err error) error {
	var te *enums.TransitionError
	if errors.As(err, &te) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, te, te.Error()).WithDetails(te.Details())
	}
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "transition not allowed")
}

func actorRef(p *auth.Principal, owner string) *outbox.ActorRef {
	ref := &outbox.ActorRef{UserID: p.UserIDPtr(), OwnerID: owner}
	if p != nil {
		ref.Role = string(p.Role)
	}
	return ref
}

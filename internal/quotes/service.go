package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// DefaultDeclineReason is stored when a distributor declines without a reason.
const DefaultDeclineReason = "No reason provided"

const numberAttempts = 3

// Recorder receives quote lifecycle counters.
type Recorder interface {
	QuoteTransition(from, to string)
	QuoteDeclined()
}

// Service covers quote submission and the distributor quote workflow.
type Service interface {
	Submit(ctx context.Context, principal *auth.Principal, input QuoteInput) (*QuoteDTO, error)
	SetQuoted(ctx context.Context, actor *auth.Principal, id uuid.UUID, price decimal.Decimal) (*QuoteDTO, error)
	Accept(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*QuoteDTO, error)
	Decline(ctx context.Context, actor *auth.Principal, id uuid.UUID, reason string) (*DeclinedQuoteDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*QuoteDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]QuoteDTO, error)
	ListActive(ctx context.Context, params ListParams) (pagination.Page[QuoteDTO], error)
	ListDeclined(ctx context.Context, search string) ([]DeclinedQuoteDTO, error)
	GetDeclined(ctx context.Context, id uuid.UUID) (*DeclinedQuoteDTO, error)
}

type service struct {
	repo    Repository
	tx      db.TxRunner
	outbox  outbox.Emitter
	metrics Recorder
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the quote service. metrics may be nil.
func NewService(repository Repository, tx db.TxRunner, emitter outbox.Emitter, metrics Recorder, logg *logger.Logger) (Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("quotes repository required")
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
		tx:      tx,
		outbox:  emitter,
		metrics: metrics,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, principal *auth.Principal, input QuoteInput) (*QuoteDTO, error) {
	input = normalizeInput(input)
	items := validItems(input.Items)
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "add at least one product")
	}
	if input.CustomerName == "" || input.CustomerEmail == "" || input.CustomerPhone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name, email and phone are required")
	}

	var quote *models.QuoteRequest
	var err error
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		quote, err = s.submit(ctx, principal, input, items)
		if err == nil || !errors.Is(err, repo.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit quote request")
	}

	s.logg.Info(s.logg.WithRequestNumber(ctx, quote.RequestNumber), "quote request submitted")
	dto := toQuoteDTO(*quote)
	return &dto, nil
}

func (s *service) submit(ctx context.Context, principal *auth.Principal, input QuoteInput, items types.QuoteItems) (*models.QuoteRequest, error) {
	now := s.now()
	number, err := NewRequestNumber(now)
	if err != nil {
		return nil, err
	}
	quote := &models.QuoteRequest{
		ID:            uuid.New(),
		RequestNumber: number,
		UserID:        principal.UserIDPtr(),
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		CompanyName:   input.CompanyName,
		Items:         items,
		Message:       input.Message,
		Status:        enums.QuoteStatusPending,
		SearchKey:     textsearch.Key(number, input.CustomerName),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, quote); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, outbox.DomainEvent{
			EventType:     enums.EventQuoteSubmitted,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   quote.ID,
			Actor:         actorRef(principal),
			OccurredAt:    now,
			Data: payloads.QuoteSubmittedEvent{
				QuoteRequestID: quote.ID,
				RequestNumber:  quote.RequestNumber,
				ContactEmail:   quote.CustomerEmail,
				ItemCount:      len(items),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *service) SetQuoted(ctx context.Context, actor *auth.Principal, id uuid.UUID, price decimal.Decimal) (*QuoteDTO, error) {
	if !price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quoted price must be greater than zero")
	}
	price = price.Round(2)
	return s.advance(ctx, actor, id, enums.QuoteStatusQuoted, &price, enums.EventQuoteQuoted)
}

// Accept records the customer's acceptance. It has no effect beyond the status.
func (s *service) Accept(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*QuoteDTO, error) {
	return s.advance(ctx, actor, id, enums.QuoteStatusAccepted, nil, enums.EventQuoteAccepted)
}

func (s *service) advance(ctx context.Context, actor *auth.Principal, id uuid.UUID, target enums.QuoteStatus, price *decimal.Decimal, eventType enums.OutboxEventType) (*QuoteDTO, error) {
	quote, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := quote.Status
	if err := from.ValidateTransition(target); err != nil {
		return nil, stateConflict(err)
	}

	now := s.now()
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, quote.ID, from, target, price, now); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   quote.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.QuoteStatusChangedEvent{
				QuoteRequestID: quote.ID,
				RequestNumber:  quote.RequestNumber,
				From:           from,
				To:             target,
				QuotedPrice:    price,
			},
		})
	})
	if err != nil {
		return nil, writeError(err, "update quote status")
	}

	if s.metrics != nil {
		s.metrics.QuoteTransition(string(from), string(target))
	}
	s.logg.Info(s.logg.WithFields(s.logg.WithRequestNumber(ctx, quote.RequestNumber), map[string]any{
		"from": string(from),
		"to":   string(target),
	}), "quote status changed")
	return s.Get(ctx, quote.ID)
}

// Decline archives the request as a DeclinedQuote and marks it declined in one transaction.
func (s *service) Decline(ctx context.Context, actor *auth.Principal, id uuid.UUID, reason string) (*DeclinedQuoteDTO, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	quote, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := quote.Status
	if err := from.ValidateTransition(enums.QuoteStatusDeclined); err != nil {
		return nil, stateConflict(err)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultDeclineReason
	}
	now := s.now()
	declined := &models.DeclinedQuote{
		ID:             uuid.New(),
		QuoteRequestID: quote.ID,
		RequestNumber:  quote.RequestNumber,
		CustomerName:   quote.CustomerName,
		CustomerEmail:  quote.CustomerEmail,
		CustomerPhone:  quote.CustomerPhone,
		CompanyName:    quote.CompanyName,
		Items:          quote.Items,
		Message:        quote.Message,
		DeclinedReason: reason,
		DeclinedBy:     actor.UserID,
		DeclinedAt:     now,
		SearchKey:      quote.SearchKey,
		CreatedAt:      now,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateDeclined(ctx, declined); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, quote.ID, from, enums.QuoteStatusDeclined, nil, now); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, outbox.DomainEvent{
			EventType:     enums.EventQuoteDeclined,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   quote.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.QuoteDeclinedEvent{
				QuoteRequestID:  quote.ID,
				DeclinedQuoteID: declined.ID,
				RequestNumber:   quote.RequestNumber,
				Reason:          reason,
				DeclinedBy:      actor.UserID,
				DeclinedAt:      now,
			},
		})
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "quote request already declined")
		}
		return nil, writeError(err, "decline quote request")
	}

	if s.metrics != nil {
		s.metrics.QuoteTransition(string(from), string(enums.QuoteStatusDeclined))
		s.metrics.QuoteDeclined()
	}
	s.logg.Info(s.logg.WithRequestNumber(ctx, quote.RequestNumber), "quote request declined")
	dto := toDeclinedDTO(*declined)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*QuoteDTO, error) {
	quote, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toQuoteDTO(*quote)
	return &dto, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]QuoteDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user quotes")
	}
	out := make([]QuoteDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toQuoteDTO(row))
	}
	return out, nil
}

func (s *service) ListActive(ctx context.Context, params ListParams) (pagination.Page[QuoteDTO], error) {
	q := ListQuery{Search: params.Search, Limit: params.Limit}
	if status := strings.ToLower(strings.TrimSpace(params.Status)); status != "" && status != "all" {
		parsed, err := enums.ParseQuoteStatus(status)
		if err != nil {
			return pagination.Page[QuoteDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		q.Status = &parsed
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[QuoteDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q.Cursor = cursor

	rows, err := s.repo.ListActive(ctx, q)
	if err != nil {
		return pagination.Page[QuoteDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quote requests")
	}
	dtos := make([]QuoteDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toQuoteDTO(row))
	}
	return pagination.BuildPage(dtos, params.Limit, func(q QuoteDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: q.CreatedAt, ID: q.ID}
	}), nil
}

func (s *service) ListDeclined(ctx context.Context, search string) ([]DeclinedQuoteDTO, error) {
	rows, err := s.repo.ListDeclined(ctx, search)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list declined quotes")
	}
	out := make([]DeclinedQuoteDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDeclinedDTO(row))
	}
	return out, nil
}

func (s *service) GetDeclined(ctx context.Context, id uuid.UUID) (*DeclinedQuoteDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "declined quote id is required")
	}
	row, err := s.repo.FindDeclined(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "declined quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load declined quote")
	}
	dto := toDeclinedDTO(*row)
	return &dto, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote request id is required")
	}
	quote, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote request")
	}
	return quote, nil
}

func normalizeInput(input QuoteInput) QuoteInput {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	input.Message = strings.TrimSpace(input.Message)
	if input.CompanyName != nil {
		company := strings.TrimSpace(*input.CompanyName)
		if company == "" {
			input.CompanyName = nil
		} else {
			input.CompanyName = &company
		}
	}
	return input
}

// validItems drops rows without a product or with a non-positive quantity.
func validItems(items []types.QuoteItem) types.QuoteItems {
	out := make(types.QuoteItems, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			continue
		}
		item.ProductName = strings.TrimSpace(item.ProductName)
		out = append(out, item)
	}
	return out
}

func writeError(err error, msg string) error {
	if errors.Is(err, repo.ErrStale) {
		return pkgerrors.New(pkgerrors.CodeConflict, "quote request changed concurrently")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func stateConflict(err error) error {
	var te *enums.TransitionError
	if errors.As(err, &te) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, te, te.Error()).WithDetails(te.Details())
	}
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "transition not allowed")
}

func actorRef(p *auth.Principal) *outbox.ActorRef {
	ref := &outbox.ActorRef{UserID: p.UserIDPtr()}
	if p != nil {
		ref.Role = string(p.Role)
	}
	return ref
}

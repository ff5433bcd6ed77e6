package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/pkg/auth"
	"github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/db/dbtest"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/conduit-storefront/pkg/errors"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

type recorder struct {
	transitions []string
	declined    int
}

func (r *recorder) QuoteTransition(from, to string) {
	r.transitions = append(r.transitions, from+"->"+to)
}

func (r *recorder) QuoteDeclined() { r.declined++ }

type failingArchive struct {
	Repository
}

func (failingArchive) CreateDeclined(context.Context, *models.DeclinedQuote) error {
	return errors.New("archive unavailable")
}

type harness struct {
	conn    *gorm.DB
	svc     Service
	metrics *recorder
}

func newHarness(t *testing.T, wrap func(Repository) Repository) harness {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	repository := NewRepository(conn)
	if wrap != nil {
		repository = wrap(repository)
	}
	metrics := &recorder{}
	emitter := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	svc, err := NewService(repository, db.NewFromConn(conn), emitter, metrics, logger.Nop())
	require.NoError(t, err)
	return harness{conn: conn, svc: svc, metrics: metrics}
}

var distributor = &auth.Principal{UserID: uuid.New(), Role: enums.UserRoleDistributor}

func quoteInput(name string) QuoteInput {
	company := "  "
	return QuoteInput{
		CustomerName:  name,
		CustomerEmail: "buyer@example.com",
		CustomerPhone: "555-0100",
		CompanyName:   &company,
		Items: []types.QuoteItem{
			{ProductID: uuid.New(), ProductName: "PVC Conduit 20mm", Quantity: 500},
			{ProductID: uuid.New(), ProductName: "Elbow", Quantity: 0},
			{ProductName: "Unknown", Quantity: 4},
		},
		Message: " bulk order for site B ",
	}
}

func submit(t *testing.T, h harness, name string) *QuoteDTO {
	t.Helper()
	quote, err := h.svc.Submit(context.Background(), nil, quoteInput(name))
	require.NoError(t, err)
	return quote
}

func TestSubmitFiltersItems(t *testing.T) {
	h := newHarness(t, nil)
	userID := uuid.New()

	quote, err := h.svc.Submit(context.Background(), &auth.Principal{UserID: userID, Role: enums.UserRoleClient}, quoteInput("Ana"))
	require.NoError(t, err)

	assert.Regexp(t, `^QR-\d+-[A-Z0-9]{5,6}$`, quote.RequestNumber)
	assert.Equal(t, enums.QuoteStatusPending, quote.Status)
	require.Len(t, quote.Items, 1)
	assert.Equal(t, 500, quote.Items[0].Quantity)
	assert.Nil(t, quote.CompanyName)
	assert.Equal(t, "bulk order for site B", quote.Message)
	require.NotNil(t, quote.UserID)
	assert.Equal(t, userID, *quote.UserID)

	stored, err := h.svc.Get(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.Items, stored.Items)

	var events int64
	require.NoError(t, h.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventQuoteSubmitted).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestSubmitRequiresAProduct(t *testing.T) {
	h := newHarness(t, nil)
	input := quoteInput("Ana")
	input.Items = input.Items[1:]

	_, err := h.svc.Submit(context.Background(), nil, input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "add at least one product")
}

func TestQuoteLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	quote := submit(t, h, "Ana")

	quoted, err := h.svc.SetQuoted(ctx, distributor, quote.ID, decimal.RequireFromString("1200.50"))
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusQuoted, quoted.Status)
	require.NotNil(t, quoted.QuotedPrice)
	assert.True(t, decimal.RequireFromString("1200.50").Equal(*quoted.QuotedPrice))

	requoted, err := h.svc.SetQuoted(ctx, distributor, quote.ID, decimal.RequireFromString("1100"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1100).Equal(*requoted.QuotedPrice))

	accepted, err := h.svc.Accept(ctx, distributor, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusAccepted, accepted.Status)

	assert.Equal(t, []string{"pending->quoted", "quoted->quoted", "quoted->accepted"}, h.metrics.transitions)

	_, err = h.svc.Decline(ctx, distributor, quote.ID, "")
	var te *enums.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestSetQuotedRejectsNonPositivePrice(t *testing.T) {
	h := newHarness(t, nil)
	quote := submit(t, h, "Ana")

	for _, price := range []string{"0", "-5"} {
		_, err := h.svc.SetQuoted(context.Background(), distributor, quote.ID, decimal.RequireFromString(price))
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err), price)
	}
}

func TestAcceptRequiresQuote(t *testing.T) {
	h := newHarness(t, nil)
	quote := submit(t, h, "Ana")

	_, err := h.svc.Accept(context.Background(), distributor, quote.ID)
	var te *enums.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "pending", te.From)
	assert.Equal(t, "accepted", te.To)
}

func TestDeclineArchivesAndHidesFromQueue(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	kept := submit(t, h, "Maria")
	declined := submit(t, h, "Ana")

	archived, err := h.svc.Decline(ctx, distributor, declined.ID, "stock unavailable")
	require.NoError(t, err)
	assert.Equal(t, "stock unavailable", archived.DeclinedReason)
	assert.Equal(t, distributor.UserID, archived.DeclinedBy)
	assert.Equal(t, declined.RequestNumber, archived.RequestNumber)

	var rows []models.DeclinedQuote
	require.NoError(t, h.conn.Where("quote_request_id = ?", declined.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "stock unavailable", rows[0].DeclinedReason)

	for _, status := range []string{"", "all", "pending", "quoted"} {
		page, err := h.svc.ListActive(ctx, ListParams{Status: status})
		require.NoError(t, err)
		for _, q := range page.Items {
			assert.NotEqual(t, declined.ID, q.ID, status)
		}
	}
	page, err := h.svc.ListActive(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, kept.ID, page.Items[0].ID)

	source, err := h.svc.Get(ctx, declined.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusDeclined, source.Status)
	assert.Equal(t, 1, h.metrics.declined)

	_, err = h.svc.Decline(ctx, distributor, declined.ID, "again")
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestDeclineDefaultsReason(t *testing.T) {
	h := newHarness(t, nil)
	quote := submit(t, h, "Ana")

	archived, err := h.svc.Decline(context.Background(), distributor, quote.ID, "   ")
	require.NoError(t, err)
	assert.Equal(t, DefaultDeclineReason, archived.DeclinedReason)

	fetched, err := h.svc.GetDeclined(context.Background(), archived.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultDeclineReason, fetched.DeclinedReason)
}

func TestDeclineRequiresActor(t *testing.T) {
	h := newHarness(t, nil)
	quote := submit(t, h, "Ana")

	_, err := h.svc.Decline(context.Background(), nil, quote.ID, "no")
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestDeclineFailureLeavesStatusUnchanged(t *testing.T) {
	h := newHarness(t, func(r Repository) Repository { return failingArchive{Repository: r} })
	quote := submit(t, h, "Ana")

	_, err := h.svc.Decline(context.Background(), distributor, quote.ID, "stock unavailable")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))

	current, err := h.svc.Get(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusPending, current.Status)

	var archived int64
	require.NoError(t, h.conn.Model(&models.DeclinedQuote{}).Count(&archived).Error)
	assert.Zero(t, archived)
}

func TestListDeclinedNewestFirstWithSearch(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	svc := h.svc.(*service)
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	for i, name := range []string{"José Pérez", "Maria Lopez", "Jose Alvarez"} {
		quote := submit(t, h, name)
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		_, err := h.svc.Decline(ctx, distributor, quote.ID, "")
		require.NoError(t, err)
	}

	all, err := h.svc.ListDeclined(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Jose Alvarez", all[0].CustomerName)
	assert.Equal(t, "José Pérez", all[2].CustomerName)

	found, err := h.svc.ListDeclined(ctx, "jose")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = h.svc.GetDeclined(ctx, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListActiveSearchAndStatus(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	a := submit(t, h, "Núñez Electric")
	submit(t, h, "Lopez Supply")

	_, err := h.svc.SetQuoted(ctx, distributor, a.ID, decimal.NewFromInt(10))
	require.NoError(t, err)

	quoted, err := h.svc.ListActive(ctx, ListParams{Status: "quoted"})
	require.NoError(t, err)
	require.Len(t, quoted.Items, 1)
	assert.Equal(t, a.ID, quoted.Items[0].ID)

	found, err := h.svc.ListActive(ctx, ListParams{Search: "nunez"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)

	byNumber, err := h.svc.ListActive(ctx, ListParams{Search: a.RequestNumber})
	require.NoError(t, err)
	require.Len(t, byNumber.Items, 1)

	_, err = h.svc.ListActive(ctx, ListParams{Status: "archived"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestListForUser(t *testing.T) {
	h := newHarness(t, nil)
	userID := uuid.New()
	_, err := h.svc.Submit(context.Background(), &auth.Principal{UserID: userID}, quoteInput("Ana"))
	require.NoError(t, err)
	submit(t, h, "Anonymous")

	mine, err := h.svc.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestRequestNumbersDiffer(t *testing.T) {
	now := time.Now()
	a, err := NewRequestNumber(now)
	require.NoError(t, err)
	b, err := NewRequestNumber(now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^QR-\d+-[A-Z0-9]{5,6}$`, a)
}

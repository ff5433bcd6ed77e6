package enums

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	}

	for _, from := range OrderStatuses() {
		for _, to := range OrderStatuses() {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)

			err := from.ValidateTransition(to)
			if want {
				assert.NoError(t, err)
				continue
			}
			var transitionErr *TransitionError
			require.True(t, errors.As(err, &transitionErr), "%s -> %s", from, to)
			assert.Equal(t, "order", transitionErr.Entity)
			assert.Equal(t, string(from), transitionErr.From)
			assert.Equal(t, string(to), transitionErr.To)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatus("bogus").IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, got)

	_, err = ParseOrderStatus("lost")
	assert.Error(t, err)
}

func TestQuoteStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to QuoteStatus
		ok       bool
	}{
		{QuoteStatusPending, QuoteStatusQuoted, true},
		{QuoteStatusQuoted, QuoteStatusQuoted, true},
		{QuoteStatusQuoted, QuoteStatusAccepted, true},
		{QuoteStatusPending, QuoteStatusDeclined, true},
		{QuoteStatusQuoted, QuoteStatusDeclined, true},
		{QuoteStatusPending, QuoteStatusAccepted, false},
		{QuoteStatusAccepted, QuoteStatusDeclined, false},
		{QuoteStatusDeclined, QuoteStatusQuoted, false},
		{QuoteStatusAccepted, QuoteStatusQuoted, false},
	}
	for _, tc := range cases {
		err := tc.from.ValidateTransition(tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
			continue
		}
		var transitionErr *TransitionError
		assert.True(t, errors.As(err, &transitionErr), "%s -> %s", tc.from, tc.to)
	}

	assert.Equal(t, []QuoteStatus{QuoteStatusPending, QuoteStatusQuoted, QuoteStatusAccepted}, ActiveQuoteStatuses())
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("")
	require.NoError(t, err)
	assert.Equal(t, UserRoleClient, role)

	role, err = ParseUserRole(" Distributor ")
	require.NoError(t, err)
	assert.Equal(t, UserRoleDistributor, role)

	_, err = ParseUserRole("admin")
	assert.Error(t, err)
}

func TestTransitionErrorMessage(t *testing.T) {
	err := &TransitionError{Entity: "order", From: "delivered", To: "pending"}
	assert.Equal(t, `order cannot move from "delivered" to "pending"`, err.Error())
	assert.Equal(t, "delivered", err.Details()["from"])
}

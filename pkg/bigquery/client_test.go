package bigquery

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
)

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "d", EventsTable: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{EventsTable: "t"}, nil)
	assert.ErrorIs(t, err, errDatasetRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "d", EventsTable: " "}, nil)
	assert.ErrorIs(t, err, errTableNameRequired)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Ping(context.Background()), errClientNotInitialized)
	assert.ErrorIs(t, c.InsertEvents(context.Background(), []EventRow{{EventID: "x"}}), errClientNotInitialized)
	assert.NoError(t, c.Close())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestEventRowSave(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	row := EventRow{EventID: "evt-1", EventType: "order_placed", AggregateType: "order", AggregateID: "ORD-1", OccurredAt: now, Payload: "{}", IngestedAt: now}

	values, insertID, err := row.Save()
	require.NoError(t, err)
	assert.Equal(t, "evt-1", insertID)
	assert.Equal(t, "ORD-1", values["aggregate_id"])
	assert.NotContains(t, values, "actor_user_id")

	row.ActorUserID, row.ActorRole = "u-1", "admin"
	values, _, err = row.Save()
	require.NoError(t, err)
	assert.Equal(t, "admin", values["actor_role"])
}

// Package bigquery streams decoded storefront events into the analytics
// table.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/gcp"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// EventRow is one row of the storefront_events table. Actor columns are
// NULL for anonymous events.
type EventRow struct {
	EventID       string
	EventType     string
	AggregateType string
	AggregateID   string
	ActorUserID   string
	ActorRole     string
	OccurredAt    time.Time
	Payload       string
	IngestedAt    time.Time
}

// Save implements bigquery.ValueSaver. The event id is the insert id, so
// redelivered messages are dropped by streaming dedup.
func (r EventRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"event_id":       r.EventID,
		"event_type":     r.EventType,
		"aggregate_type": r.AggregateType,
		"aggregate_id":   r.AggregateID,
		"occurred_at":    r.OccurredAt,
		"payload":        r.Payload,
		"ingested_at":    r.IngestedAt,
	}
	if r.ActorUserID != "" {
		row["actor_user_id"] = r.ActorUserID
	}
	if r.ActorRole != "" {
		row["actor_role"] = r.ActorRole
	}
	return row, r.EventID, nil
}

type Client struct {
	client *bigquery.Client
	table  *bigquery.Table
}

// NewClient connects and fails fast when the dataset or table is missing.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID, datasetID, tableID := strings.TrimSpace(gcpCfg.ProjectID), strings.TrimSpace(cfg.Dataset), strings.TrimSpace(cfg.EventsTable)
	for _, req := range []struct {
		val string
		err error
	}{{projectID, errProjectIDRequired}, {datasetID, errDatasetRequired}, {tableID, errTableNameRequired}} {
		if req.val == "" {
			return nil, req.err
		}
	}

	bq, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: bq, table: bq.Dataset(datasetID).Table(tableID)}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "table", datasetID+"."+tableID), "bigquery client initialized")
	}
	return c, nil
}

// Ping checks the dataset and the table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.table == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	dataset := c.client.Dataset(c.table.DatasetID)
	if _, err := dataset.Metadata(ctx); err != nil {
		return describe("dataset", c.table.DatasetID, err)
	}
	if _, err := c.table.Metadata(ctx); err != nil {
		return describe("table", c.table.TableID, err)
	}
	return nil
}

func describe(kind, id string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, id)
	}
	return fmt.Errorf("checking %s %q: %w", kind, id, err)
}

// InsertEvents streams rows. A partial failure reports how many rows were
// rejected; callers retry the whole batch since insert ids dedupe.
func (c *Client) InsertEvents(ctx context.Context, rows []EventRow) error {
	if c == nil || c.table == nil {
		return errClientNotInitialized
	}
	if len(rows) == 0 {
		return nil
	}
	err := c.table.Inserter().Put(ctx, rows)
	var multi bigquery.PutMultiError
	if errors.As(err, &multi) {
		return fmt.Errorf("bigquery rejected %d of %d rows: %w", len(multi), len(rows), err)
	}
	return err
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

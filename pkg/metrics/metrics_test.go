package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestHTTPMetricsExportsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/v1/cart", 200, 120*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	if got := sample(t, reg, "http_requests_total", "route", "/api/v1/cart").GetCounter().GetValue(); got != 1 {
		t.Fatalf("cart requests = %f, want 1", got)
	}
	if got := sample(t, reg, "http_requests_total", "route", "unknown").GetCounter().GetValue(); got != 1 {
		t.Fatalf("empty route should count as unknown, got %f", got)
	}
	if got := sample(t, reg, "http_request_duration_seconds", "route", "/api/v1/cart").GetHistogram().GetSampleSum(); got <= 0 {
		t.Fatalf("latency sum = %f, want > 0", got)
	}
}

func TestDomainMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)
	m.OrderPlaced()
	m.OrderTransition("pending", "processing")
	m.QuoteTransition("pending", "declined")
	m.QuoteDeclined()
	m.CartRemoteFailure("add")
	m.CartRemoteFailure("add")

	if got := sample(t, reg, "storefront_order_transitions_total", "to", "processing").GetCounter().GetValue(); got != 1 {
		t.Fatalf("order transitions = %f, want 1", got)
	}
	if got := sample(t, reg, "storefront_cart_remote_failures_total", "op", "add").GetCounter().GetValue(); got != 2 {
		t.Fatalf("cart failures = %f, want 2", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewDomainMetrics(nil).OrderPlaced()
	NewOutboxMetrics(nil).Published("order.placed")
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
	NewJobMetrics(nil).Observe("outbox-retention", time.Second, nil)
	var m *DomainMetrics
	m.CartRemoteFailure("load")
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObserveBatch(50 * time.Millisecond)
	m.Published("order.placed")
	m.Failed("order.placed")
	m.DeadLettered("quote.declined")

	if got := sample(t, reg, "outbox_dead_lettered_total", "event_type", "quote.declined").GetCounter().GetValue(); got != 1 {
		t.Fatalf("dead lettered = %f, want 1", got)
	}
}

func TestJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	m.Observe("idle-carts", 20*time.Millisecond, nil)
	m.Deleted("idle-carts", 7)
	m.Deleted("idle-carts", 0)

	if got := sample(t, reg, "maintenance_job_rows_deleted_total", "job", "idle-carts").GetCounter().GetValue(); got != 7 {
		t.Fatalf("rows deleted = %f, want 7", got)
	}
	if got := sample(t, reg, "maintenance_job_runs_total", "outcome", "success").GetCounter().GetValue(); got != 1 {
		t.Fatalf("successful runs = %f, want 1", got)
	}
}

// sample gathers reg and returns the series of family name carrying
// label=value, failing the test when there is none.
func sample(t *testing.T, reg *prometheus.Registry, name, label, value string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, series := range family.GetMetric() {
			for _, pair := range series.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return series
				}
			}
		}
		t.Fatalf("%s has no series with %s=%s", name, label, value)
	}
	t.Fatalf("metric %s not registered", name)
	return nil
}

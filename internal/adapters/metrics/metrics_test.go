package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedthread/internal/adapters/metrics"
)

func TestMetrics_ObserveCollection_CountsByKindAndOutcome(t *testing.T) {
	// Arrange
	m := metrics.New()

	// Act
	m.ObserveCollection("tweet", metrics.OutcomeOK, 10*time.Millisecond)
	m.ObserveCollection("tweet", metrics.OutcomeOK, 20*time.Millisecond)
	m.ObserveCollection("thread", metrics.OutcomeError, time.Millisecond)

	// Assert
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "feedthread_collections_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			got[labels["kind"]+"/"+labels["outcome"]] = metric.GetCounter().GetValue()
		}
	}
	if got["tweet/ok"] != 2 || got["thread/error"] != 1 {
		t.Errorf("counters: got %v", got)
	}
}

func TestMetrics_Handler_ServesExposition(t *testing.T) {
	// Arrange
	m := metrics.New()
	m.ObserveRequest("GET", "/healthz", 200)
	rec := httptest.NewRecorder()

	// Act
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	// Assert
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `feedthread_http_requests_total{method="GET",route="/healthz",status="OK"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
}

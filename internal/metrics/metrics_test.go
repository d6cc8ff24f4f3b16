package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObservers(t *testing.T) {
	before := testutil.ToFloat64(fallbacksTotal.WithLabelValues("incidents"))
	ObserveFallback("incidents")
	if got := testutil.ToFloat64(fallbacksTotal.WithLabelValues("incidents")); got != before+1 {
		t.Fatalf("expected fallback counter %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(sourceAttemptsTotal.WithLabelValues("kpis", "remote", "unknown"))
	ObserveSourceAttempt("kpis", "remote", "")
	if got := testutil.ToFloat64(sourceAttemptsTotal.WithLabelValues("kpis", "remote", "unknown")); got != before+1 {
		t.Fatalf("expected empty outcome to be labelled unknown")
	}

	before = testutil.ToFloat64(redrawsTotal.WithLabelValues(RedrawDropped))
	ObserveRedraw(RedrawDropped)
	if got := testutil.ToFloat64(redrawsTotal.WithLabelValues(RedrawDropped)); got != before+1 {
		t.Fatalf("expected dropped redraw counter to increase")
	}

	ObserveCycle(-time.Second)
	if samples := testutil.CollectAndCount(cycleDurationSeconds); samples != 1 {
		t.Fatalf("expected one histogram metric, got %d", samples)
	}
}

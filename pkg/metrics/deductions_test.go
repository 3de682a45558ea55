package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDeductionMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDeductionMetrics(reg)

	m.IncOperation("create", nil)
	m.IncOperation("create", errors.New("boom"))
	m.IncHistoryWrite()
	m.IncHistoryFailure()
	m.IncHistoryFailure()

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create", "ok")); got != 1 {
		t.Fatalf("create ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("create", "error")); got != 1 {
		t.Fatalf("create error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.historyWrites); got != 1 {
		t.Fatalf("history writes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.historyFailures); got != 2 {
		t.Fatalf("history failures = %v, want 2", got)
	}
}

func TestDeductionMetricsNilSafe(t *testing.T) {
	var m *DeductionMetrics
	m.IncOperation("create", nil)
	m.IncHistoryWrite()
	m.IncHistoryFailure()

	empty := NewDeductionMetrics(nil)
	empty.IncOperation("restore", nil)
	empty.IncHistoryFailure()
}

func TestNormalizeLabel(t *testing.T) {
	if got := normalizeLabel("  Restore To Stock "); got != "restore_to_stock" {
		t.Fatalf("normalizeLabel = %q", got)
	}
	if got := normalizeLabel(""); got != "unknown" {
		t.Fatalf("normalizeLabel empty = %q", got)
	}
}

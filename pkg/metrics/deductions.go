package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// DeductionMetrics records outcomes of deduction engine operations. History
// writes are best-effort, so the failure counter is the operator-visible
// channel for audit entries that were dropped.
type DeductionMetrics struct {
	operations      *prometheus.CounterVec
	historyWrites   prometheus.Counter
	historyFailures prometheus.Counter
}

// NewDeductionMetrics registers the deduction metrics on the provided registerer.
func NewDeductionMetrics(reg prometheus.Registerer) *DeductionMetrics {
	if reg == nil {
		return &DeductionMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deduction_operations_total",
		Help: "Deduction engine operations by name and outcome.",
	}, []string{"operation", "outcome"})
	historyWrites := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parcel_history_writes_total",
		Help: "Parcel history entries written.",
	})
	historyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parcel_history_failures_total",
		Help: "Parcel history entries dropped after a write failure.",
	})
	reg.MustRegister(operations, historyWrites, historyFailures)
	return &DeductionMetrics{
		operations:      operations,
		historyWrites:   historyWrites,
		historyFailures: historyFailures,
	}
}

// IncOperation counts one engine operation with its outcome (ok/error).
func (m *DeductionMetrics) IncOperation(operation string, err error) {
	if m == nil || m.operations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}

// IncHistoryWrite counts one persisted history entry.
func (m *DeductionMetrics) IncHistoryWrite() {
	if m == nil || m.historyWrites == nil {
		return
	}
	m.historyWrites.Inc()
}

// IncHistoryFailure counts one dropped history entry.
func (m *DeductionMetrics) IncHistoryFailure() {
	if m == nil || m.historyFailures == nil {
		return
	}
	m.historyFailures.Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return strings.ReplaceAll(trimmed, " ", "_")
}

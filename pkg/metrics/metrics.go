// Package metrics exposes prometheus instrumentation for snapshot histories.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "snapledger"
	subsystem = "history"
)

// Operation labels.
const (
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
	OpUndo     = "undo"
	OpRedo     = "redo"
	OpRestore  = "restore"
)

// Outcome labels.
const (
	OutcomeApplied  = "applied"  // state changed
	OutcomeRejected = "rejected" // validation refused the mutation
	OutcomeNoop     = "noop"     // undo/redo at a boundary
)

// Recorder receives history instrumentation events.
type Recorder interface {
	// Operation counts one originator operation and how it ended.
	Operation(op, outcome string)
	// HistoryLength reports the number of snapshots an account holds.
	HistoryLength(account string, length int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

// Operation implements Recorder.
func (NopRecorder) Operation(string, string) {}

// HistoryLength implements Recorder.
func (NopRecorder) HistoryLength(string, int) {}

// Collector is a Recorder backed by prometheus collectors.
type Collector struct {
	operations *prometheus.CounterVec
	length     *prometheus.GaugeVec
}

// NewCollector registers the history collectors with reg.
// Passing prometheus.DefaultRegisterer publishes them globally; tests should
// pass a fresh prometheus.NewRegistry().
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Total number of originator operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		length: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "snapshots",
				Help:      "Number of snapshots currently held per account",
			},
			[]string{"account"},
		),
	}
}

// Operation implements Recorder.
func (c *Collector) Operation(op, outcome string) {
	c.operations.WithLabelValues(op, outcome).Inc()
}

// HistoryLength implements Recorder.
func (c *Collector) HistoryLength(account string, length int) {
	c.length.WithLabelValues(account).Set(float64(length))
}

// OperationCount returns the current counter value for op and outcome.
func (c *Collector) OperationCount(op, outcome string) float64 {
	return counterValue(c.operations.WithLabelValues(op, outcome))
}

// Length returns the last reported history length for account.
func (c *Collector) Length(account string) float64 {
	return gaugeValue(c.length.WithLabelValues(account))
}

package metrics

import "github.com/gyokketto/pinot/types"

// NopMetrics implements a no-op MetricsCollector.
//
// All metrics are discarded. Useful for testing or when external metrics
// collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// DriverMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_, _, _ string) {}

// RecordRebalanceResult discards the rebalance result metric.
func (n *NopMetrics) RecordRebalanceResult(_ string, _ types.RebalanceStatus, _ float64) {}

// RecordStepPlanned discards the step-planned metric.
func (n *NopMetrics) RecordStepPlanned(_ string, _ int) {}

// GatewayMetrics implementation

// RecordCASAttempt discards the CAS attempt metric.
func (n *NopMetrics) RecordCASAttempt(_ string, _ types.CASResult) {}

// RecordGatewayOperationDuration discards the gateway operation duration metric.
func (n *NopMetrics) RecordGatewayOperationDuration(_ string, _ float64) {}

// ConvergenceMetrics implementation

// RecordConvergenceWait discards the convergence wait metric.
func (n *NopMetrics) RecordConvergenceWait(_, _ string, _ float64) {}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gyokketto/pinot/types"
)

// PrometheusCollector implements types.MetricsCollector backed by
// Prometheus, instrumenting the driver's state machine, the gateway's CAS
// and read/write calls, and the convergence waiter.
type PrometheusCollector struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	driverTransitions     *prometheus.CounterVec
	driverResults         *prometheus.CounterVec
	driverResultDuration  *prometheus.HistogramVec
	driverStepsPlanned    *prometheus.CounterVec
	driverSegmentsChanged *prometheus.HistogramVec

	gatewayCASAttempts   *prometheus.CounterVec
	gatewayOpDuration    *prometheus.HistogramVec

	convergenceWaits    *prometheus.CounterVec
	convergenceDuration *prometheus.HistogramVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// reg defaults to prometheus.DefaultRegisterer if nil; namespace defaults to
// "rebalancer" if empty.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "rebalancer"
	}

	return &PrometheusCollector{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.driverTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "driver",
			Name:      "state_transitions_total",
			Help:      "Total driver state machine transitions by table, from, and to state.",
		}, []string{"table", "from", "to"})

		p.driverResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "driver",
			Name:      "results_total",
			Help:      "Total terminal rebalance results by table and status.",
		}, []string{"table", "status"})

		p.driverResultDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "driver",
			Name:      "result_duration_seconds",
			Help:      "Wall-clock duration of a full Rebalance call by table and status.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms .. ~82s
		}, []string{"table", "status"})

		p.driverStepsPlanned = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "driver",
			Name:      "steps_planned_total",
			Help:      "Total no-downtime loop iterations by table.",
		}, []string{"table"})

		p.driverSegmentsChanged = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "driver",
			Name:      "segments_changed_per_step",
			Help:      "Number of segments touched in one planned step, by table.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"table"})

		p.gatewayCASAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "gateway",
			Name:      "cas_attempts_total",
			Help:      "Total CasIdealState attempts by table and outcome (ok|version_mismatch).",
		}, []string{"table", "result"})

		p.gatewayOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "gateway",
			Name:      "operation_duration_seconds",
			Help:      "Latency of gateway operations in seconds, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"})

		p.convergenceWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "convergence",
			Name:      "waits_total",
			Help:      "Total EV convergence waits by table and outcome (converged|error|timeout).",
		}, []string{"table", "outcome"})

		p.convergenceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "convergence",
			Name:      "wait_duration_seconds",
			Help:      "Time spent blocked waiting for EV convergence, by table and outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms .. ~13min
		}, []string{"table", "outcome"})

		p.reg.MustRegister(p.driverTransitions)
		p.reg.MustRegister(p.driverResults)
		p.reg.MustRegister(p.driverResultDuration)
		p.reg.MustRegister(p.driverStepsPlanned)
		p.reg.MustRegister(p.driverSegmentsChanged)
		p.reg.MustRegister(p.gatewayCASAttempts)
		p.reg.MustRegister(p.gatewayOpDuration)
		p.reg.MustRegister(p.convergenceWaits)
		p.reg.MustRegister(p.convergenceDuration)
	})
}

// DriverMetrics implementation

// RecordStateTransition records a driver state-machine transition.
func (p *PrometheusCollector) RecordStateTransition(table, from, to string) {
	p.ensureRegistered()
	p.driverTransitions.WithLabelValues(table, from, to).Inc()
}

// RecordRebalanceResult records the terminal status of a rebalance call.
func (p *PrometheusCollector) RecordRebalanceResult(table string, status types.RebalanceStatus, duration float64) {
	p.ensureRegistered()
	p.driverResults.WithLabelValues(table, string(status)).Inc()
	p.driverResultDuration.WithLabelValues(table, string(status)).Observe(duration)
}

// RecordStepPlanned records one iteration of the no-downtime loop.
func (p *PrometheusCollector) RecordStepPlanned(table string, segmentsChanged int) {
	p.ensureRegistered()
	p.driverStepsPlanned.WithLabelValues(table).Inc()
	p.driverSegmentsChanged.WithLabelValues(table).Observe(float64(segmentsChanged))
}

// GatewayMetrics implementation

// RecordCASAttempt records the outcome of one CasIdealState call.
func (p *PrometheusCollector) RecordCASAttempt(table string, result types.CASResult) {
	p.ensureRegistered()

	label := "ok"
	if result == types.CASVersionMismatch {
		label = "version_mismatch"
	}
	p.gatewayCASAttempts.WithLabelValues(table, label).Inc()
}

// RecordGatewayOperationDuration records latency of a gateway call.
func (p *PrometheusCollector) RecordGatewayOperationDuration(operation string, duration float64) {
	p.ensureRegistered()
	p.gatewayOpDuration.WithLabelValues(operation).Observe(duration)
}

// ConvergenceMetrics implementation

// RecordConvergenceWait records how long the waiter blocked before EV
// converged, timed out, or hit an ERROR state.
func (p *PrometheusCollector) RecordConvergenceWait(table string, outcome string, duration float64) {
	p.ensureRegistered()
	p.convergenceWaits.WithLabelValues(table, outcome).Inc()
	p.convergenceDuration.WithLabelValues(table, outcome).Observe(duration)
}

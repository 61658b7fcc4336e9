package rebalancer

import "time"

// Option configures a Driver with optional dependencies.
type Option func(*driverOptions)

// driverOptions holds optional Driver configuration, defaulted to no-ops so
// call sites never need a nil check.
type driverOptions struct {
	logger  Logger
	metrics MetricsCollector
	now     func() time.Time
}

// WithLogger sets the logger used for state-machine transitions and
// warnings. Defaults to a no-op logger.
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	driver, err := rebalancer.NewDriver(gw, resolver, strategy, rebalancer.DefaultConfig(), rebalancer.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *driverOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op collector.
//
// Example:
//
//	metrics := myPrometheusCollector
//	driver, err := rebalancer.NewDriver(gw, resolver, strategy, rebalancer.DefaultConfig(), rebalancer.WithMetrics(metrics))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *driverOptions) {
		o.metrics = metrics
	}
}

// WithClock overrides the driver's time source. Intended for deterministic
// tests that assert on recorded durations; production callers should not
// set this.
func WithClock(now func() time.Time) Option {
	return func(o *driverOptions) {
		o.now = now
	}
}

package rebalancer

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/gyokketto/pinot/internal/gateway"
	"github.com/gyokketto/pinot/internal/metrics"
	"github.com/gyokketto/pinot/internal/resolver"
	"github.com/gyokketto/pinot/strategy"
	"github.com/gyokketto/pinot/types"
)

// NewDefaultDriver wires the package's production components together: a
// NATS JetStream-backed metadata store gateway, the instance partitions
// resolver, and the consistent-hash reference segment assignment strategy.
// instanceAssignmentDriver may be nil for callers who never set
// RebalanceConfig.ReassignInstances.
//
// This is a convenience entry point; callers needing a different strategy
// or gateway should call NewDriver directly with their own components.
func NewDefaultDriver(
	ctx context.Context,
	js jetstream.JetStream,
	instanceAssignmentDriver types.InstanceAssignmentDriver,
	cfg Config,
	opts ...Option,
) (*Driver, error) {
	SetDefaults(&cfg)

	options := &driverOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var gatewayMetrics types.GatewayMetrics = metrics.NewNop()
	if options.metrics != nil {
		gatewayMetrics = options.metrics
	}

	gw, err := gateway.New(ctx, js, cfg.Buckets, gatewayMetrics, cfg.OperationTimeout)
	if err != nil {
		return nil, fmt.Errorf("create metadata store gateway: %w", err)
	}

	ipResolver := resolver.New(gw, instanceAssignmentDriver)

	return NewDriver(gw, ipResolver, strategy.New(), cfg, opts...)
}

// Package rebalancer implements a table rebalancer: a control routine that
// safely drives a table's segment-to-instance assignment toward a computed
// target while preserving a configurable replica-availability floor.
//
// It couples an instance-partitions resolver, a pluggable segment
// assignment strategy, a step planner, an EV convergence checker, and
// optimistic concurrency against a versioned metadata store, mirroring the
// IdealState/ExternalView split of an Apache Helix-style cluster
// controller.
//
// # Quick Start
//
//	import "github.com/gyokketto/pinot"
//
//	js, _ := jetstream.New(natsConn)
//	driver, err := rebalancer.NewDefaultDriver(ctx, js, nil, rebalancer.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tc := &types.TableConfig{TableNameWithType: "myTable_OFFLINE", TableType: types.TableTypeOffline}
//	result, err := driver.Rebalance(ctx, tc, types.DefaultRebalanceConfig())
//
// # Key Features
//
//   - Optimistic concurrency: every IdealState mutation is a compare-and-set
//     against the store's own revision; a stale read never wins a write.
//   - No-downtime rebalancing: the step planner never drops a segment below
//     its configured availability floor across a published IdealState update.
//   - Pluggable segment assignment: bring any types.SegmentAssignmentStrategy;
//     the strategy package ships a consistent-hash-ring reference
//     implementation.
//   - Best-efforts mode: degrade convergence timeouts and replica ERROR
//     states to warnings instead of failing the whole rebalance.
//
// # Architecture
//
// A rebalance call runs a single state machine:
//
//	VALIDATE -> RESOLVE_IP -> COMPUTE_TARGET -> (EARLY_EXIT | DOWNTIME_LOOP | NO_DOWNTIME_LOOP) -> TERMINAL
//
// RESOLVE_IP produces the InstancePartitions pool the strategy draws from.
// COMPUTE_TARGET calls the strategy to compute the target; both loops call
// it again to re-plan whenever they observe a newer IdealState version.
// DOWNTIME_LOOP replaces IdealState with the target in one CAS-guarded step,
// while NO_DOWNTIME_LOOP advances one availability-safe step at a time,
// waiting for ExternalView to converge between steps.
//
// # Advanced Usage
//
// Supplying a custom strategy and observability hooks:
//
//	driver, err := rebalancer.NewDriver(gateway, resolver, strategy.New(),
//	    rebalancer.DefaultConfig(),
//	    rebalancer.WithLogger(myLogger),
//	    rebalancer.WithMetrics(myMetricsCollector),
//	)
package rebalancer

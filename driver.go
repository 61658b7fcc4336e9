package rebalancer

import (
	"context"
	"fmt"
	"time"

	"github.com/gyokketto/pinot/internal/convergence"
	"github.com/gyokketto/pinot/internal/logger"
	"github.com/gyokketto/pinot/internal/metrics"
	"github.com/gyokketto/pinot/internal/natsutil"
	"github.com/gyokketto/pinot/internal/stepplanner"
	"github.com/gyokketto/pinot/types"
)

// InstancePartitionsResolver produces the InstancePartitions for one
// partition type of one table, per the resolver decision tree (fetch
// cached, recompute via the instance-assignment driver, or fall back to a
// computed default). *resolver.Resolver implements this.
type InstancePartitionsResolver interface {
	Resolve(
		ctx context.Context,
		tc *types.TableConfig,
		partitionType types.InstancePartitionsType,
		rebalanceConfig types.RebalanceConfig,
	) (*types.InstancePartitions, error)
}

// Driver orchestrates a single rebalance call: validate inputs, resolve
// instance partitions, compute a target assignment, then drive the cluster
// toward it either in one downtime step or through a no-downtime loop that
// honors an availability floor at every published IdealState update.
//
// Driver holds no per-table state between calls. Concurrent rebalances of
// the same table are not serialized internally; the caller must not invoke
// Rebalance twice for the same table concurrently.
type Driver struct {
	gateway  types.MetadataStoreGateway
	resolver InstancePartitionsResolver
	strategy types.SegmentAssignmentStrategy

	cfg Config

	logger  types.Logger
	metrics types.MetricsCollector
	now     func() time.Time
}

// NewDriver creates a Driver. gateway, resolver, and strategy are required;
// NewDriver returns an error naming whichever is missing. cfg is completed
// with SetDefaults and validated before use.
func NewDriver(
	gateway types.MetadataStoreGateway,
	resolver InstancePartitionsResolver,
	strategy types.SegmentAssignmentStrategy,
	cfg Config,
	opts ...Option,
) (*Driver, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	if strategy == nil {
		return nil, ErrStrategyRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &driverOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logInstance := options.logger
	if logInstance == nil {
		logInstance = logger.NewNop()
	}
	cfg.ValidateWithWarnings(logInstance)

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	now := options.now
	if now == nil {
		now = time.Now
	}

	return &Driver{
		gateway:  gateway,
		resolver: resolver,
		strategy: strategy,
		cfg:      cfg,
		logger:   logInstance,
		metrics:  metricsCollector,
		now:      now,
	}, nil
}

// Rebalance runs the rebalance state machine for one table:
// VALIDATE -> RESOLVE_IP -> COMPUTE_TARGET -> (EARLY_EXIT | DOWNTIME_LOOP |
// NO_DOWNTIME_LOOP) -> TERMINAL.
//
// Domain failures (input-invalid, store-fatal, convergence-slow,
// replica-error) are reported both as a FAILED RebalanceResult and as a
// non-nil error satisfying errors.Is against the relevant sentinel, so
// callers can branch on either the result or the error. A nil error with a
// non-FAILED status is the success path.
func (d *Driver) Rebalance(ctx context.Context, tc *types.TableConfig, rc types.RebalanceConfig) (types.RebalanceResult, error) {
	table := tc.TableNameWithType
	start := d.now()

	d.transition(table, "", "VALIDATE")
	if tc.TableType == types.TableTypeRealtime && tc.UseHighLevelConsumer {
		return d.fail(table, "VALIDATE", start, nil, ErrHighLevelConsumerUnsupported)
	}

	is, err := d.gateway.ReadIdealState(ctx, table)
	if err != nil {
		return d.fail(table, "VALIDATE", start, nil, fmt.Errorf("read ideal state: %w", err))
	}
	if is == nil {
		return d.fail(table, "VALIDATE", start, nil, ErrNoIdealState)
	}
	if !is.Enabled && !rc.Downtime {
		return d.fail(table, "VALIDATE", start, nil, ErrDisabledRequiresDowntime)
	}
	current := is.Assignment
	if err := checkUniformReplicaCount(current); err != nil {
		return d.fail(table, "VALIDATE", start, nil, err)
	}

	d.transition(table, "VALIDATE", "RESOLVE_IP")
	ipMap, err := d.resolveInstancePartitions(ctx, tc, rc)
	if err != nil {
		return d.fail(table, "RESOLVE_IP", start, nil, err)
	}

	d.transition(table, "RESOLVE_IP", "COMPUTE_TARGET")
	target, err := d.strategy.RebalanceTable(current, ipMap, rc)
	if err != nil {
		return d.fail(table, "COMPUTE_TARGET", start, nil, fmt.Errorf("compute target assignment: %w", err))
	}

	if current.Equal(target) {
		d.transition(table, "COMPUTE_TARGET", "EARLY_EXIT")
		if rc.ReassignInstances {
			return d.done(table, start, "instances reassigned; table already balanced", ipMap, target), nil
		}

		return d.noop(table, start, "table already balanced"), nil
	}

	if rc.DryRun {
		d.transition(table, "COMPUTE_TARGET", "EARLY_EXIT")
		return d.done(table, start, "dry-run mode", ipMap, target), nil
	}

	if rc.Downtime {
		d.transition(table, "COMPUTE_TARGET", "DOWNTIME_LOOP")
		return d.downtimeLoop(ctx, tc, rc, ipMap, is, target, start)
	}

	d.transition(table, "COMPUTE_TARGET", "NO_DOWNTIME_LOOP")
	return d.noDowntimeLoop(ctx, tc, rc, ipMap, is, current, target, start)
}

// resolveInstancePartitions resolves every partition type relevant to tc's
// table type, in TableConfig.PartitionTypes order, so logs and the returned
// map are reproducible across calls.
func (d *Driver) resolveInstancePartitions(
	ctx context.Context,
	tc *types.TableConfig,
	rc types.RebalanceConfig,
) (map[types.InstancePartitionsType]*types.InstancePartitions, error) {
	ipMap := make(map[types.InstancePartitionsType]*types.InstancePartitions)

	for _, partitionType := range tc.PartitionTypes() {
		ip, err := d.resolver.Resolve(ctx, tc, partitionType, rc)
		if err != nil {
			return nil, fmt.Errorf("resolve instance partitions %s: %w", partitionType, err)
		}
		ipMap[partitionType] = ip
	}

	return ipMap, nil
}

// downtimeLoop replaces IS with target in one step, retrying the read
// re-plan cycle on CAS version mismatch up to cfg.MaxCASRetries times.
func (d *Driver) downtimeLoop(
	ctx context.Context,
	tc *types.TableConfig,
	rc types.RebalanceConfig,
	ipMap map[types.InstancePartitionsType]*types.InstancePartitions,
	is *types.IdealState,
	target types.Assignment,
	start time.Time,
) (types.RebalanceResult, error) {
	table := tc.TableNameWithType
	expectedVersion := is.Version

	for attempt := 0; attempt < d.cfg.MaxCASRetries; attempt++ {
		record := &types.IdealState{
			Version:       expectedVersion,
			Enabled:       true,
			Assignment:    target,
			NumPartitions: len(target),
			Replicas:      replicaCountOf(target),
		}

		result, err := d.gateway.CasIdealState(ctx, table, record, expectedVersion)
		if err != nil {
			return d.fail(table, "DOWNTIME_LOOP", start, target, fmt.Errorf("cas ideal state: %w", err))
		}
		if result == types.CASOk {
			return d.done(table, start, "rebalance complete (downtime)", ipMap, target), nil
		}

		d.logger.Warn("ideal state version mismatch, re-reading and re-planning", "table", table, "attempt", attempt)

		refreshed, err := d.gateway.ReadIdealState(ctx, table)
		if err != nil {
			return d.fail(table, "DOWNTIME_LOOP", start, target, fmt.Errorf("re-read ideal state: %w", err))
		}
		if refreshed == nil {
			return d.fail(table, "DOWNTIME_LOOP", start, target, ErrIdealStateDisappeared)
		}

		expectedVersion = refreshed.Version

		target, err = d.strategy.RebalanceTable(refreshed.Assignment, ipMap, rc)
		if err != nil {
			return d.fail(table, "DOWNTIME_LOOP", start, target, fmt.Errorf("re-plan target assignment: %w", err))
		}
		if refreshed.Assignment.Equal(target) {
			return d.done(table, start, "rebalance complete (downtime)", ipMap, target), nil
		}
	}

	return d.fail(table, "DOWNTIME_LOOP", start, target, ErrCASRetryBudgetExceeded)
}

// noDowntimeLoop advances IS toward target one availability-safe step at a
// time, waiting for EV to converge between steps and re-planning whenever
// the IS version it reads differs from the one it expects (another writer
// changed IS). After its own successful CAS the loop advances the expected
// version by one, so its own write does not by itself trigger a re-plan.
func (d *Driver) noDowntimeLoop(
	ctx context.Context,
	tc *types.TableConfig,
	rc types.RebalanceConfig,
	ipMap map[types.InstancePartitionsType]*types.InstancePartitions,
	is *types.IdealState,
	current, target types.Assignment,
	start time.Time,
) (types.RebalanceResult, error) {
	table := tc.TableNameWithType
	expectedVersion := is.Version

	checkInterval := rc.ExternalViewCheckInterval
	if checkInterval <= 0 {
		checkInterval = d.cfg.ExternalViewCheckInterval
	}
	maxWait := rc.ExternalViewStabilizationMaxWait
	if maxWait <= 0 {
		maxWait = d.cfg.ExternalViewStabilizationMaxWait
	}
	waiter := convergence.NewWaiter(d.gateway, d.logger, d.metrics, checkInterval, maxWait)

	for {
		waited, err := waiter.Wait(ctx, table, rc.BestEfforts)
		if err != nil {
			return d.fail(table, "NO_DOWNTIME_LOOP", start, target, err)
		}

		if waited.Version != expectedVersion {
			current = waited.Assignment
			expectedVersion = waited.Version

			target, err = d.strategy.RebalanceTable(current, ipMap, rc)
			if err != nil {
				return d.fail(table, "NO_DOWNTIME_LOOP", start, target, fmt.Errorf("re-plan target assignment: %w", err))
			}
		}

		if current.Equal(target) {
			return d.done(table, start, "rebalance complete", ipMap, target), nil
		}

		minAvailableReplicas, err := effectiveMinAvailableReplicas(current, target, rc.MinReplicasToKeepUpForNoDowntime)
		if err != nil {
			return d.fail(table, "NO_DOWNTIME_LOOP", start, target, err)
		}

		next := stepplanner.NextAssignment(current, target, minAvailableReplicas)
		d.metrics.RecordStepPlanned(table, segmentsChanged(current, next))

		record := &types.IdealState{
			Version:       expectedVersion,
			Enabled:       true,
			Assignment:    next,
			NumPartitions: len(next),
			Replicas:      replicaCountOf(next),
		}

		result, err := d.gateway.CasIdealState(ctx, table, record, expectedVersion)
		if err != nil {
			return d.fail(table, "NO_DOWNTIME_LOOP", start, target, fmt.Errorf("cas ideal state: %w", err))
		}

		switch result {
		case types.CASOk:
			current = next
			expectedVersion++
		case types.CASVersionMismatch:
			d.logger.Warn("ideal state version mismatch, re-reading and re-planning next iteration", "table", table)
		}
	}
}

func (d *Driver) transition(table, from, to string) {
	d.logger.Info("rebalance state transition", "table", table, "from", from, "to", to)
	d.metrics.RecordStateTransition(table, from, to)
}

func (d *Driver) fail(
	table, state string,
	start time.Time,
	target types.Assignment,
	err error,
) (types.RebalanceResult, error) {
	if natsutil.IsConnectivityError(err) {
		d.logger.Error("rebalance failed: store unreachable", "table", table, "state", state, "error", err)
	} else {
		d.logger.Error("rebalance failed", "table", table, "state", state, "error", err)
	}
	d.metrics.RecordRebalanceResult(table, types.StatusFailed, d.now().Sub(start).Seconds())

	return types.RebalanceResult{
		Status:           types.StatusFailed,
		Message:          err.Error(),
		TargetAssignment: target,
	}, err
}

func (d *Driver) done(
	table string,
	start time.Time,
	message string,
	ipMap map[types.InstancePartitionsType]*types.InstancePartitions,
	target types.Assignment,
) types.RebalanceResult {
	d.logger.Info("rebalance done", "table", table, "message", message)
	d.metrics.RecordRebalanceResult(table, types.StatusDone, d.now().Sub(start).Seconds())

	return types.RebalanceResult{
		Status:                types.StatusDone,
		Message:               message,
		InstancePartitionsMap: ipMap,
		TargetAssignment:      target,
	}
}

func (d *Driver) noop(table string, start time.Time, message string) types.RebalanceResult {
	d.logger.Info("rebalance no-op", "table", table, "message", message)
	d.metrics.RecordRebalanceResult(table, types.StatusNoOp, d.now().Sub(start).Seconds())

	return types.RebalanceResult{Status: types.StatusNoOp, Message: message}
}

// checkUniformReplicaCount enforces the well-formed-assignment invariant
// that every segment in an assignment shares the same replica count.
func checkUniformReplicaCount(a types.Assignment) error {
	replicaCount := -1
	for _, states := range a {
		if replicaCount == -1 {
			replicaCount = states.ReplicaCount()
			continue
		}
		if states.ReplicaCount() != replicaCount {
			return ErrHeterogeneousReplicaCount
		}
	}

	return nil
}

// segmentsChanged counts the segments whose instance states differ between
// from and to, including segments present on only one side.
func segmentsChanged(from, to types.Assignment) int {
	changed := 0
	for segment, states := range to {
		if !(types.Assignment{segment: states}).Equal(types.Assignment{segment: from[segment]}) {
			changed++
		}
	}
	for segment := range from {
		if _, ok := to[segment]; !ok {
			changed++
		}
	}

	return changed
}

// replicaCountOf returns the replica count shared by every segment in a, or
// 0 for an empty assignment. Callers may only pass assignments that have
// already passed checkUniformReplicaCount or were produced by a conformant
// SegmentAssignmentStrategy.
func replicaCountOf(a types.Assignment) int {
	for _, states := range a {
		return states.ReplicaCount()
	}

	return 0
}

// effectiveMinAvailableReplicas derives the single minAvailableReplicas the
// step planner applies across all segments of the assignment. Since a
// well-formed table has a uniform replica count, every segment yields the
// same derivation; this takes the minimum across segments as a defensive
// measure against a strategy that (against its contract) returns a
// heterogeneous target.
func effectiveMinAvailableReplicas(current, target types.Assignment, minReplicasToKeepUpForNoDowntime int) (int, error) {
	minAcrossSegments := -1

	for segment, targetStates := range target {
		v, err := stepplanner.EffectiveMinAvailableReplicas(current[segment], targetStates, minReplicasToKeepUpForNoDowntime)
		if err != nil {
			return 0, err
		}
		if minAcrossSegments == -1 || v < minAcrossSegments {
			minAcrossSegments = v
		}
	}

	if minAcrossSegments == -1 {
		return 0, nil
	}

	return minAcrossSegments, nil
}

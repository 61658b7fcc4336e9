// Package resolver implements the instance partitions resolver: for each
// partition type relevant to a table, it produces the InstancePartitions
// object the segment assignment strategy will consume, either by
// recomputing it via the instance-assignment driver, fetching the
// previously persisted record, or falling back to a computed default.
package resolver

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/gyokketto/pinot/internal/gateway"
	"github.com/gyokketto/pinot/types"
)

// Resolver implements the instance partitions resolver (spec §4.2).
type Resolver struct {
	store  types.MetadataStoreGateway
	driver types.InstanceAssignmentDriver

	// cache holds the last InstancePartitions resolved per (table,type),
	// keyed by gateway.InstancePartitionsName. It is read-mostly: cleared
	// only by explicit Invalidate, refreshed on every Resolve call that
	// actually computes or fetches a value. A lock-free map avoids
	// serializing resolves for unrelated tables behind a single mutex.
	cache *xsync.Map[string, *types.InstancePartitions]
}

// New creates a Resolver. driver may be nil if the table config never sets
// ReassignInstances=true and never declares InstanceAssignmentConfigured.
func New(store types.MetadataStoreGateway, driver types.InstanceAssignmentDriver) *Resolver {
	return &Resolver{
		store:  store,
		driver: driver,
		cache:  xsync.NewMap[string, *types.InstancePartitions](),
	}
}

// Resolve produces the InstancePartitions for one partition type, following
// spec §4.2's decision tree. It must be called once per partition type
// returned by TableConfig.PartitionTypes, in that order, so that logs and
// results are reproducible.
func (r *Resolver) Resolve(
	ctx context.Context,
	tc *types.TableConfig,
	partitionType types.InstancePartitionsType,
	rebalanceConfig types.RebalanceConfig,
) (*types.InstancePartitions, error) {
	name := gateway.InstancePartitionsName(tc.TableNameWithType, partitionType)

	if rebalanceConfig.ReassignInstances {
		if tc.InstanceAssignmentConfigured[partitionType] {
			return r.reassign(ctx, tc, partitionType, name, rebalanceConfig)
		}

		return r.clearAndDefault(ctx, tc, partitionType, name, rebalanceConfig)
	}

	return r.fetchOrDefault(ctx, tc, partitionType, name)
}

func (r *Resolver) reassign(
	ctx context.Context,
	tc *types.TableConfig,
	partitionType types.InstancePartitionsType,
	name string,
	rebalanceConfig types.RebalanceConfig,
) (*types.InstancePartitions, error) {
	if r.driver == nil {
		return nil, fmt.Errorf("resolve %s: reassignInstances requested but no instance assignment driver configured", name)
	}

	instances, err := r.store.ReadInstanceConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: read instance configs: %w", name, err)
	}

	ip, err := r.driver.Assign(partitionType, instances)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: instance assignment: %w", name, err)
	}
	ip.Name = name
	ip.Type = partitionType

	if !rebalanceConfig.DryRun {
		if err := r.store.PersistInstancePartitions(ctx, ip); err != nil {
			return nil, fmt.Errorf("resolve %s: persist: %w", name, err)
		}
	}

	r.cache.Store(name, ip)

	return ip, nil
}

func (r *Resolver) clearAndDefault(
	ctx context.Context,
	tc *types.TableConfig,
	partitionType types.InstancePartitionsType,
	name string,
	rebalanceConfig types.RebalanceConfig,
) (*types.InstancePartitions, error) {
	instances, err := r.store.ReadInstanceConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: read instance configs: %w", name, err)
	}
	ip := computeDefaultInstancePartitions(partitionType, name, instances)

	if !rebalanceConfig.DryRun {
		if err := r.store.RemoveInstancePartitions(ctx, name); err != nil {
			return nil, fmt.Errorf("resolve %s: clear stale custom partitions: %w", name, err)
		}
	}

	r.cache.Store(name, ip)

	return ip, nil
}

func (r *Resolver) fetchOrDefault(
	ctx context.Context,
	tc *types.TableConfig,
	partitionType types.InstancePartitionsType,
	name string,
) (*types.InstancePartitions, error) {
	if cached, ok := r.cache.Load(name); ok {
		return cached, nil
	}

	ip, err := r.store.FetchInstancePartitions(ctx, tc.TableNameWithType, partitionType)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: fetch: %w", name, err)
	}
	if ip == nil {
		instances, err := r.store.ReadInstanceConfigs(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: read instance configs: %w", name, err)
		}
		ip = computeDefaultInstancePartitions(partitionType, name, instances)
	}

	r.cache.Store(name, ip)

	return ip, nil
}

// Invalidate drops any cached InstancePartitions for a table, forcing the
// next Resolve on the no-reassign path to fetch fresh from the store.
func (r *Resolver) Invalidate(tableNameWithType string, partitionType types.InstancePartitionsType) {
	r.cache.Delete(gateway.InstancePartitionsName(tableNameWithType, partitionType))
}

// computeDefaultInstancePartitions builds the fallback InstancePartitions
// used when a table has no explicit instance-assignment policy for a
// partition type: a single partition containing every enabled instance.
// This mirrors the original's replica-group-default behavior for tables
// that never opted into pool/fault-domain based instance assignment.
func computeDefaultInstancePartitions(partitionType types.InstancePartitionsType, name string, instances []types.InstanceConfig) *types.InstancePartitions {
	enabled := make([]string, 0, len(instances))
	for _, instance := range instances {
		if instance.Enabled {
			enabled = append(enabled, instance.InstanceID)
		}
	}

	partitions := map[string][]string{}
	if len(enabled) > 0 {
		partitions["0_0"] = enabled
	}

	return &types.InstancePartitions{
		Name:          name,
		Type:          partitionType,
		NumPartitions: 1,
		NumReplicas:   1,
		Partitions:    partitions,
	}
}

// Package gateway implements the metadata store gateway over NATS JetStream
// KeyValue: versioned reads/writes of IdealState, reads of ExternalView and
// instance configs, and persistence of InstancePartitions records.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/gyokketto/pinot/internal/kvutil"
	"github.com/gyokketto/pinot/types"
)

// BucketConfig names the four KV buckets the gateway uses. Each document
// kind lives in its own bucket so that IdealState's revision (used for CAS)
// is never disturbed by unrelated writes.
type BucketConfig struct {
	IdealStateBucket        string `yaml:"idealStateBucket"`
	ExternalViewBucket      string `yaml:"externalViewBucket"`
	InstanceConfigBucket    string `yaml:"instanceConfigBucket"`
	InstancePartitionBucket string `yaml:"instancePartitionBucket"`
}

// DefaultBucketConfig returns the package's default bucket names.
func DefaultBucketConfig() BucketConfig {
	return BucketConfig{
		IdealStateBucket:        "rebalancer-idealstates",
		ExternalViewBucket:      "rebalancer-externalviews",
		InstanceConfigBucket:    "rebalancer-instanceconfigs",
		InstancePartitionBucket: "rebalancer-instancepartitions",
	}
}

// NATSGateway implements types.MetadataStoreGateway backed by NATS
// JetStream KV. IdealState CAS is implemented with KeyValue.Update(ctx, key,
// value, revision), JetStream's atomic compare-and-set primitive, keyed off
// each key's own JetStream revision rather than a value-embedded version
// field.
type NATSGateway struct {
	isKV  jetstream.KeyValue
	evKV  jetstream.KeyValue
	icKV  jetstream.KeyValue
	ipKV  jetstream.KeyValue

	metrics types.GatewayMetrics

	// operationTimeout bounds every individual KV call this gateway makes.
	// Zero means no deadline beyond whatever the caller's ctx already
	// carries.
	operationTimeout time.Duration
}

// Compile-time assertion that NATSGateway implements MetadataStoreGateway.
var _ types.MetadataStoreGateway = (*NATSGateway)(nil)

// New creates a NATSGateway, creating or opening the four backing KV
// buckets under js. operationTimeout bounds every individual read/write the
// gateway makes afterward; zero disables the per-call deadline.
func New(ctx context.Context, js jetstream.JetStream, cfg BucketConfig, metrics types.GatewayMetrics, operationTimeout time.Duration) (*NATSGateway, error) {
	isKV, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: cfg.IdealStateBucket}, 0)
	if err != nil {
		return nil, fmt.Errorf("ensure ideal state bucket: %w", err)
	}

	evKV, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: cfg.ExternalViewBucket}, 0)
	if err != nil {
		return nil, fmt.Errorf("ensure external view bucket: %w", err)
	}

	icKV, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: cfg.InstanceConfigBucket}, 0)
	if err != nil {
		return nil, fmt.Errorf("ensure instance config bucket: %w", err)
	}

	ipKV, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{Bucket: cfg.InstancePartitionBucket}, 0)
	if err != nil {
		return nil, fmt.Errorf("ensure instance partition bucket: %w", err)
	}

	if metrics == nil {
		metrics = nopGatewayMetrics{}
	}

	return &NATSGateway{isKV: isKV, evKV: evKV, icKV: icKV, ipKV: ipKV, metrics: metrics, operationTimeout: operationTimeout}, nil
}

// withTimeout bounds ctx by g.operationTimeout, if set. The returned cancel
// must be called by the caller once the operation completes.
func (g *NATSGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.operationTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, g.operationTimeout)
}

// ReadIdealState implements types.MetadataStoreGateway.
func (g *NATSGateway) ReadIdealState(ctx context.Context, tableNameWithType string) (*types.IdealState, error) {
	defer g.observe("read_ideal_state", time.Now())

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	entry, err := g.isKV.Get(ctx, tableNameWithType)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("read ideal state %s: %w", tableNameWithType, err)
	}

	var is types.IdealState
	if err := json.Unmarshal(entry.Value(), &is); err != nil {
		return nil, fmt.Errorf("decode ideal state %s: %w", tableNameWithType, err)
	}
	// The store's own revision is the version optimistic concurrency runs
	// against, not whatever value happened to be serialized.
	is.Version = int64(entry.Revision())

	return &is, nil
}

// CasIdealState implements types.MetadataStoreGateway.
func (g *NATSGateway) CasIdealState(ctx context.Context, tableNameWithType string, record *types.IdealState, expectedVersion int64) (types.CASResult, error) {
	defer g.observe("cas_ideal_state", time.Now())

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(record)
	if err != nil {
		return types.CASVersionMismatch, fmt.Errorf("encode ideal state %s: %w", tableNameWithType, err)
	}

	_, err = g.isKV.Update(ctx, tableNameWithType, data, uint64(expectedVersion)) //nolint:gosec // version is store-issued, always non-negative
	if err != nil {
		if isVersionMismatch(err) {
			g.metrics.RecordCASAttempt(tableNameWithType, types.CASVersionMismatch)
			return types.CASVersionMismatch, nil
		}

		return types.CASVersionMismatch, fmt.Errorf("cas ideal state %s: %w", tableNameWithType, err)
	}

	g.metrics.RecordCASAttempt(tableNameWithType, types.CASOk)

	return types.CASOk, nil
}

// ReadExternalView implements types.MetadataStoreGateway.
func (g *NATSGateway) ReadExternalView(ctx context.Context, tableNameWithType string) (*types.ExternalView, error) {
	defer g.observe("read_external_view", time.Now())

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	entry, err := g.evKV.Get(ctx, tableNameWithType)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("read external view %s: %w", tableNameWithType, err)
	}

	var ev types.ExternalView
	if err := json.Unmarshal(entry.Value(), &ev); err != nil {
		return nil, fmt.Errorf("decode external view %s: %w", tableNameWithType, err)
	}

	return &ev, nil
}

// ReadInstanceConfigs implements types.MetadataStoreGateway.
func (g *NATSGateway) ReadInstanceConfigs(ctx context.Context) ([]types.InstanceConfig, error) {
	defer g.observe("read_instance_configs", time.Now())

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	keys, err := g.icKV.Keys(ctx)
	if err != nil {
		if isNoKeysFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("list instance configs: %w", err)
	}

	configs := make([]types.InstanceConfig, 0, len(keys))
	for _, key := range keys {
		entry, err := g.icKV.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}

			return nil, fmt.Errorf("read instance config %s: %w", key, err)
		}

		var ic types.InstanceConfig
		if err := json.Unmarshal(entry.Value(), &ic); err != nil {
			return nil, fmt.Errorf("decode instance config %s: %w", key, err)
		}
		configs = append(configs, ic)
	}

	return configs, nil
}

// PersistInstancePartitions implements types.MetadataStoreGateway.
func (g *NATSGateway) PersistInstancePartitions(ctx context.Context, ip *types.InstancePartitions) error {
	defer g.observe("persist_instance_partitions", time.Now())

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(ip)
	if err != nil {
		return fmt.Errorf("encode instance partitions %s: %w", ip.Name, err)
	}

	if _, err := g.ipKV.Put(ctx, ip.Name, data); err != nil {
		return fmt.Errorf("persist instance partitions %s: %w", ip.Name, err)
	}

	return nil
}

// RemoveInstancePartitions implements types.MetadataStoreGateway.
func (g *NATSGateway) RemoveInstancePartitions(ctx context.Context, name string) error {
	defer g.observe("remove_instance_partitions", time.Now())

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.ipKV.Delete(ctx, name); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("remove instance partitions %s: %w", name, err)
	}

	return nil
}

// FetchInstancePartitions implements types.MetadataStoreGateway.
func (g *NATSGateway) FetchInstancePartitions(ctx context.Context, tableNameWithType string, partitionType types.InstancePartitionsType) (*types.InstancePartitions, error) {
	defer g.observe("fetch_instance_partitions", time.Now())

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	name := InstancePartitionsName(tableNameWithType, partitionType)

	entry, err := g.ipKV.Get(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("fetch instance partitions %s: %w", name, err)
	}

	var ip types.InstancePartitions
	if err := json.Unmarshal(entry.Value(), &ip); err != nil {
		return nil, fmt.Errorf("decode instance partitions %s: %w", name, err)
	}

	return &ip, nil
}

// InstancePartitionsName derives the deterministic InstancePartitions record
// name for a (table, partitionType) pair. Both PersistInstancePartitions's
// caller and FetchInstancePartitions must agree on this naming.
func InstancePartitionsName(tableNameWithType string, partitionType types.InstancePartitionsType) string {
	return tableNameWithType + "." + string(partitionType)
}

func (g *NATSGateway) observe(operation string, start time.Time) {
	g.metrics.RecordGatewayOperationDuration(operation, time.Since(start).Seconds())
}

// isVersionMismatch reports whether err is a JetStream KV rejection caused
// by a stale expected revision passed to Update, as opposed to any other
// failure. NATS server reports this as a "wrong last sequence" API error;
// there is no dedicated sentinel for it in jetstream, so match on the
// message the way the rest of this stack matches unwrapped NATS errors.
func isVersionMismatch(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	return strings.Contains(err.Error(), "wrong last sequence")
}

// isNoKeysFound reports whether err indicates an empty KV bucket, which
// jetstream.KeyValue.Keys surfaces as an error rather than an empty slice.
func isNoKeysFound(err error) bool {
	return errors.Is(err, jetstream.ErrNoKeysFound) || strings.Contains(err.Error(), "no keys found")
}

type nopGatewayMetrics struct{}

func (nopGatewayMetrics) RecordCASAttempt(string, types.CASResult)       {}
func (nopGatewayMetrics) RecordGatewayOperationDuration(string, float64) {}

package types

// TableType distinguishes the two table kinds Pinot-style clusters support.
type TableType string

const (
	TableTypeOffline  TableType = "OFFLINE"
	TableTypeRealtime TableType = "REALTIME"
)

// TableConfig carries the declarative inputs the rebalancer needs about a
// table. Schema, ingestion config, and every other concern of a real
// TableConfig are external to this routine.
type TableConfig struct {
	// TableNameWithType is the fully-qualified table identifier, e.g.
	// "myTable_OFFLINE". Used as the metadata store path key and as the
	// tag on every log line the driver emits.
	TableNameWithType string
	TableType         TableType

	// UseHighLevelConsumer marks a REALTIME table using the legacy
	// high-level Kafka consumer model. Such tables cannot be rebalanced
	// (invariant 4); the assignment machinery assumes low-level, segment
	// addressable consumption.
	UseHighLevelConsumer bool

	// InstanceAssignmentConfigured reports, per partition type, whether the
	// table declares an explicit instance-assignment policy. When false for
	// a type, the resolver falls back to a default instance-partitions
	// computation instead of invoking the instance-assignment driver.
	InstanceAssignmentConfigured map[InstancePartitionsType]bool
}

// PartitionTypes returns the InstancePartitionsType values relevant to this
// table's type, in the deterministic order the resolver must iterate:
// OFFLINE tables use only OFFLINE; REALTIME tables use CONSUMING then
// COMPLETED.
func (tc *TableConfig) PartitionTypes() []InstancePartitionsType {
	if tc.TableType == TableTypeRealtime {
		return []InstancePartitionsType{InstancePartitionsConsuming, InstancePartitionsCompleted}
	}

	return []InstancePartitionsType{InstancePartitionsOffline}
}

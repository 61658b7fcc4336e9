package rebalancer

import "github.com/gyokketto/pinot/types"

// Re-export types from the internal types package.
//
// This file provides a stable, backward-compatible public API for the
// library's core types and interfaces. It uses type aliases to re-export
// definitions from the `types` subpackage, which contains the actual
// implementations.
//
// This pattern solves the "import cycle" problem by allowing internal
// packages to depend on `types` without depending on the root `rebalancer`
// package, while still providing a convenient `rebalancer.TableConfig`,
// `rebalancer.Logger`, etc. for users.
type (
	SegmentState        = types.SegmentState
	Assignment          = types.Assignment
	InstanceStateMap    = types.InstanceStateMap
	IdealState          = types.IdealState
	ExternalView        = types.ExternalView
	InstancePartitions  = types.InstancePartitions
	InstancePartitionsType = types.InstancePartitionsType
	InstanceConfig      = types.InstanceConfig
	TableConfig         = types.TableConfig
	TableType           = types.TableType
	RebalanceConfig     = types.RebalanceConfig
	RebalanceResult     = types.RebalanceResult
	RebalanceStatus     = types.RebalanceStatus
)

// Re-export interfaces from the internal types package for convenience.
type (
	MetadataStoreGateway      = types.MetadataStoreGateway
	SegmentAssignmentStrategy = types.SegmentAssignmentStrategy
	InstanceAssignmentDriver  = types.InstanceAssignmentDriver
	MetricsCollector          = types.MetricsCollector
	Logger                    = types.Logger
)

// Re-export segment state constants.
const (
	SegmentOnline    = types.SegmentOnline
	SegmentConsuming = types.SegmentConsuming
	SegmentOffline   = types.SegmentOffline
	SegmentError     = types.SegmentError
	SegmentDropped   = types.SegmentDropped
)

// Re-export table type constants.
const (
	TableTypeOffline  = types.TableTypeOffline
	TableTypeRealtime = types.TableTypeRealtime
)

// Re-export instance-partitions type constants.
const (
	InstancePartitionsOffline   = types.InstancePartitionsOffline
	InstancePartitionsConsuming = types.InstancePartitionsConsuming
	InstancePartitionsCompleted = types.InstancePartitionsCompleted
)

// Re-export rebalance status constants.
const (
	StatusDone   = types.StatusDone
	StatusNoOp   = types.StatusNoOp
	StatusFailed = types.StatusFailed
)

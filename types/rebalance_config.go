package types

import "time"

// RebalanceConfig carries the per-call options recognized by the driver.
type RebalanceConfig struct {
	// DryRun computes the target assignment without mutating the store.
	DryRun bool `yaml:"dryRun"`

	// ReassignInstances recomputes and persists instance partitions before
	// computing the target segment assignment.
	ReassignInstances bool `yaml:"reassignInstances"`

	// IncludeConsuming considers CONSUMING replicas as available for
	// realtime tables during assignment computation.
	IncludeConsuming bool `yaml:"includeConsuming"`

	// Downtime replaces IS in one step with no availability guard.
	Downtime bool `yaml:"downtime"`

	// MinReplicasToKeepUpForNoDowntime is the availability floor for the
	// no-downtime path. Non-negative values are an absolute floor; negative
	// values express "max unavailable replicas" relative to the segment's
	// replica count.
	MinReplicasToKeepUpForNoDowntime int `yaml:"minReplicasToKeepUpForNoDowntime"`

	// BestEfforts degrades ERROR states and convergence timeouts to warnings
	// instead of failing the rebalance.
	BestEfforts bool `yaml:"bestEfforts"`

	// ExternalViewCheckInterval overrides the Driver's configured EV poll
	// interval for this call. Zero means use the Driver's configured value.
	ExternalViewCheckInterval time.Duration `yaml:"externalViewCheckInterval"`

	// ExternalViewStabilizationMaxWait overrides the Driver's configured max
	// wait for EV convergence for this call. Zero means use the Driver's
	// configured value.
	ExternalViewStabilizationMaxWait time.Duration `yaml:"externalViewStabilizationMaxWait"`
}

// DefaultRebalanceConfig returns a RebalanceConfig with the spec's stated
// defaults: everything false except a 1-replica availability floor.
func DefaultRebalanceConfig() RebalanceConfig {
	return RebalanceConfig{
		MinReplicasToKeepUpForNoDowntime: 1,
	}
}

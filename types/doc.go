// Package types defines the core data model and interfaces shared across the
// rebalancer's components: segment states, assignments, the IdealState and
// ExternalView documents, instance partitions, and the pluggable interfaces
// (metadata store gateway, segment assignment strategy, logger, metrics)
// that internal packages implement or consume.
//
// Splitting these definitions into their own package lets internal packages
// (gateway, resolver, stepplanner, convergence) depend on the data model
// without importing the root rebalancer package, avoiding import cycles.
package types

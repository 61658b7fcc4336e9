package types

import "context"

// CASResult is the sum type a compare-and-set write resolves to. Modeled
// explicitly instead of a bare bool so callers can never mistake a fatal
// store error for a benign version mismatch.
type CASResult int

const (
	// CASOk means the write committed.
	CASOk CASResult = iota
	// CASVersionMismatch means the write was rejected because the record's
	// version no longer matched expectedVersion; the caller should re-read
	// and re-plan.
	CASVersionMismatch
)

// MetadataStoreGateway is the versioned read/write surface the driver uses
// to reach the coordination store. All reads are point reads; there is no
// caching layer. Failures other than a version mismatch on CasIdealState are
// fatal to the current rebalance call.
type MetadataStoreGateway interface {
	// ReadIdealState returns the current IdealState for a table, or nil if
	// the table has no IdealState document.
	ReadIdealState(ctx context.Context, tableNameWithType string) (*IdealState, error)

	// CasIdealState atomically writes record if the store's current version
	// for the table equals expectedVersion. Returns CASOk on success,
	// CASVersionMismatch if the version didn't match, or a non-nil error for
	// any other failure.
	CasIdealState(ctx context.Context, tableNameWithType string, record *IdealState, expectedVersion int64) (CASResult, error)

	// ReadExternalView returns the current ExternalView for a table, or nil
	// if none has been reported yet.
	ReadExternalView(ctx context.Context, tableNameWithType string) (*ExternalView, error)

	// ReadInstanceConfigs returns every known instance config in the
	// cluster.
	ReadInstanceConfigs(ctx context.Context) ([]InstanceConfig, error)

	// PersistInstancePartitions writes ip idempotently.
	PersistInstancePartitions(ctx context.Context, ip *InstancePartitions) error

	// RemoveInstancePartitions deletes the named InstancePartitions record,
	// if present. Deleting a record that does not exist is not an error.
	RemoveInstancePartitions(ctx context.Context, name string) error

	// FetchInstancePartitions returns the InstancePartitions for a table and
	// partition type, or nil if none is persisted.
	FetchInstancePartitions(ctx context.Context, tableNameWithType string, partitionType InstancePartitionsType) (*InstancePartitions, error)
}

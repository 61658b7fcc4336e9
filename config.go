package rebalancer

import (
	"fmt"
	"time"

	"github.com/gyokketto/pinot/internal/gateway"
)

// Config is the configuration for a Driver: the ambient tunables spec'd as
// constants (EV poll interval, max wait, KV bucket names, CAS retry budget)
// plus the gateway's operation timeout.
//
// All duration fields accept standard Go duration strings like "1s", "1h"
// when unmarshaled from YAML.
type Config struct {
	// ExternalViewCheckInterval is how often the no-downtime loop polls EV
	// for convergence. Spec default: 1 second.
	ExternalViewCheckInterval time.Duration `yaml:"externalViewCheckInterval"`

	// ExternalViewStabilizationMaxWait is the max time a single convergence
	// wait may block before timing out. Spec default: 1 hour.
	ExternalViewStabilizationMaxWait time.Duration `yaml:"externalViewStabilizationMaxWait"`

	// OperationTimeout bounds every individual gateway call (read, CAS,
	// persist) made during a rebalance.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// MaxCASRetries bounds how many times the downtime loop may re-read and
	// re-plan after a version mismatch before giving up with
	// ErrCASRetryBudgetExceeded. Resolves spec §9's open question about
	// unbounded CAS contention.
	MaxCASRetries int `yaml:"maxCasRetries"`

	// Buckets names the NATS JetStream KV buckets the gateway uses.
	Buckets gateway.BucketConfig `yaml:"buckets"`
}

// DefaultConfig returns a Config with the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		ExternalViewCheckInterval:       time.Second,
		ExternalViewStabilizationMaxWait: time.Hour,
		OperationTimeout:                10 * time.Second,
		MaxCASRetries:                   10,
		Buckets:                         gateway.DefaultBucketConfig(),
	}
}

// SetDefaults fills in zero-valued fields of cfg with production defaults.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.ExternalViewCheckInterval == 0 {
		cfg.ExternalViewCheckInterval = defaults.ExternalViewCheckInterval
	}
	if cfg.ExternalViewStabilizationMaxWait == 0 {
		cfg.ExternalViewStabilizationMaxWait = defaults.ExternalViewStabilizationMaxWait
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.MaxCASRetries == 0 {
		cfg.MaxCASRetries = defaults.MaxCASRetries
	}
	if cfg.Buckets.IdealStateBucket == "" {
		cfg.Buckets.IdealStateBucket = defaults.Buckets.IdealStateBucket
	}
	if cfg.Buckets.ExternalViewBucket == "" {
		cfg.Buckets.ExternalViewBucket = defaults.Buckets.ExternalViewBucket
	}
	if cfg.Buckets.InstanceConfigBucket == "" {
		cfg.Buckets.InstanceConfigBucket = defaults.Buckets.InstanceConfigBucket
	}
	if cfg.Buckets.InstancePartitionBucket == "" {
		cfg.Buckets.InstancePartitionBucket = defaults.Buckets.InstancePartitionBucket
	}
}

// Validate checks configuration constraints and returns an error for
// invalid values.
func (cfg *Config) Validate() error {
	if cfg.ExternalViewCheckInterval <= 0 {
		return fmt.Errorf("ExternalViewCheckInterval must be > 0, got %v", cfg.ExternalViewCheckInterval)
	}
	if cfg.ExternalViewStabilizationMaxWait <= 0 {
		return fmt.Errorf("ExternalViewStabilizationMaxWait must be > 0, got %v", cfg.ExternalViewStabilizationMaxWait)
	}
	if cfg.ExternalViewCheckInterval > cfg.ExternalViewStabilizationMaxWait {
		return fmt.Errorf(
			"ExternalViewCheckInterval (%v) must be <= ExternalViewStabilizationMaxWait (%v)",
			cfg.ExternalViewCheckInterval, cfg.ExternalViewStabilizationMaxWait,
		)
	}
	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("OperationTimeout must be > 0, got %v", cfg.OperationTimeout)
	}
	if cfg.MaxCASRetries <= 0 {
		return fmt.Errorf("MaxCASRetries must be > 0, got %d", cfg.MaxCASRetries)
	}

	return nil
}

// ValidateWithWarnings checks cfg and logs warnings for non-recommended
// values that are not hard errors.
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.ExternalViewCheckInterval < 100*time.Millisecond {
		logger.Warn(
			"ExternalViewCheckInterval is very short, may generate excessive gateway traffic",
			"interval", cfg.ExternalViewCheckInterval,
			"recommended", "1s or higher",
		)
	}
	if cfg.MaxCASRetries > 100 {
		logger.Warn(
			"MaxCASRetries is very high, a contended table may retry for a long time before failing",
			"maxCasRetries", cfg.MaxCASRetries,
		)
	}
}

// TestConfig returns a configuration tuned for fast test execution: short EV
// poll interval and max wait so convergence tests don't block on the
// production one-hour timeout.
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.ExternalViewCheckInterval = 10 * time.Millisecond
	cfg.ExternalViewStabilizationMaxWait = 2 * time.Second
	cfg.OperationTimeout = 2 * time.Second

	return cfg
}

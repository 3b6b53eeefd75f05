package extension

import "time"

// Config holds the Settle extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.settle" or "settle" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// TransferConcurrency bounds how many transfers run against the payment
	// rail at once during a settlement run (default: 4).
	TransferConcurrency int `json:"transfer_concurrency" mapstructure:"transfer_concurrency" yaml:"transfer_concurrency"`

	// TransferTimeout is the per-attempt transfer timeout (default: 10s).
	TransferTimeout time.Duration `json:"transfer_timeout" mapstructure:"transfer_timeout" yaml:"transfer_timeout"`

	// TransferMaxRetries is how many times a retryable transfer failure is
	// retried before the transfer is marked failed (default: 3).
	TransferMaxRetries int `json:"transfer_max_retries" mapstructure:"transfer_max_retries" yaml:"transfer_max_retries"`

	// TransferRetryInterval is the base backoff interval between transfer
	// retries (default: 250ms).
	TransferRetryInterval time.Duration `json:"transfer_retry_interval" mapstructure:"transfer_retry_interval" yaml:"transfer_retry_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TransferConcurrency:   4,
		TransferTimeout:       10 * time.Second,
		TransferMaxRetries:    3,
		TransferRetryInterval: 250 * time.Millisecond,
	}
}

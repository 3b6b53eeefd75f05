package extension

import (
	"time"

	settle "github.com/xraph/settle"
	"github.com/xraph/settle/plugin"
	"github.com/xraph/settle/rail"
	"github.com/xraph/settle/store"
)

// Option configures the Settle Forge extension.
type Option func(*Extension)

// WithStore sets the store for the settlement engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithRail sets the payment rail for the settlement engine.
func WithRail(r rail.Rail) Option {
	return func(e *Extension) {
		e.rail = r
	}
}

// WithEngineOption passes a settle.Option through to the underlying engine.
func WithEngineOption(opt settle.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a settle plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, settle.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithTransferConcurrency bounds concurrent transfers during a settlement run.
func WithTransferConcurrency(n int) Option {
	return func(e *Extension) { e.config.TransferConcurrency = n }
}

// WithTransferTimeout sets the per-attempt transfer timeout.
func WithTransferTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.TransferTimeout = d }
}

// WithTransferRetries configures transfer retry parameters.
func WithTransferRetries(maxRetries int, interval time.Duration) Option {
	return func(e *Extension) {
		e.config.TransferMaxRetries = maxRetries
		e.config.TransferRetryInterval = interval
	}
}

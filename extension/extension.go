// Package extension provides the Forge extension adapter for Settle.
//
// It implements the forge.Extension interface to integrate Settle
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.settle" or "settle" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	settle "github.com/xraph/settle"
	"github.com/xraph/settle/rail"
	"github.com/xraph/settle/store"
	"github.com/xraph/settle/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "settle"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Embeddable group debt settlement engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Settle as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *settle.Engine
	store      store.Store
	rail       rail.Rail
	engineOpts []settle.Option
}

// New creates a new Settle Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Settle engine.
// This is nil until Register is called.
func (e *Extension) Engine() *settle.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the settlement engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory backends if none were provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}
	if e.rail == nil {
		e.rail = rail.NewMemory()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := settle.New(e.store, e.rail, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*settle.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("settle: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("settle: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs settle.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []settle.Option {
	opts := make([]settle.Option, 0, len(e.engineOpts)+3)

	// Apply config-derived options.
	if e.config.TransferConcurrency > 0 {
		opts = append(opts, settle.WithTransferConcurrency(e.config.TransferConcurrency))
	}
	if e.config.TransferTimeout > 0 {
		opts = append(opts, settle.WithTransferTimeout(e.config.TransferTimeout))
	}
	if e.config.TransferMaxRetries > 0 || e.config.TransferRetryInterval > 0 {
		retries := e.config.TransferMaxRetries
		interval := e.config.TransferRetryInterval
		defaults := DefaultConfig()
		if retries == 0 {
			retries = defaults.TransferMaxRetries
		}
		if interval == 0 {
			interval = defaults.TransferRetryInterval
		}
		opts = append(opts, settle.WithTransferRetries(retries, interval))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("settle: configuration is required but not found in config files; " +
				"ensure 'extensions.settle' or 'settle' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("settle: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("transfer_concurrency", e.config.TransferConcurrency),
		forge.F("transfer_timeout", e.config.TransferTimeout),
		forge.F("transfer_max_retries", e.config.TransferMaxRetries),
		forge.F("transfer_retry_interval", e.config.TransferRetryInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.settle" first (namespaced pattern).
	if cm.IsSet("extensions.settle") {
		if err := cm.Bind("extensions.settle", &cfg); err == nil {
			e.Logger().Debug("settle: loaded config from file",
				forge.F("key", "extensions.settle"),
			)
			return cfg, true
		}
		e.Logger().Warn("settle: failed to bind extensions.settle config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "settle" key.
	if cm.IsSet("settle") {
		if err := cm.Bind("settle", &cfg); err == nil {
			e.Logger().Debug("settle: loaded config from file",
				forge.F("key", "settle"),
			)
			return cfg, true
		}
		e.Logger().Warn("settle: failed to bind settle config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.TransferConcurrency == 0 {
		cfg.TransferConcurrency = defaults.TransferConcurrency
	}
	if cfg.TransferTimeout == 0 {
		cfg.TransferTimeout = defaults.TransferTimeout
	}
	if cfg.TransferMaxRetries == 0 {
		cfg.TransferMaxRetries = defaults.TransferMaxRetries
	}
	if cfg.TransferRetryInterval == 0 {
		cfg.TransferRetryInterval = defaults.TransferRetryInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.TransferConcurrency == 0 && programmaticConfig.TransferConcurrency != 0 {
		yamlConfig.TransferConcurrency = programmaticConfig.TransferConcurrency
	}
	if yamlConfig.TransferTimeout == 0 && programmaticConfig.TransferTimeout != 0 {
		yamlConfig.TransferTimeout = programmaticConfig.TransferTimeout
	}
	if yamlConfig.TransferMaxRetries == 0 && programmaticConfig.TransferMaxRetries != 0 {
		yamlConfig.TransferMaxRetries = programmaticConfig.TransferMaxRetries
	}
	if yamlConfig.TransferRetryInterval == 0 && programmaticConfig.TransferRetryInterval != 0 {
		yamlConfig.TransferRetryInterval = programmaticConfig.TransferRetryInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}

package notify

import "log/slog"

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger for the bridge.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithEnabledKinds sets which event kinds to deliver.
// If not called, all kinds are delivered.
func WithEnabledKinds(kinds ...Kind) Option {
	return func(b *Bridge) {
		b.enabled = make(map[Kind]bool)
		for _, kind := range kinds {
			b.enabled[kind] = true
		}
	}
}

// WithDisabledKinds sets which event kinds to skip.
func WithDisabledKinds(kinds ...Kind) Option {
	return func(b *Bridge) {
		if b.enabled == nil {
			// Start with all enabled
			b.enabled = make(map[Kind]bool)
			for _, kind := range allKinds() {
				b.enabled[kind] = true
			}
		}
		// Disable specified kinds
		for _, kind := range kinds {
			delete(b.enabled, kind)
		}
	}
}

// allKinds returns all known event kinds.
func allKinds() []Kind {
	return []Kind{
		KindExpenseAdded,
		KindSettlementPlanned,
		KindSettlementCompleted,
		KindSettlementPartial,
		KindTransactionConfirmed,
		KindTransactionFailed,
		KindGroupStatusChanged,
	}
}

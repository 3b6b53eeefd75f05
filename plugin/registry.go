package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/plan"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onExpenseAdded         []OnExpenseAdded
	onSettlementPlanned    []OnSettlementPlanned
	onTransactionConfirmed []OnTransactionConfirmed
	onTransactionFailed    []OnTransactionFailed
	onSettlementFinished   []OnSettlementFinished
	onGroupStatusChanged   []OnGroupStatusChanged
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnExpenseAdded); ok {
		r.onExpenseAdded = append(r.onExpenseAdded, v)
	}
	if v, ok := p.(OnSettlementPlanned); ok {
		r.onSettlementPlanned = append(r.onSettlementPlanned, v)
	}
	if v, ok := p.(OnTransactionConfirmed); ok {
		r.onTransactionConfirmed = append(r.onTransactionConfirmed, v)
	}
	if v, ok := p.(OnTransactionFailed); ok {
		r.onTransactionFailed = append(r.onTransactionFailed, v)
	}
	if v, ok := p.(OnSettlementFinished); ok {
		r.onSettlementFinished = append(r.onSettlementFinished, v)
	}
	if v, ok := p.(OnGroupStatusChanged); ok {
		r.onGroupStatusChanged = append(r.onGroupStatusChanged, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnExpenseAdded)(nil)).Elem(), "OnExpenseAdded")
	checkInterface(reflect.TypeOf((*OnSettlementPlanned)(nil)).Elem(), "OnSettlementPlanned")
	checkInterface(reflect.TypeOf((*OnTransactionConfirmed)(nil)).Elem(), "OnTransactionConfirmed")
	checkInterface(reflect.TypeOf((*OnTransactionFailed)(nil)).Elem(), "OnTransactionFailed")
	checkInterface(reflect.TypeOf((*OnSettlementFinished)(nil)).Elem(), "OnSettlementFinished")
	checkInterface(reflect.TypeOf((*OnGroupStatusChanged)(nil)).Elem(), "OnGroupStatusChanged")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitExpenseAdded emits an expense added event.
func (r *Registry) EmitExpenseAdded(ctx context.Context, e *expense.Expense) {
	r.mu.RLock()
	plugins := r.onExpenseAdded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnExpenseAdded(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnExpenseAdded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSettlementPlanned emits a settlement planned event.
func (r *Registry) EmitSettlementPlanned(ctx context.Context, pl *plan.Plan) {
	r.mu.RLock()
	plugins := r.onSettlementPlanned
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettlementPlanned(ctx, pl)
		}); err != nil {
			r.logger.Warn("plugin OnSettlementPlanned failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransactionConfirmed emits a transaction confirmed event.
func (r *Registry) EmitTransactionConfirmed(ctx context.Context, txn plan.Transaction, reference string) {
	r.mu.RLock()
	plugins := r.onTransactionConfirmed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionConfirmed(ctx, txn, reference)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionConfirmed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransactionFailed emits a transaction failed event.
func (r *Registry) EmitTransactionFailed(ctx context.Context, txn plan.Transaction, reason string) {
	r.mu.RLock()
	plugins := r.onTransactionFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionFailed(ctx, txn, reason)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSettlementFinished emits a settlement finished event.
func (r *Registry) EmitSettlementFinished(ctx context.Context, run *plan.Run) {
	r.mu.RLock()
	plugins := r.onSettlementFinished
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettlementFinished(ctx, run)
		}); err != nil {
			r.logger.Warn("plugin OnSettlementFinished failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGroupStatusChanged emits a group status changed event.
func (r *Registry) EmitGroupStatusChanged(ctx context.Context, g *group.Group, from, to group.Status) {
	r.mu.RLock()
	plugins := r.onGroupStatusChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGroupStatusChanged(ctx, g, from, to)
		}); err != nil {
			r.logger.Warn("plugin OnGroupStatusChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Registry manages the registration and retrieval of engine adapters.
type Registry struct {
	adapters map[dbcapabilities.Engine]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates a new adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[dbcapabilities.Engine]Adapter),
	}
}

// Register registers an engine adapter.
// If an adapter for the same engine is already registered, it will be replaced.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[adapter.Engine()] = adapter
}

// Get retrieves a registered adapter by engine.
// Returns ErrAdapterNotFound if the adapter is not registered.
func (r *Registry) Get(engine dbcapabilities.Engine) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[engine]
	if !exists {
		return nil, &DatabaseError{
			Engine:    engine,
			Operation: "dispatch",
			Code:      CodeInvalidInput,
			Cause:     fmt.Errorf("%w: %s", ErrAdapterNotFound, engine),
		}
	}

	return adapter, nil
}

// GetByName retrieves a registered adapter by engine name or alias.
// Returns ErrAdapterNotFound if the adapter is not registered.
func (r *Registry) GetByName(name string) (Adapter, error) {
	engine, ok := dbcapabilities.ParseEngine(name)
	if !ok {
		return nil, &DatabaseError{
			Engine:    dbcapabilities.Engine(name),
			Operation: "dispatch",
			Code:      CodeInvalidInput,
			Cause:     fmt.Errorf("%w: unknown engine '%s'", ErrAdapterNotFound, name),
		}
	}

	return r.Get(engine)
}

// Engines returns all registered engine identifiers.
func (r *Registry) Engines() []dbcapabilities.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]dbcapabilities.Engine, 0, len(r.adapters))
	for engine := range r.adapters {
		engines = append(engines, engine)
	}

	return engines
}

// recoverToError converts an adapter panic into an ENGINE_ERROR. Adapters
// wrap third-party drivers, and a driver panic must not take down the
// process serving the caller.
func recoverToError(engine dbcapabilities.Engine, operation string, errp *error) {
	if rec := recover(); rec != nil {
		*errp = NewEngineError(engine, operation, fmt.Errorf("adapter panic: %v", rec))
	}
}

// ValidateConnection dispatches a connection validation by the descriptor's engine.
func (r *Registry) ValidateConnection(ctx context.Context, config ConnectionConfig) (info *ConnectionInfo, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a, err := r.Get(config.Engine)
	if err != nil {
		return nil, err
	}
	defer recoverToError(config.Engine, "validate_connection", &err)
	return a.ValidateConnection(ctx, config)
}

// Introspect dispatches a catalog operation by the descriptor's engine.
func (r *Registry) Introspect(ctx context.Context, config ConnectionConfig, req IntrospectRequest) (result *IntrospectResult, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a, err := r.Get(config.Engine)
	if err != nil {
		return nil, err
	}
	defer recoverToError(config.Engine, "introspect", &err)
	return a.Introspect(ctx, config, req)
}

// Execute dispatches statement execution by the descriptor's engine.
func (r *Registry) Execute(ctx context.Context, config ConnectionConfig, sql string, caps Capabilities) (result *QueryResult, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a, err := r.Get(config.Engine)
	if err != nil {
		return nil, err
	}
	defer recoverToError(config.Engine, "execute", &err)
	return a.Execute(ctx, config, sql, caps.Normalize())
}

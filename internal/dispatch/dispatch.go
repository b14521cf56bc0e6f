// Package dispatch implements the Adapter Registry & Dispatcher: a
// process-wide, case-insensitive name-to-factory map and the sole entrypoint
// other collaborators use to reach a source adapter, hiding each adapter's
// concrete type.
package dispatch

import (
	"context"
	"strings"
	"sync"

	"inkforge/internal/core"
	"inkforge/internal/pipeline"
)

// Factory builds a SourceAdapter on demand, given the fetcher it should use.
type Factory func(fetcher pipeline.Fetcher) pipeline.SourceAdapter

// Registry is a read-mostly, case-insensitive source-name to Factory map.
// The zero value is not usable; use NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates name (case-insensitively) with factory. A later call
// for the same name replaces the earlier registration.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Names returns every registered source name, in registration order is not
// guaranteed.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Resolve looks up name and builds the adapter with fetcher. Returns a
// pipeline.Error with Kind KindUnknownSource if name is not registered.
func (r *Registry) Resolve(name string, fetcher pipeline.Fetcher) (pipeline.SourceAdapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, pipeline.NewError(pipeline.KindUnknownSource, name, nil)
	}
	return factory(fetcher), nil
}

// Dispatcher is the sole entrypoint collaborators use to discover or
// materialize content: it hides adapter resolution from the pipeline steps
// that only need a Work or a ContentEnvelope.
type Dispatcher struct {
	registry *Registry
	fetcher  pipeline.Fetcher
}

// New builds a Dispatcher over registry, using fetcher for every resolved
// adapter.
func New(registry *Registry, fetcher pipeline.Fetcher) *Dispatcher {
	return &Dispatcher{registry: registry, fetcher: fetcher}
}

// Discover resolves source and runs its Discover operation.
func (d *Dispatcher) Discover(ctx context.Context, source, workURL string, max int) (core.Work, []core.ChapterDescriptor, error) {
	adapter, err := d.registry.Resolve(source, d.fetcher)
	if err != nil {
		return core.Work{}, nil, err
	}
	return adapter.Discover(ctx, workURL, max)
}

// Materialize resolves source and runs its Materialize operation.
func (d *Dispatcher) Materialize(ctx context.Context, source string, work core.Work, ch core.ChapterDescriptor) (core.ContentEnvelope, error) {
	adapter, err := d.registry.Resolve(source, d.fetcher)
	if err != nil {
		return core.ContentEnvelope{}, err
	}
	return adapter.Materialize(ctx, work, ch)
}

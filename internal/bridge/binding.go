package bridge

import (
	"context"
	"sort"
	"sync"

	"github.com/GriffinCanCode/kui/internal/shared/types"
)

// Reserved names in the global execution context.
const (
	GlobalName     = "kui"
	VersionBinding = "__kui_version"
	ResolveBinding = "__kui_resolve"
)

// Binding is a host function callable from the page. It may reply with a
// mapping, any JSON-serializable value, or the JSON text of a mapping.
type Binding func(ctx context.Context, payload types.Payload) (interface{}, error)

// Globals is the page's global execution context. Host bindings are
// registered here before any page script runs; the installed surface lives
// here under GlobalName.
type Globals struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewGlobals creates an empty global context
func NewGlobals() *Globals {
	return &Globals{values: make(map[string]interface{})}
}

// Bind registers a host binding under name, replacing any previous value
func (g *Globals) Bind(name string, fn Binding) {
	g.Set(name, fn)
}

// Set stores an arbitrary value under name
func (g *Globals) Set(name string, value interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[name] = value
}

// Get returns the value stored under name
func (g *Globals) Get(name string) (interface{}, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	return v, ok
}

// Lookup returns the binding under name if the value there is callable
func (g *Globals) Lookup(name string) (Binding, bool) {
	v, ok := g.Get(name)
	if !ok {
		return nil, false
	}
	switch fn := v.(type) {
	case Binding:
		return fn, fn != nil
	case func(context.Context, types.Payload) (interface{}, error):
		return fn, fn != nil
	default:
		return nil, false
	}
}

// Delete removes name
func (g *Globals) Delete(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.values, name)
}

// LoadOrStore returns the existing value for name if present. Otherwise it
// stores value. The loaded result is true if the value was already there.
func (g *Globals) LoadOrStore(name string, value interface{}) (actual interface{}, loaded bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.values[name]; ok && v != nil {
		return v, true
	}
	g.values[name] = value
	return value, false
}

// Names returns the registered names in sorted order
func (g *Globals) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.values))
	for name := range g.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

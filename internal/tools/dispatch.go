package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the live Tool set the turn controller dispatches against.
// It is read far more than written (one tool call at a time per spec.md's
// strictly-sequential dispatch requirement), so a RWMutex is enough.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Dispatch resolves and executes a tool call by name in one step, returning
// a plain (unclassified) error when the tool is unknown; the turn
// controller wraps it as turnerr.KindToolFailure.
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]any) (Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return Result{}, fmt.Errorf("unknown tool %q", name)
	}
	return t.Execute(ctx, params)
}

// Definitions returns the registry's tools sorted by name, for stable
// presentation to the LLM and in tests.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, Definition{Name: t.Name(), Description: t.Description(), ParamsSchema: t.ParamsSchema()})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

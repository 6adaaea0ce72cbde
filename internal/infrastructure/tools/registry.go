// Package tools implements the investigation tools the investigator executes
// plan steps with. Tools are injected through the registry; stages never
// construct them directly.
package tools

import (
	"sort"
	"sync"

	"github.com/turtacn/sentra/internal/domain/service"
)

// Registry resolves investigation tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]service.InvestigationTool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...service.InvestigationTool) *Registry {
	r := &Registry{tools: make(map[string]service.InvestigationTool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

var _ service.ToolRegistry = (*Registry)(nil)

// Register adds or replaces a tool.
func (r *Registry) Register(tool service.InvestigationTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Lookup resolves a tool by name.
func (r *Registry) Lookup(name string) (service.InvestigationTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
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

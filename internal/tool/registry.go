package tool

import (
	"sort"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Registry manages tool registration and lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, sorted.
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

// List returns all registered tools in name order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Set is the named collection of tools assembled for a single
// conversational turn.
type Set struct {
	tools map[string]Tool
	order []string
}

// NewSet builds a Set from tools in the given order.
func NewSet(tools ...Tool) *Set {
	s := &Set{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, ok := s.tools[t.Name()]; !ok {
			s.order = append(s.order, t.Name())
		}
		s.tools[t.Name()] = t
	}
	return s
}

// Lookup returns the tool with the given name.
func (s *Set) Lookup(name string) (Tool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// Infos returns the Eino tool descriptions for every tool in the set.
func (s *Set) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(s.order))
	for _, name := range s.order {
		infos = append(infos, Info(s.tools[name]))
	}
	return infos
}

// Len returns the number of tools in the set.
func (s *Set) Len() int { return len(s.order) }

// DefaultRegistry creates a registry with the built-in capabilities.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewWebSearchTool())
	r.Register(NewWeatherTool())
	r.Register(NewQueueEditTool())
	return r
}

package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds all registered nodes.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

// NewRegistry creates a new empty node registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]Node),
	}
}

// Register adds a node to the registry.
func (r *Registry) Register(n Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.nodes[name]; exists {
		return fmt.Errorf("node %q already registered", name)
	}
	r.nodes[name] = n
	return nil
}

// MustRegister is Register for wiring code where a duplicate is a programming error.
func (r *Registry) MustRegister(nodes ...Node) *Registry {
	for _, n := range nodes {
		if err := r.Register(n); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns a node by name.
func (r *Registry) Get(name string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[name]
	return n, ok
}

// List returns the names of all registered nodes, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks whether a node is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.nodes[name]
	return ok
}

package project

import (
	"fmt"
	"sort"
	"sync"

	"linkctl/internal/config"
	"linkctl/pkg/logging"
)

// Registry is the live set of projects this control plane manages.
type Registry struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{projects: make(map[string]*Project)}
}

// NewRegistryFromConfig loads every configured project.
func NewRegistryFromConfig(defs []config.ProjectDefinition) (*Registry, error) {
	r := NewRegistry()
	for _, def := range defs {
		p, err := New(def)
		if err != nil {
			return nil, err
		}
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	logging.Info("Registry", "Loaded %d projects", len(defs))
	return r, nil
}

// Add registers p. IDs must be unique.
func (r *Registry) Add(p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projects[p.ID]; exists {
		return fmt.Errorf("project %s already registered", p.ID)
	}
	r.projects[p.ID] = p
	return nil
}

// Remove drops the project with the given ID; in-flight reconciliations
// notice on their next lookup.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
}

// Get returns the project with the given ID.
func (r *Registry) Get(id string) (*Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	return p, ok
}

// List returns all projects ordered by ID.
func (r *Registry) List() []*Project {
	r.mu.RLock()
	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

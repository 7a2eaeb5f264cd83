package model

import (
	"sync"

	"github.com/Alfresco/SearchServices-sub009/core/repo"
)

// Registry holds the property definitions of every loaded model.
type Registry struct {
	mu     sync.RWMutex
	models map[string]repo.Model
	props  map[string]repo.PropertyDef
}

func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]repo.Model),
		props:  make(map[string]repo.PropertyDef),
	}
}

// Put replaces the definition of m.
func (r *Registry) Put(m repo.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.models[m.Name]; ok {
		for _, p := range old.Properties {
			delete(r.props, p.QName)
		}
	}
	r.models[m.Name] = m
	for _, p := range m.Properties {
		r.props[p.QName] = p
	}
}

// Model returns the definition named name.
func (r *Registry) Model(name string) (repo.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Property returns the definition of qname.
func (r *Registry) Property(qname string) (repo.PropertyDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.props[qname]
	return p, ok
}

// Indexed reports whether qname belongs in node documents. Properties of
// unknown models are indexed.
func (r *Registry) Indexed(qname string) bool {
	if r == nil {
		return true
	}
	p, ok := r.Property(qname)
	return !ok || p.Indexed
}

// Len is the number of loaded models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

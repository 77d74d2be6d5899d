// Package fieldregistry holds the customizer schema registered by the host:
// panels, sections and fields, in registration order.
package fieldregistry

import (
	"errors"
	"fmt"
	"sync"

	"customizer_telemetry/internal/domain/field"
)

// ErrEmptyID is returned when an entry is registered without an ID.
var ErrEmptyID = errors.New("fieldregistry: id must not be empty")

// Registry is an ordered, concurrency-safe in-memory schema. Re-registering
// an ID replaces the entry but keeps its original position.
type Registry struct {
	mu       sync.RWMutex
	panels   ordered[field.Panel]
	sections ordered[field.Section]
	fields   ordered[field.Field]
}

var _ field.Registry = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		panels:   newOrdered[field.Panel](),
		sections: newOrdered[field.Section](),
		fields:   newOrdered[field.Field](),
	}
}

func (r *Registry) AddPanel(p field.Panel) error {
	if p.ID == "" {
		return fmt.Errorf("panel: %w", ErrEmptyID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels.put(p.ID, p)
	return nil
}

func (r *Registry) AddSection(s field.Section) error {
	if s.ID == "" {
		return fmt.Errorf("section: %w", ErrEmptyID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections.put(s.ID, s)
	return nil
}

func (r *Registry) AddField(f field.Field) error {
	if f.ID == "" {
		return fmt.Errorf("field: %w", ErrEmptyID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields.put(f.ID, f)
	return nil
}

func (r *Registry) Panels() []field.Panel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.panels.values()
}

func (r *Registry) Sections() []field.Section {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sections.values()
}

func (r *Registry) Fields() []field.Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fields.values()
}

// replaceWith swaps the contents of r for those of other.
func (r *Registry) replaceWith(other *Registry) {
	other.mu.RLock()
	panels, sections, fields := other.panels, other.sections, other.fields
	other.mu.RUnlock()

	r.mu.Lock()
	r.panels, r.sections, r.fields = panels, sections, fields
	r.mu.Unlock()
}

// ListRegisteredTypes returns the type of every registered field that has
// one, in registration order, duplicates included.
func (r *Registry) ListRegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.fields.keys))
	for _, f := range r.fields.values() {
		if f.Type != "" {
			types = append(types, f.Type)
		}
	}
	return types
}

type ordered[T any] struct {
	keys  []string
	items map[string]T
}

func newOrdered[T any]() ordered[T] {
	return ordered[T]{items: make(map[string]T)}
}

func (o *ordered[T]) put(key string, v T) {
	if _, exists := o.items[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.items[key] = v
}

func (o *ordered[T]) values() []T {
	out := make([]T, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.items[k])
	}
	return out
}

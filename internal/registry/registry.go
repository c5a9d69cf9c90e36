// Package registry keeps the objects a manager created, indexed by name.
package registry

import (
	"sync"

	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
)

// Named is implemented by anything a Registry can hold.
type Named interface {
	Name() string
}

// Registry is an ordered collection of T keyed by name. Add and Remove are
// the only mutators.
type Registry[T Named] struct {
	mu    sync.RWMutex
	items []T
}

// Add appends v. Names must be unique.
func (r *Registry[T]) Add(v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.Name() == v.Name() {
			return errors.Wrapf(errdefs.ErrAlreadyExists, "%q", v.Name())
		}
	}
	r.items = append(r.items, v)
	return nil
}

// Remove deletes the entry named name and returns it.
func (r *Registry[T]) Remove(name string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, it := range r.items {
		if it.Name() == name {
			r.items = append(r.items[:i:i], r.items[i+1:]...)
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Clear removes every entry and returns them.
func (r *Registry[T]) Clear() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items
	r.items = nil
	return items
}

// Get returns the entry named name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.Name() == name {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// List returns the entries in insertion order.
func (r *Registry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]T(nil), r.items...)
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

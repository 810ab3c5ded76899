// Package registry provides a generic, thread-safe registry of named factories.
//
// Example usage:
//
//	type TransformerFactory interface {
//		Create(params json.RawMessage) (Transformer, error)
//		GetType() string
//	}
//
//	transforms := registry.New[TransformerFactory]()
//	transforms.Register("SNV", snvFactory)
//	factory, err := transforms.Get("SNV")
package registry

import (
	"fmt"
	"sort"
	"sync"

	"spectral-workbench/internal/common/errors"
)

// Factory defines the interface that all factory types must implement
// to be used with the generic registry.
type Factory interface {
	// GetType returns the canonical name for this factory
	GetType() string
}

// Registry provides a generic, thread-safe registry for factory instances.
// Names registered through Alias resolve to the same factory but are not
// listed by GetAvailableTypes.
type Registry[T Factory] struct {
	factories map[string]T
	aliases   map[string]string
	mu        sync.RWMutex
}

// New creates a new empty registry for factories of type T.
func New[T Factory]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]T),
		aliases:   make(map[string]string),
	}
}

// Register adds a factory under name, replacing any factory already
// registered under that name.
func (r *Registry[T]) Register(name string, factory T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.aliases, name)
	r.factories[name] = factory
}

// Alias makes alias resolve to the factory registered as target.
func (r *Registry[T]) Alias(alias, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[target]; !ok {
		return errors.NotFoundError(fmt.Sprintf("factory type %s", target))
	}
	if _, ok := r.factories[alias]; ok {
		return errors.ValidationErrorf("alias %s shadows a registered factory", alias)
	}
	r.aliases[alias] = target
	return nil
}

// Get retrieves a factory by name or alias.
// Returns a not-found error if nothing is registered under name.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[name]; ok {
		name = target
	}
	factory, exists := r.factories[name]
	if !exists {
		var zero T
		return zero, errors.NotFoundError(fmt.Sprintf("factory type %s", name))
	}

	return factory, nil
}

// GetAvailableTypes returns the sorted canonical names of all registered factories.
func (r *Registry[T]) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// GetAliases returns a copy of the alias table.
func (r *Registry[T]) GetAliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.aliases))
	for alias, target := range r.aliases {
		out[alias] = target
	}
	return out
}

// IsRegistered reports whether name or an alias of it is registered.
func (r *Registry[T]) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.aliases[name]; ok {
		return true
	}
	_, exists := r.factories[name]
	return exists
}

// Count returns the number of registered factories, aliases excluded.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Clear removes all registered factories and aliases.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]T)
	r.aliases = make(map[string]string)
}

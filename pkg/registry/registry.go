// Package registry provides the small, genuinely-in-scope piece of named
// enforcer management: a mutex-guarded handle safe to share across
// goroutines, and the two construction policies ("shared, cached by name"
// vs. "isolated, always fresh") a caller chooses between. The full
// actor/RPC layer that would let a remote process look an instance up by
// name is an external concern this package does not attempt.
package registry

import "sync"

// Manager wraps one *enforcer.Enforcer (or any other value) behind a
// mutex, so concurrent callers can safely read and mutate it without
// building their own synchronization.
type Manager[T any] struct {
	mu   sync.Mutex
	inst T
}

// NewManager wraps inst for concurrency-safe access.
func NewManager[T any](inst T) *Manager[T] {
	return &Manager[T]{inst: inst}
}

// Use runs fn with exclusive access to the wrapped instance.
func (m *Manager[T]) Use(fn func(T) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.inst)
}

// Get returns the wrapped instance. Callers that need exclusive access for
// more than a single read should use Use instead.
func (m *Manager[T]) Get() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inst
}

// shared caches one Manager per name, constructing it at most once.
type shared[T any] struct {
	mu    sync.Mutex
	byKey map[string]*Manager[T]
}

// Shared is a name-keyed cache of Managers: the first call for a given name
// constructs and caches the instance; later calls for the same name return
// the cached Manager without invoking construct again.
type Shared[T any] struct {
	inner shared[T]
}

// NewShared returns an empty cache.
func NewShared[T any]() *Shared[T] {
	return &Shared[T]{inner: shared[T]{byKey: map[string]*Manager[T]{}}}
}

// Get returns the cached Manager for name, calling construct to build it
// only on the first request for that name. If construct returns an error,
// nothing is cached and the next call retries construction.
func (s *Shared[T]) Get(name string, construct func() (T, error)) (*Manager[T], error) {
	s.inner.mu.Lock()
	defer s.inner.mu.Unlock()

	if m, ok := s.inner.byKey[name]; ok {
		return m, nil
	}
	inst, err := construct()
	if err != nil {
		var zero T
		_ = zero
		return nil, err
	}
	m := NewManager(inst)
	s.inner.byKey[name] = m
	return m, nil
}

// Isolated always constructs a fresh Manager, performing no cache lookup;
// it is the "new instance every time" counterpart to Shared.
func Isolated[T any](construct func() (T, error)) (*Manager[T], error) {
	inst, err := construct()
	if err != nil {
		return nil, err
	}
	return NewManager(inst), nil
}

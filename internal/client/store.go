package client

import "sync"

// Store is a per-entity snapshot cache of the last-known server state. It
// replaces ambient global state with an owned object: readers get copies,
// mutations notify subscribers. Nothing is persisted beyond the session.
type Store[T any] struct {
	mu      sync.RWMutex
	items   []T
	keyOf   func(T) string
	subs    map[int]func([]T)
	nextSub int
}

// NewStore creates a store whose items are keyed by keyOf.
func NewStore[T any](keyOf func(T) string) *Store[T] {
	return &Store[T]{
		keyOf: keyOf,
		subs:  make(map[int]func([]T)),
	}
}

// Snapshot returns a copy of the current contents.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the item with the given key.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if s.keyOf(item) == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of cached items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Set replaces the whole snapshot.
func (s *Store[T]) Set(items []T) {
	s.mu.Lock()
	s.items = make([]T, len(items))
	copy(s.items, items)
	s.mu.Unlock()
	s.notify()
}

// Add appends one item.
func (s *Store[T]) Add(item T) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
	s.notify()
}

// Update replaces the item with the same key; unknown keys are appended.
func (s *Store[T]) Update(item T) {
	s.mu.Lock()
	replaced := false
	key := s.keyOf(item)
	for i := range s.items {
		if s.keyOf(s.items[i]) == key {
			s.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		s.items = append(s.items, item)
	}
	s.mu.Unlock()
	s.notify()
}

// Remove deletes the item with the given key, if present.
func (s *Store[T]) Remove(key string) {
	s.mu.Lock()
	for i := range s.items {
		if s.keyOf(s.items[i]) == key {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Subscribe registers fn to run after every mutation with a fresh snapshot.
// The returned function unsubscribes.
func (s *Store[T]) Subscribe(fn func([]T)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store[T]) notify() {
	s.mu.RLock()
	snapshot := make([]T, len(s.items))
	copy(snapshot, s.items)
	fns := make([]func([]T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}

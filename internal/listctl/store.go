package listctl

import "sync"

// ResultStore holds the last applied ResultSet of a list, shared across
// views. Replace swaps the whole set; entries are never patched.
type ResultStore[T any] interface {
	Get() ResultSet[T]
	Replace(ResultSet[T])
	// Subscribe returns a channel signalled after every Replace and a
	// function that detaches it. Signals coalesce: a slow reader sees
	// at least one signal after the latest Replace.
	Subscribe() (<-chan struct{}, func())
}

// MemoryStore is the in-process ResultStore.
type MemoryStore[T any] struct {
	mu          sync.RWMutex
	current     ResultSet[T]
	subscribers map[int]chan struct{}
	nextID      int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{subscribers: make(map[int]chan struct{})}
}

// Get returns the current result set.
func (s *MemoryStore[T]) Get() ResultSet[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in rs and signals subscribers.
func (s *MemoryStore[T]) Replace(rs ResultSet[T]) {
	s.mu.Lock()
	s.current = rs
	subs := make([]chan struct{}, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		signal(ch)
	}
}

// Subscribe registers a change channel.
func (s *MemoryStore[T]) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// signal performs a coalescing, non-blocking send.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

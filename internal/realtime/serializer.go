package realtime

import "sync"

// Serializer guarantees that mutations enqueued for the same entity
// key run one at a time in submission order, while mutations for
// different keys proceed independently. Each live key owns a drain
// goroutine that is torn down as soon as its queue empties, so idle
// entities cost nothing.
type Serializer struct {
	mu sync.Mutex

	// queues holds the backlog per in-flight key. Presence of a key
	// means a drain goroutine is running for it; the slice is the
	// work it has not picked up yet.
	queues map[string][]func()
}

// NewSerializer creates an empty serializer.
func NewSerializer() *Serializer {
	return &Serializer{queues: make(map[string][]func())}
}

// Enqueue schedules fn for key. The returned channel closes when fn
// has finished. fn always runs to completion once its turn arrives;
// there is no cancellation.
func (s *Serializer) Enqueue(key string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	s.mu.Lock()
	if backlog, running := s.queues[key]; running {
		s.queues[key] = append(backlog, wrapped)
		s.mu.Unlock()
		return done
	}
	s.queues[key] = nil
	s.mu.Unlock()

	go s.drain(key, wrapped)
	return done
}

// drain runs fn, then keeps pulling from the key's backlog until it
// is empty, at which point the key is deleted and the goroutine exits.
func (s *Serializer) drain(key string, fn func()) {
	for {
		fn()

		s.mu.Lock()
		backlog := s.queues[key]
		if len(backlog) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		fn = backlog[0]
		s.queues[key] = backlog[1:]
		s.mu.Unlock()
	}
}

// PendingKeys returns the number of keys with in-flight or queued
// work. Exposed for the status endpoint and tests.
func (s *Serializer) PendingKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

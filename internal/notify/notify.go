// Package notify fans state changes out to subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// event, which is fine for snapshot-style payloads where only the latest matters.
package notify

import "sync"

const defaultBuffer = 16

// Subscription receives published values on C until Close is called.
type Subscription[T any] struct {
	C       chan T
	closer  sync.Once
	manager *Manager[T]
}

// Close detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.closer.Do(func() {
		s.manager.remove(s)
	})
}

// Manager is a set of subscriptions for values of type T.
type Manager[T any] struct {
	mu          sync.Mutex
	subscribers map[*Subscription[T]]struct{}
	closed      bool
}

func NewManager[T any]() *Manager[T] {
	return &Manager[T]{subscribers: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a new buffered subscription. Subscribing to a closed
// manager yields an already closed channel.
func (m *Manager[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{C: make(chan T, defaultBuffer), manager: m}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(sub.C)
		return sub
	}
	m.subscribers[sub] = struct{}{}
	return sub
}

// Publish delivers t to every subscriber without blocking.
func (m *Manager[T]) Publish(t T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.subscribers {
		select {
		case sub.C <- t:
		default:
			// full buffer, drop
		}
	}
}

// Len reports the number of live subscriptions.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Close closes every subscription; later publishes are dropped.
func (m *Manager[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for sub := range m.subscribers {
		delete(m.subscribers, sub)
		close(sub.C)
	}
}

func (m *Manager[T]) remove(s *Subscription[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscribers[s]; !ok {
		return
	}
	delete(m.subscribers, s)
	close(s.C)
}

package events

import "sync"

// CallbackEvent is a minimal typed pub/sub primitive: listeners
// register a callback and receive every subsequent Notify value.
// When replayLast is enabled, a new listener is immediately called
// with the most recent value, if one exists.
type CallbackEvent[T any] struct {
	mu         sync.RWMutex
	listeners  map[uint64]func(T)
	nextID     uint64
	replayLast bool
	last       *T
}

// NewCallbackEvent creates a CallbackEvent. replayLast controls whether
// late listeners receive the last notified value on registration.
func NewCallbackEvent[T any](replayLast bool) *CallbackEvent[T] {
	return &CallbackEvent[T]{
		listeners:  make(map[uint64]func(T)),
		replayLast: replayLast,
	}
}

// Listen registers a callback and returns its deregistration function.
func (e *CallbackEvent[T]) Listen(callback func(T)) func() {
	if callback == nil {
		panic("events: nil callback")
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = callback
	var replay *T
	if e.replayLast && e.last != nil {
		v := *e.last
		replay = &v
	}
	e.mu.Unlock()

	// Replay outside the lock so the callback may re-enter.
	if replay != nil {
		callback(*replay)
	}

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Notify calls every registered listener with value.
func (e *CallbackEvent[T]) Notify(value T) {
	e.mu.Lock()
	if e.replayLast {
		v := value
		e.last = &v
	}
	callbacks := make([]func(T), 0, len(e.listeners))
	for _, cb := range e.listeners {
		callbacks = append(callbacks, cb)
	}
	e.mu.Unlock()

	for _, cb := range callbacks {
		cb(value)
	}
}

// ListenerCount returns the number of registered listeners.
func (e *CallbackEvent[T]) ListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

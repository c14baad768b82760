package auth

import "sync"

const (
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

// Change describes a session-state transition. An empty PrincipalID
// with EventSignedOut means no session remains.
type Change struct {
	Event       string
	PrincipalID string
}

// Notifier fans session changes out to subscribers. Handlers run on
// the emitting goroutine; subscribers that need to block should hand
// off to their own goroutine.
type Notifier struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Change)
}

func NewNotifier() *Notifier {
	return &Notifier{handlers: make(map[int]func(Change))}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (n *Notifier) Subscribe(handler func(Change)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.handlers[id] = handler
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.handlers, id)
		n.mu.Unlock()
	}
}

func (n *Notifier) emit(change Change) {
	n.mu.Lock()
	handlers := make([]func(Change), 0, len(n.handlers))
	for _, h := range n.handlers {
		handlers = append(handlers, h)
	}
	n.mu.Unlock()

	for _, h := range handlers {
		h(change)
	}
}

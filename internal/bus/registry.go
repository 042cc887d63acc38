package bus

import (
	"context"
	"sync"

	"github.com/tattva/tattva/internal/pkg/errors"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// registry is the subscription table shared by the bus implementations.
type registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
}

func errClosed() error {
	return errors.New(errors.CodeBus, "bus is closed")
}

// add appends h to topic and reports whether it is the topic's first handler.
func (r *registry) add(topic string, h Handler) (first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, errClosed()
	}
	if r.handlers == nil {
		r.handlers = make(map[string][]Handler)
	}
	r.handlers[topic] = append(r.handlers[topic], h)
	return len(r.handlers[topic]) == 1, nil
}

// whileOpen runs fn with the topic's handlers while holding the read lock,
// so close cannot complete until fn returns.
func (r *registry) whileOpen(topic string, fn func([]Handler)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errClosed()
	}
	fn(r.handlers[topic])
	return nil
}

// lookup returns a snapshot of topic's handlers.
func (r *registry) lookup(topic string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Handler(nil), r.handlers[topic]...)
}

// markClosed flips the registry to closed. It reports false if it already was.
func (r *registry) markClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.closed = true
	return true
}

func (r *registry) clear() {
	r.mu.Lock()
	r.handlers = nil
	r.mu.Unlock()
}

// deliver calls h and logs a failure. Handler errors never reach the publisher.
func deliver(ctx context.Context, log *logger.Logger, topic string, event Event, h Handler) {
	if err := h(ctx, event); err != nil {
		log.Warn("Event handler failed", "topic", topic, "event_id", event.ID, "error", err)
	}
}

package bus

import (
	"context"
	"sync"
	"time"

	"github.com/tattva/tattva/internal/pkg/logger"
)

// drainTimeout bounds how long Close waits for running handlers.
const drainTimeout = 10 * time.Second

// MemoryBus delivers events within the process. Each delivery runs on its own
// goroutine so publishers never block on subscribers.
type MemoryBus struct {
	registry
	log      *logger.Logger
	inflight sync.WaitGroup
}

// NewMemoryBus creates a new in-memory event bus.
func NewMemoryBus(log *logger.Logger) *MemoryBus {
	if log == nil {
		log = logger.Default()
	}
	return &MemoryBus{log: log.WithComponent("bus")}
}

// Publish hands event to every subscriber of topic. Having none is not an
// error. Handlers get a context that survives the publisher's cancellation.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	hctx := context.WithoutCancel(ctx)
	return b.whileOpen(topic, func(handlers []Handler) {
		for _, h := range handlers {
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				deliver(hctx, b.log, topic, event, h)
			}()
		}
	})
}

// Subscribe registers handler for topic.
func (b *MemoryBus) Subscribe(_ context.Context, topic string, handler Handler) error {
	_, err := b.add(topic, handler)
	return err
}

// Close stops accepting events and waits for running handlers.
func (b *MemoryBus) Close() error {
	if !b.markClosed() {
		return nil
	}
	if !b.DrainTimeout(drainTimeout) {
		b.log.Warn("Event drain timeout reached, some handlers may not have completed")
	}
	b.clear()
	return nil
}

// DrainTimeout waits up to timeout for running handlers and reports whether
// they all finished.
func (b *MemoryBus) DrainTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

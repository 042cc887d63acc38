package bus

import (
	"context"
	"time"
)

// MetricsRecorder receives bus activity. It is satisfied by *metrics.Metrics
// and kept here so the bus never imports the metrics package.
type MetricsRecorder interface {
	RecordBusPublish(topic string, latency time.Duration, err error)
	RecordBusHandle(topic string, err error)
}

// InstrumentedBus records every publish and every handler invocation.
type InstrumentedBus struct {
	Bus
	rec MetricsRecorder
}

// NewInstrumentedBus wraps inner. A nil recorder returns a pass-through.
func NewInstrumentedBus(inner Bus, rec MetricsRecorder) *InstrumentedBus {
	return &InstrumentedBus{Bus: inner, rec: rec}
}

// Publish forwards to the wrapped bus and records latency and outcome.
func (b *InstrumentedBus) Publish(ctx context.Context, topic string, event Event) error {
	start := time.Now()
	err := b.Bus.Publish(ctx, topic, event)
	if b.rec != nil {
		b.rec.RecordBusPublish(topic, time.Since(start), err)
	}
	return err
}

// Subscribe registers handler so that each delivery and its error, if any,
// is counted under topic.
func (b *InstrumentedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if b.rec == nil {
		return b.Bus.Subscribe(ctx, topic, handler)
	}
	return b.Bus.Subscribe(ctx, topic, func(ctx context.Context, event Event) error {
		err := handler(ctx, event)
		b.rec.RecordBusHandle(topic, err)
		return err
	})
}

package metrics

import (
	"context"

	"github.com/tattva/tattva/internal/bus"
)

// findingEvent mirrors the JSON shape of a published finding.
type findingEvent struct {
	Correlation float64 `json:"correlation"`
	Variable    *string `json:"variable"`
	SpeciesID   *int64  `json:"species_id"`
}

// EventSubscriber subscribes to the event bus and updates metrics. Delivery
// counts come from bus.InstrumentedBus, so subscribe through one to get them.
type EventSubscriber struct {
	metrics *Metrics
	bus     bus.Bus
}

// NewEventSubscriber creates a new event subscriber.
func NewEventSubscriber(metrics *Metrics, eventBus bus.Bus) *EventSubscriber {
	return &EventSubscriber{
		metrics: metrics,
		bus:     eventBus,
	}
}

// SubscribeToEvents subscribes to all relevant events and updates metrics.
func (es *EventSubscriber) SubscribeToEvents(ctx context.Context) error {
	if err := es.bus.Subscribe(ctx, bus.TopicFindingComputed, es.handleFindingComputed); err != nil {
		return err
	}
	return es.bus.Subscribe(ctx, bus.TopicContextBuilt, es.handleContextBuilt)
}

// handleFindingComputed tracks the strength of the latest finding. Events
// may arrive from other instances through a shared broker.
func (es *EventSubscriber) handleFindingComputed(ctx context.Context, event bus.Event) error {
	var f findingEvent
	if err := bus.DecodePayload(event, &f); err != nil {
		return err
	}
	es.metrics.RecordFinding(f.Correlation, f.Variable == nil || f.SpeciesID == nil)
	return nil
}

// handleContextBuilt only marks the topic as consumed; the delivery itself is
// what gets counted.
func (es *EventSubscriber) handleContextBuilt(ctx context.Context, event bus.Event) error {
	return nil
}

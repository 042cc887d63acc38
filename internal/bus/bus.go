// Package bus provides event bus implementations for broadcasting domain
// events between components.
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "correlation.finding.computed").
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// RequestID links the event to the request that caused it.
	RequestID string `json:"request_id,omitempty"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(eventType, source string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// DecodePayload copies the event payload into dst. Payloads that crossed a
// network transport arrive as generic JSON values, so this round-trips
// through JSON rather than asserting a type.
func DecodePayload(event Event, dst any) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Topics for different event types.
const (
	// TopicFindingComputed carries a freshly computed correlation finding.
	TopicFindingComputed = "correlation.finding.computed"

	// TopicContextBuilt carries a summary of each assembled context snapshot.
	TopicContextBuilt = "insight.context.built"
)

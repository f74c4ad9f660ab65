// Package events publishes review lifecycle events to a presentation layer or
// downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Type names an outward event.
type Type string

const (
	AnalysisCompleted Type = "analysis.completed"
	ItemTransition    Type = "item.transition"
	AutoFixProgress   Type = "autofix.progress"
	AutoFixCompleted  Type = "autofix.completed"
)

// Event is the envelope sent to every publisher.
type Event struct {
	Type       Type      `json:"type"`
	SessionID  string    `json:"sessionId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
	Version    int       `json:"version"`
}

// New stamps an event with the current time and envelope version.
func New(t Type, sessionID string, data any) Event {
	return Event{
		Type:       t,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
		Version:    1,
	}
}

// Encode returns the JSON representation of an event.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. A failed publish never changes review state.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emit publishes e when p is non-nil, logging and dropping any error.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logPublishError(e, err)
	}
}

package events

import (
	"context"

	"legalreview-backend/internal/shared/telemetry"
)

// LogPublisher writes events to the structured log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	telemetry.Info("event."+string(e.Type), map[string]any{
		"session_id": e.SessionID,
		"data":       e.Data,
	})
	return nil
}

func logPublishError(e Event, err error) {
	telemetry.Warn("event.publish.failed", map[string]any{
		"type":       string(e.Type),
		"session_id": e.SessionID,
		"error":      err,
	})
}

var _ Publisher = LogPublisher{}

// Package audit stores review events drained from the events queue.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"legalreview-backend/internal/events"
	"legalreview-backend/internal/shared/telemetry"
)

// Sink records events. With a nil DB events are only logged.
type Sink struct {
	DB *sql.DB
}

// Handle satisfies events.Handler. A returned error leaves the message queued.
func (s *Sink) Handle(ctx context.Context, e events.Event) error {
	fields := map[string]any{
		"type":        e.Type,
		"session_id":  e.SessionID,
		"occurred_at": e.OccurredAt,
	}
	if s.DB == nil {
		telemetry.Info("audit.event", fields)
		return nil
	}

	var payload []byte
	if e.Data != nil {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = raw
	}
	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO review_events (event_type, session_id, occurred_at, payload) VALUES ($1, $2, $3, $4)`,
		string(e.Type), e.SessionID, e.OccurredAt, payload,
	); err != nil {
		return fmt.Errorf("insert review event: %w", err)
	}
	telemetry.Info("audit.event.stored", fields)
	return nil
}

// HandleBody decodes a raw queue message body and records it. Undecodable
// bodies return a *DecodeError so callers can drop them instead of retrying.
func (s *Sink) HandleBody(ctx context.Context, body string) error {
	e, err := events.Decode(body)
	if err != nil {
		return &DecodeError{Err: err}
	}
	return s.Handle(ctx, e)
}

// DecodeError marks a message that will never decode.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

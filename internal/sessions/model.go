package sessions

import (
	"errors"
	"sync/atomic"
	"time"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/documents"
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/items"
)

var (
	ErrNotFound        = errors.New("review session not found")
	ErrBatchRunning    = errors.New("an auto-fix batch is already running for this review")
	ErrInvalidQuestion = errors.New("question is required")
	ErrNoAssistant     = errors.New("document assistant not configured")
	ErrAskFailed       = errors.New("document assistant failed")
)

// Session holds one analysis run and the item board derived from it. A new
// analysis always creates a new session.
type Session struct {
	ID        string
	Owner     string
	Document  documents.Document
	Context   string
	Run       analyses.Run
	Board     *fixes.Board
	CreatedAt time.Time
	ExpiresAt time.Time

	batching atomic.Bool
}

// View is the wire representation of a session.
type View struct {
	ID             string              `json:"id"`
	FileName       string              `json:"fileName"`
	MimeType       string              `json:"mimeType"`
	Context        string              `json:"documentContext"`
	Notice         analyses.Notice     `json:"notice"`
	Message        string              `json:"message,omitempty"`
	Run            analyses.Run        `json:"run"`
	Items          items.Set           `json:"items"`
	Counts         map[items.State]int `json:"counts"`
	AutoFixRunning bool                `json:"autoFixRunning"`
	ArchiveKey     string              `json:"archiveKey,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	ExpiresAt      time.Time           `json:"expiresAt"`
}

// View snapshots the session.
func (s *Session) View() View {
	set := s.Board.Snapshot()
	v := View{
		ID:             s.ID,
		FileName:       s.Document.FileName,
		MimeType:       s.Document.MimeType,
		Context:        s.Context,
		Notice:         s.Run.Notice(),
		Message:        s.Run.Message(),
		Run:            s.Run,
		Items:          set,
		Counts:         set.Counts(),
		AutoFixRunning: s.batching.Load(),
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
	}
	if s.Document.Archive != nil {
		v.ArchiveKey = s.Document.Archive.Key
	}
	return v
}

package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/doccontext"
	"legalreview-backend/internal/documents"
	"legalreview-backend/internal/events"
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/items"
	"legalreview-backend/internal/shared/metrics"
	"legalreview-backend/internal/shared/telemetry"
	"legalreview-backend/internal/usage"
)

// Assistant answers free-form questions about a document.
type Assistant interface {
	Ask(ctx context.Context, doc analyses.Request, question string) (string, error)
}

// Service runs the review workflow: ingest, analyze, normalize, then fix.
type Service struct {
	Documents    *documents.Service
	Resolver     doccontext.Resolver
	Orchestrator *analyses.Orchestrator
	Fixer        fixes.Provider
	Assistant    Assistant
	// Usage is optional; when nil analyses are not metered.
	Usage      *usage.Service
	Repo       Repo
	Events     events.Publisher
	FixTimeout time.Duration
	TTL        time.Duration
	Now        func() time.Time
}

// StartInput describes a new review. Exactly one of Text, Data or ObjectKey
// is used; ObjectKey names a direct upload in the object store.
type StartInput struct {
	Owner     string
	FileName  string
	MimeType  string
	Data      []byte
	Text      string
	ObjectKey string
	Context   string
}

// Start analyzes a document and opens a session for it.
func (s *Service) Start(ctx context.Context, in StartInput) (*Session, error) {
	doc, err := s.ingest(ctx, in)
	if err != nil {
		return nil, err
	}
	name := in.FileName
	if name == "" && in.ObjectKey != "" {
		name = doc.FileName
	}
	docContext := s.Resolver.Resolve(in.Context, name)

	sessionID := uuid.NewString()
	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, in.Owner, sessionID, 1); err != nil {
			return nil, err
		}
	}

	run, err := s.Orchestrator.Run(ctx, doc.Request(docContext))
	if err != nil {
		s.refund(ctx, in.Owner, sessionID, err)
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:        sessionID,
		Owner:     in.Owner,
		Document:  doc,
		Context:   docContext,
		Run:       run,
		CreatedAt: now,
	}
	if s.TTL > 0 {
		sess.ExpiresAt = now.Add(s.TTL)
	}
	board := fixes.NewBoard(items.Normalize(run), docContext, s.Fixer)
	board.SessionID = sess.ID
	board.Events = s.Events
	board.Timeout = s.FixTimeout
	sess.Board = board

	if err := s.Repo.Save(ctx, sess); err != nil {
		s.refund(ctx, in.Owner, sessionID, err)
		return nil, err
	}

	s.recordRun(ctx, sess)
	return sess, nil
}

// refund releases the run reserved for a start that produced no session.
func (s *Service) refund(ctx context.Context, owner, sessionID string, cause error) {
	if s.Usage == nil {
		return
	}
	if _, err := s.Usage.Refund(context.WithoutCancel(ctx), owner, sessionID, 1); err != nil {
		telemetry.Warn("usage.refund.failed", map[string]any{
			"session_id": sessionID,
			"principal":  owner,
			"cause":      cause,
			"error":      err,
		})
	}
}

func (s *Service) ingest(ctx context.Context, in StartInput) (documents.Document, error) {
	sources := 0
	for _, set := range []bool{strings.TrimSpace(in.Text) != "", len(in.Data) > 0, strings.TrimSpace(in.ObjectKey) != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return documents.Document{}, &analyses.InputContractError{Field: "document", Reason: "provide exactly one of text, a file or an uploaded object"}
	}
	if strings.TrimSpace(in.Text) != "" {
		return documents.FromText(in.FileName, in.Text)
	}
	if s.Documents == nil {
		return documents.Document{}, errors.New("document ingestion not configured")
	}
	if in.ObjectKey != "" {
		return s.Documents.IngestObject(ctx, in.Owner, in.ObjectKey, in.MimeType)
	}
	return s.Documents.Ingest(ctx, in.Owner, in.FileName, in.MimeType, in.Data)
}

func (s *Service) recordRun(ctx context.Context, sess *Session) {
	run := sess.Run
	metrics.IncAnalysisRun(run.AllFailed)
	metrics.ObserveAnalysisDurationMs(float64(run.CompletedAt.Sub(run.StartedAt).Milliseconds()))
	failed := make([]string, 0, len(analyses.Kinds))
	for _, o := range run.Failures() {
		metrics.IncAnalysisKindFailed(string(o.Kind))
		failed = append(failed, string(o.Kind))
	}

	set := sess.Board.Snapshot()
	telemetry.Info("review.started", map[string]any{
		"session_id":   sess.ID,
		"run_id":       run.ID,
		"principal":    sess.Owner,
		"context":      sess.Context,
		"notice":       run.Notice(),
		"clauses":      len(set.Clauses),
		"points":       len(set.Points),
		"failed_kinds": failed,
	})
	events.Emit(ctx, s.Events, events.New(events.AnalysisCompleted, sess.ID, map[string]any{
		"runId":       run.ID,
		"notice":      run.Notice(),
		"failedKinds": failed,
		"counts":      set.Counts(),
	}))
}

// Get returns a session owned by owner.
func (s *Service) Get(ctx context.Context, owner, id string) (*Session, error) {
	sess, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Owner != owner {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Propose requests a fix for one item.
func (s *Service) Propose(ctx context.Context, owner, id string, target fixes.Target) (items.Set, error) {
	sess, err := s.Get(ctx, owner, id)
	if err != nil {
		return items.Set{}, err
	}
	set, err := sess.Board.Propose(ctx, target)
	var provErr *fixes.ProviderError
	switch {
	case err == nil:
		metrics.IncFixCall("succeeded")
	case errors.As(err, &provErr):
		metrics.IncFixCall("failed")
	}
	return set, err
}

// Accept confirms a proposed fix.
func (s *Service) Accept(ctx context.Context, owner, id string, target fixes.Target) (items.Set, error) {
	sess, err := s.Get(ctx, owner, id)
	if err != nil {
		return items.Set{}, err
	}
	return sess.Board.Accept(ctx, target)
}

// Revert restores an item to its original content.
func (s *Service) Revert(ctx context.Context, owner, id string, target fixes.Target) (items.Set, error) {
	sess, err := s.Get(ctx, owner, id)
	if err != nil {
		return items.Set{}, err
	}
	return sess.Board.Revert(ctx, target)
}

// AutoFix runs the batch sequencer over the session's eligible items. Only
// one batch may run per session at a time.
func (s *Service) AutoFix(ctx context.Context, owner, id string, observe func(fixes.Step)) (fixes.Summary, error) {
	sess, err := s.Get(ctx, owner, id)
	if err != nil {
		return fixes.Summary{}, err
	}
	if !sess.batching.CompareAndSwap(false, true) {
		return fixes.Summary{}, ErrBatchRunning
	}
	defer sess.batching.Store(false)

	seq := &fixes.Sequencer{Board: sess.Board}
	sum := seq.RunWithProgress(ctx, func(step fixes.Step) {
		if step.Phase == fixes.PhaseSettled {
			if step.OK() {
				metrics.IncFixCall("succeeded")
			} else {
				metrics.IncFixCall("failed")
			}
		}
		if observe != nil {
			observe(step)
		}
	})
	metrics.IncAutoFixBatch()
	return sum, nil
}

// Ask answers a question using only the session's document.
func (s *Service) Ask(ctx context.Context, owner, id, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrInvalidQuestion
	}
	if s.Assistant == nil {
		return "", ErrNoAssistant
	}
	sess, err := s.Get(ctx, owner, id)
	if err != nil {
		return "", err
	}
	answer, err := s.Assistant.Ask(ctx, sess.Document.Request(sess.Context), question)
	if err != nil {
		telemetry.Warn("review.ask.failed", map[string]any{
			"session_id": sess.ID,
			"error":      err,
		})
		return "", fmt.Errorf("%w: %w", ErrAskFailed, err)
	}
	metrics.IncQuestion()
	return answer, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

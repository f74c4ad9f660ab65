package fixes

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"legalreview-backend/internal/events"
	"legalreview-backend/internal/items"
	"legalreview-backend/internal/shared/telemetry"
)

// CompletedMessage is the final progress message of every batch.
const CompletedMessage = "Auto-fix process completed."

// Phase marks where a batch step is in its item's lifecycle.
type Phase string

const (
	// PhaseStarted is yielded after the item is marked busy and before the
	// provider call.
	PhaseStarted Phase = "started"
	// PhaseSettled is yielded once the provider call has succeeded or failed.
	PhaseSettled Phase = "settled"
	// PhaseSkipped is yielded for items that were not attempted.
	PhaseSkipped Phase = "skipped"
)

// Step is one observation of a running batch.
type Step struct {
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Target   Target `json:"target"`
	Phase    Phase  `json:"phase"`
	Progress string `json:"progress"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether a settled step succeeded.
func (s Step) OK() bool {
	return s.Phase == PhaseSettled && s.Err == nil
}

// Summary aggregates a finished batch.
type Summary struct {
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message"`
}

// Sequencer fixes every eligible item of a board one at a time, clauses first
// and then fixable missing points. Item k+1 is never started before item k
// has settled, and a failed item never stops the batch.
type Sequencer struct {
	Board *Board
}

// ProgressLabel names an item kind in progress messages.
func ProgressLabel(c items.Collection) string {
	if c == items.CollectionClauses {
		return "flagged clause"
	}
	return "missing point"
}

// ProgressMessage renders "Fixing <kind> k of n...".
func ProgressMessage(c items.Collection, k, n int) string {
	return fmt.Sprintf("Fixing %s %d of %d...", ProgressLabel(c), k, n)
}

// Steps returns a lazy sequence over the batch. The eligible list is a
// snapshot taken when iteration starts. Stopping iteration early leaves the
// remaining items untouched. Once ctx is done, remaining items are yielded as
// skipped without provider calls.
func (s *Sequencer) Steps(ctx context.Context) iter.Seq[Step] {
	return func(yield func(Step) bool) {
		b := s.Board
		eligible := b.Snapshot().Eligible()
		total := len(eligible)

		for i, target := range eligible {
			step := Step{Index: i + 1, Total: total, Target: target}
			step.Progress = ProgressMessage(target.Collection, step.Index, total)

			if err := ctx.Err(); err != nil {
				step.Phase, step.Err, step.Error = PhaseSkipped, err, err.Error()
				if !yield(step) {
					return
				}
				continue
			}

			req, err := b.begin(ctx, target)
			if err != nil {
				// Changed state since the snapshot, e.g. a concurrent propose.
				step.Phase, step.Err, step.Error = PhaseSkipped, err, err.Error()
				if !yield(step) {
					return
				}
				continue
			}

			events.Emit(ctx, b.Events, events.New(events.AutoFixProgress, b.SessionID, map[string]any{
				"message": step.Progress,
				"index":   step.Index,
				"total":   total,
				"target":  target,
			}))
			step.Phase = PhaseStarted
			if !yield(step) {
				// The item is already busy; settle it before stopping.
				_, _ = b.finish(ctx, target, req)
				return
			}

			_, err = b.finish(ctx, target, req)
			step.Phase = PhaseSettled
			if err != nil {
				step.Err, step.Error = err, unwrapProvider(err).Error()
			}
			if !yield(step) {
				return
			}
		}
	}
}

// Run drains Steps and returns the aggregate counts.
func (s *Sequencer) Run(ctx context.Context) Summary {
	return s.RunWithProgress(ctx, nil)
}

// RunWithProgress is Run with a callback receiving every step as it happens.
func (s *Sequencer) RunWithProgress(ctx context.Context, observe func(Step)) Summary {
	var sum Summary
	for step := range s.Steps(ctx) {
		if observe != nil {
			observe(step)
		}
		switch step.Phase {
		case PhaseSettled:
			if step.Err == nil {
				sum.Succeeded++
			} else {
				sum.Failed++
			}
		case PhaseSkipped:
			sum.Skipped++
		}
	}
	sum.Message = CompletedMessage

	b := s.Board
	telemetry.Info("autofix.completed", map[string]any{
		"session_id": b.SessionID,
		"succeeded":  sum.Succeeded,
		"failed":     sum.Failed,
		"skipped":    sum.Skipped,
	})
	// The caller may have gone away; the summary is still published.
	events.Emit(context.WithoutCancel(ctx), b.Events, events.New(events.AutoFixCompleted, b.SessionID, sum))
	return sum
}

func unwrapProvider(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err
	}
	return err
}

package analyses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"legalreview-backend/internal/shared/telemetry"
)

// Orchestrator runs every analysis kind concurrently and joins them once all
// have settled. A failing kind never cancels or delays its siblings.
type Orchestrator struct {
	Provider Provider
	// Timeout bounds each kind individually. Zero means no per-kind bound.
	Timeout time.Duration
	// Kinds overrides the default set of kinds, mainly for tests. Kinds not
	// listed are recorded as failures so a Run always carries five outcomes.
	Kinds []Kind
	Now   func() time.Time
}

// Run validates req and returns once all outcomes are known. Only contract
// violations are returned as errors; provider failures become Failure values.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Run, error) {
	if err := req.Validate(); err != nil {
		return Run{}, err
	}
	if o.Provider == nil {
		return Run{}, ErrNoProvider
	}

	run := Run{ID: uuid.NewString(), StartedAt: o.now()}
	for i, kind := range Kinds {
		run.Outcomes[i] = failure(kind, "analysis not requested")
	}

	kinds := o.Kinds
	if len(kinds) == 0 {
		kinds = Kinds[:]
	}

	// Each task writes only its own slot.
	var wg conc.WaitGroup
	for _, kind := range kinds {
		idx := kind.index()
		if idx < 0 {
			continue
		}
		wg.Go(func() {
			run.Outcomes[idx] = o.runOne(ctx, kind, req)
		})
	}
	wg.Wait()

	run.CompletedAt = o.now()
	run.settle()

	telemetry.Info("analysis.run.completed", map[string]any{
		"run_id":      run.ID,
		"notice":      string(run.Notice()),
		"failed":      len(run.Failures()),
		"duration_ms": run.CompletedAt.Sub(run.StartedAt).Milliseconds(),
	})
	return run, nil
}

func (o *Orchestrator) runOne(ctx context.Context, kind Kind, req Request) (out Outcome) {
	start := o.now()
	defer func() { out.Duration = o.now().Sub(start) }()

	callCtx := ctx
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	var (
		findings Findings
		err      error
		pc       panics.Catcher
	)
	pc.Try(func() {
		findings, err = o.Provider.Analyze(callCtx, kind, req)
	})
	if r := pc.Recovered(); r != nil {
		err = &ProviderError{Kind: kind, Reason: fmt.Sprintf("panic: %v", r.Value)}
	}

	switch {
	case err != nil:
		reason := failureReason(err)
		telemetry.Warn("analysis.kind.failed", map[string]any{
			"kind":  string(kind),
			"error": reason,
		})
		return failure(kind, reason)
	case empty(findings):
		return failure(kind, "provider returned no findings")
	case findings.Kind() != kind:
		return failure(kind, fmt.Sprintf("provider returned %s findings", findings.Kind()))
	}
	return success(kind, findings)
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Reason != "" {
			return pe.Reason
		}
		if pe.Err != nil {
			return pe.Err.Error()
		}
	}
	return err.Error()
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

package analyses

import (
	"strings"
	"time"
)

// Outcome is the settled result of one analysis kind: either Findings or a
// Failure reason, never both.
type Outcome struct {
	Kind     Kind          `json:"kind"`
	Findings Findings      `json:"findings,omitempty"`
	Failure  string        `json:"failure,omitempty"`
	Duration time.Duration `json:"-"`
}

// OK reports whether the analysis succeeded.
func (o Outcome) OK() bool {
	return o.Failure == "" && !empty(o.Findings)
}

func success(kind Kind, findings Findings) Outcome {
	return Outcome{Kind: kind, Findings: findings}
}

func failure(kind Kind, reason string) Outcome {
	if strings.TrimSpace(reason) == "" {
		reason = "unknown error"
	}
	return Outcome{Kind: kind, Failure: reason}
}

// Notice classifies a run for the presentation layer.
type Notice string

const (
	NoticeComplete  Notice = "complete"
	NoticePartial   Notice = "partial"
	NoticeAllFailed Notice = "all_failed"
)

// Run aggregates the outcomes of one analysis request. A new request always
// produces a new Run.
type Run struct {
	ID          string     `json:"id"`
	Outcomes    [5]Outcome `json:"outcomes"`
	AllFailed   bool       `json:"allFailed"`
	AnyFailed   bool       `json:"anyFailed"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt time.Time  `json:"completedAt"`
}

func (r *Run) settle() {
	failed := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed++
		}
	}
	r.AnyFailed = failed > 0
	r.AllFailed = failed == len(r.Outcomes)
}

// Outcome returns the outcome recorded for kind.
func (r Run) Outcome(kind Kind) Outcome {
	if i := kind.index(); i >= 0 {
		return r.Outcomes[i]
	}
	return failure(kind, "unknown analysis kind")
}

// Failures returns the failed outcomes in report order.
func (r Run) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Notice reports whether the run fully succeeded, partially failed or failed.
func (r Run) Notice() Notice {
	switch {
	case r.AllFailed:
		return NoticeAllFailed
	case r.AnyFailed:
		return NoticePartial
	default:
		return NoticeComplete
	}
}

// FailureSummary concatenates every failure reason. Empty when nothing failed.
func (r Run) FailureSummary() string {
	lines := r.failureLines()
	if len(lines) == 0 {
		return ""
	}
	if r.AllFailed {
		return "All AI analyses failed. Errors:\n" + strings.Join(lines, "\n")
	}
	return "Some AI analyses failed:\n" + strings.Join(lines, "\n")
}

func (r Run) failureLines() []string {
	failures := r.Failures()
	lines := make([]string, 0, len(failures))
	for _, o := range failures {
		lines = append(lines, o.Kind.Label()+" failed: "+o.Failure)
	}
	return lines
}

// PartialNotice opens the message of a run where only some kinds failed.
const PartialNotice = "Analysis partially complete. Some analyses could not be completed."

// Message is the user-facing notice text for the run. Partial and failed
// runs list one reason per failed kind.
func (r Run) Message() string {
	switch r.Notice() {
	case NoticeAllFailed:
		return r.FailureSummary()
	case NoticePartial:
		return PartialNotice + "\n" + strings.Join(r.failureLines(), "\n")
	default:
		return "Analysis complete."
	}
}

func (r Run) Summary() (*Summary, bool) {
	s, ok := r.Outcome(KindSummary).Findings.(*Summary)
	return s, ok && s != nil
}

func (r Run) Clauses() (*ClauseFindings, bool) {
	c, ok := r.Outcome(KindClauses).Findings.(*ClauseFindings)
	return c, ok && c != nil
}

func (r Run) Suggestions() (*Suggestions, bool) {
	s, ok := r.Outcome(KindSuggestions).Findings.(*Suggestions)
	return s, ok && s != nil
}

func (r Run) MissingPoints() (*MissingPoints, bool) {
	m, ok := r.Outcome(KindMissingPoints).Findings.(*MissingPoints)
	return m, ok && m != nil
}

func (r Run) PredictedOutcomes() (*Outcomes, bool) {
	o, ok := r.Outcome(KindOutcomes).Findings.(*Outcomes)
	return o, ok && o != nil
}

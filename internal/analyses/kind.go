package analyses

// Kind identifies one of the independent document analyses.
type Kind string

const (
	KindSummary       Kind = "summary"
	KindClauses       Kind = "clauses"
	KindSuggestions   Kind = "suggestions"
	KindMissingPoints Kind = "missingPoints"
	KindOutcomes      Kind = "outcomes"
)

// Kinds lists every analysis kind in report order.
var Kinds = [...]Kind{KindSummary, KindClauses, KindSuggestions, KindMissingPoints, KindOutcomes}

// Label returns the human-readable name used in failure summaries.
func (k Kind) Label() string {
	switch k {
	case KindSummary:
		return "Summarization"
	case KindClauses:
		return "Clause flagging"
	case KindSuggestions:
		return "Improvement suggestion"
	case KindMissingPoints:
		return "Missing points analysis"
	case KindOutcomes:
		return "Legal foresight analysis"
	default:
		return string(k)
	}
}

func (k Kind) index() int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return -1
}

package analyses

// Findings is the typed payload of one successful analysis.
type Findings interface {
	Kind() Kind
}

// Summary is the executive summary of a document.
type Summary struct {
	OverallSummary  string   `json:"overallSummary"`
	InvolvedParties []string `json:"involvedParties,omitempty"`
	KeyObligations  []string `json:"keyObligations,omitempty"`
	FinancialTerms  []string `json:"financialTerms,omitempty"`
	KeyDates        []string `json:"keyDates,omitempty"`
}

// FlaggedClause is one critical clause as reported by the provider.
type FlaggedClause struct {
	ClauseText string   `json:"clauseText"`
	Reason     string   `json:"reason"`
	RiskTags   []string `json:"riskTags,omitempty"`
}

// ClauseFindings lists critical clauses.
type ClauseFindings struct {
	CriticalClauses []FlaggedClause `json:"criticalClauses"`
}

// Suggestion is one drafting improvement.
type Suggestion struct {
	Area       string `json:"area"`
	Suggestion string `json:"suggestion"`
	Rationale  string `json:"rationale,omitempty"`
}

// Suggestions lists drafting improvements.
type Suggestions struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// MissingPoints lists absent provisions and recommendations to add them.
type MissingPoints struct {
	MissingPoints   []string `json:"missingPoints"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`
}

// PredictedOutcome is a practical consequence of an identified issue.
type PredictedOutcome struct {
	IdentifiedIssue           string `json:"identifiedIssue"`
	PotentialRealWorldOutcome string `json:"potentialRealWorldOutcome"`
	RiskCategory              string `json:"riskCategory,omitempty"`
}

// Outcomes is the outcome prediction for a document.
type Outcomes struct {
	OverallRiskAssessment    string             `json:"overallRiskAssessment"`
	PredictedOutcomes        []PredictedOutcome `json:"predictedOutcomes"`
	StrategicRecommendations []string           `json:"strategicRecommendations"`
}

func (*Summary) Kind() Kind        { return KindSummary }
func (*ClauseFindings) Kind() Kind { return KindClauses }
func (*Suggestions) Kind() Kind    { return KindSuggestions }
func (*MissingPoints) Kind() Kind  { return KindMissingPoints }
func (*Outcomes) Kind() Kind       { return KindOutcomes }

// empty reports whether f carries no payload, including a typed nil pointer.
func empty(f Findings) bool {
	switch v := f.(type) {
	case nil:
		return true
	case *Summary:
		return v == nil
	case *ClauseFindings:
		return v == nil
	case *Suggestions:
		return v == nil
	case *MissingPoints:
		return v == nil
	case *Outcomes:
		return v == nil
	}
	return false
}

// NewFindings returns an empty payload for kind, ready to be decoded into.
func NewFindings(kind Kind) (Findings, bool) {
	switch kind {
	case KindSummary:
		return &Summary{}, true
	case KindClauses:
		return &ClauseFindings{}, true
	case KindSuggestions:
		return &Suggestions{}, true
	case KindMissingPoints:
		return &MissingPoints{}, true
	case KindOutcomes:
		return &Outcomes{}, true
	default:
		return nil, false
	}
}

package items

import (
	"strings"

	"github.com/google/uuid"

	"legalreview-backend/internal/analyses"
)

// Normalize builds the item arena from a run. Failed or absent kinds
// contribute nothing.
func Normalize(run analyses.Run) Set {
	return NormalizeWith(run, uuid.NewString)
}

// NormalizeWith is Normalize with an injectable id source.
func NormalizeWith(run analyses.Run, newID func() string) Set {
	set := Set{Clauses: []FlaggedClause{}, Points: []MissingPoint{}}

	if clauses, ok := run.Clauses(); ok {
		for _, raw := range clauses.CriticalClauses {
			set.Clauses = append(set.Clauses, FlaggedClause{
				ID:             newID(),
				OriginalText:   raw.ClauseText,
				OriginalReason: raw.Reason,
				CurrentText:    raw.ClauseText,
				CurrentReason:  raw.Reason,
				RiskTags:       riskTags(raw.RiskTags),
				State:          StateInitial,
			})
		}
	}

	if missing, ok := run.MissingPoints(); ok {
		for _, text := range missing.MissingPoints {
			set.Points = append(set.Points, point(newID(), PointMissing, text))
		}
		for _, text := range missing.Recommendations {
			set.Points = append(set.Points, point(newID(), PointRecommendation, text))
		}
		if strings.TrimSpace(missing.Summary) != "" {
			set.Points = append(set.Points, point(newID(), PointSummary, missing.Summary))
		}
	}

	return set
}

func point(id string, kind PointKind, text string) MissingPoint {
	return MissingPoint{
		ID:          id,
		Kind:        kind,
		Text:        text,
		Fixable:     kind == PointMissing,
		CurrentText: text,
		State:       StateInitial,
	}
}

func riskTags(raw []string) []RiskTag {
	tags := make([]RiskTag, 0, len(raw))
	seen := make(map[RiskTag]bool, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		tag := ParseRiskTag(r)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

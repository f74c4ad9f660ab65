// Package items holds the normalized, individually addressable findings of an
// analysis run and their fix-lifecycle state.
package items

import (
	"errors"
	"strings"
)

// Collection tags which item list an id belongs to.
type Collection string

const (
	CollectionClauses Collection = "flaggedClause"
	CollectionPoints  Collection = "missingPoint"
)

// ParseCollection accepts the wire tags and a few route-friendly aliases.
func ParseCollection(raw string) (Collection, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "flaggedclause", "flagged-clause", "clauses", "clause":
		return CollectionClauses, nil
	case "missingpoint", "missing-point", "points", "point":
		return CollectionPoints, nil
	}
	return "", errors.New("unknown item collection")
}

// State is the fix lifecycle state of an item.
type State string

const (
	StateInitial  State = "initial"
	StateProposed State = "proposed"
	StateAccepted State = "accepted"
)

// RiskTag classifies a flagged clause.
type RiskTag string

const (
	RiskControl     RiskTag = "Control Risk"
	RiskFinancial   RiskTag = "Financial Risk"
	RiskExit        RiskTag = "Exit Risk"
	RiskCompliance  RiskTag = "Compliance Risk"
	RiskOperational RiskTag = "Operational Risk"
	RiskReputation  RiskTag = "Reputational Risk"
	RiskAmbiguity   RiskTag = "Legal Ambiguity"
	RiskOther       RiskTag = "Other"
)

var knownRiskTags = []RiskTag{
	RiskControl, RiskFinancial, RiskExit, RiskCompliance,
	RiskOperational, RiskReputation, RiskAmbiguity, RiskOther,
}

// ParseRiskTag maps a provider tag onto the known set, case-insensitively.
// Anything unrecognized becomes RiskOther.
func ParseRiskTag(raw string) RiskTag {
	trimmed := strings.TrimSpace(raw)
	for _, tag := range knownRiskTags {
		if strings.EqualFold(string(tag), trimmed) {
			return tag
		}
	}
	return RiskOther
}

// FlaggedClause is a critical clause with its fix state. Original fields never
// change after normalization.
type FlaggedClause struct {
	ID             string    `json:"id"`
	OriginalText   string    `json:"originalText"`
	OriginalReason string    `json:"originalReason"`
	CurrentText    string    `json:"currentText"`
	CurrentReason  string    `json:"currentReason"`
	RiskTags       []RiskTag `json:"riskTags"`
	State          State     `json:"state"`
	FixLoading     bool      `json:"fixLoading"`
	FixError       string    `json:"fixError,omitempty"`
}

// PointKind distinguishes the entries derived from a missing-points analysis.
type PointKind string

const (
	PointMissing        PointKind = "missing"
	PointRecommendation PointKind = "recommendation"
	PointSummary        PointKind = "summary"
)

// MissingPoint is one missing-points entry. Only PointMissing entries are
// fixable.
type MissingPoint struct {
	ID            string    `json:"id"`
	Kind          PointKind `json:"kind"`
	Text          string    `json:"text"`
	Fixable       bool      `json:"isFixable"`
	CurrentText   string    `json:"currentText"`
	Justification string    `json:"justification,omitempty"`
	State         State     `json:"state"`
	FixLoading    bool      `json:"fixLoading"`
	FixError      string    `json:"fixError,omitempty"`
}

// Ref addresses one item.
type Ref struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
}

func (r Ref) String() string {
	return string(r.Collection) + "/" + r.ID
}

// Set is the arena of items for one run. Values are copied on every
// transition, so a Set handed out is never mutated afterwards.
type Set struct {
	Clauses []FlaggedClause `json:"flaggedClauses"`
	Points  []MissingPoint  `json:"missingPoints"`
}

// Clone returns a deep copy.
func (s Set) Clone() Set {
	out := Set{
		Clauses: make([]FlaggedClause, len(s.Clauses)),
		Points:  make([]MissingPoint, len(s.Points)),
	}
	copy(out.Points, s.Points)
	for i, c := range s.Clauses {
		c.RiskTags = append([]RiskTag(nil), c.RiskTags...)
		out.Clauses[i] = c
	}
	return out
}

// Clause looks up a flagged clause by id.
func (s Set) Clause(id string) (FlaggedClause, int, bool) {
	for i, c := range s.Clauses {
		if c.ID == id {
			return c, i, true
		}
	}
	return FlaggedClause{}, -1, false
}

// Point looks up a missing point by id.
func (s Set) Point(id string) (MissingPoint, int, bool) {
	for i, p := range s.Points {
		if p.ID == id {
			return p, i, true
		}
	}
	return MissingPoint{}, -1, false
}

// Eligible lists the items a batch fix would process, clauses first and then
// fixable missing points, each in their existing order.
func (s Set) Eligible() []Ref {
	var refs []Ref
	for _, c := range s.Clauses {
		if c.State == StateInitial && !c.FixLoading {
			refs = append(refs, Ref{Collection: CollectionClauses, ID: c.ID})
		}
	}
	for _, p := range s.Points {
		if p.Fixable && p.State == StateInitial && !p.FixLoading {
			refs = append(refs, Ref{Collection: CollectionPoints, ID: p.ID})
		}
	}
	return refs
}

// Counts tallies items by state across both collections. Read-only missing
// points are not counted.
func (s Set) Counts() map[State]int {
	counts := map[State]int{StateInitial: 0, StateProposed: 0, StateAccepted: 0}
	for _, c := range s.Clauses {
		counts[c.State]++
	}
	for _, p := range s.Points {
		if p.Fixable {
			counts[p.State]++
		}
	}
	return counts
}

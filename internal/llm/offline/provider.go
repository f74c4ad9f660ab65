// Package offline is a deterministic, keyword-driven stand-in for the LLM
// provider. It needs no network access and is used for local development,
// the CLI's --offline mode and tests.
package offline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/fixes"
)

// Provider implements analyses.Provider, fixes.Provider and question answering.
type Provider struct{}

func New() *Provider { return &Provider{} }

type clauseRule struct {
	keywords []string
	reason   string
	tags     []string
}

var clauseRules = []clauseRule{
	{
		keywords: []string{"liability", "liable"},
		reason:   "This clause allocates liability. Broad or uncapped liability can expose a party to losses well beyond the value of the agreement, and its enforceability varies.",
		tags:     []string{"Financial Risk", "Legal Ambiguity"},
	},
	{
		keywords: []string{"non-compete", "non compete", "not compete", "competitor"},
		reason:   "Non-compete restrictions can significantly limit future work. Their reasonableness and enforceability depend on duration, geography and jurisdiction.",
		tags:     []string{"Operational Risk", "Control Risk"},
	},
	{
		keywords: []string{"indemnif", "hold harmless"},
		reason:   "Indemnities shift third-party losses between the parties and are often drafted one-sided.",
		tags:     []string{"Financial Risk"},
	},
	{
		keywords: []string{"terminate", "termination"},
		reason:   "Termination rights determine how and when a party can exit. Unilateral or short-notice rights create exit risk.",
		tags:     []string{"Exit Risk"},
	},
	{
		keywords: []string{"penalty", "liquidated damages"},
		reason:   "Penalty provisions may be unenforceable and can impose disproportionate financial consequences.",
		tags:     []string{"Financial Risk", "Compliance Risk"},
	},
	{
		keywords: []string{"automatically renew", "auto-renew", "automatic renewal"},
		reason:   "Automatic renewal can lock a party into further terms without an active decision.",
		tags:     []string{"Exit Risk", "Financial Risk"},
	},
	{
		keywords: []string{"sole discretion", "exclusive"},
		reason:   "Exclusivity or sole-discretion language concentrates control in one party.",
		tags:     []string{"Control Risk"},
	},
}

type expectedProvision struct {
	keywords       []string
	missing        string
	recommendation string
}

var expectedProvisions = []expectedProvision{
	{
		keywords:       []string{"governing law", "governed by", "laws of"},
		missing:        "Governing law and jurisdiction are not specified.",
		recommendation: "Add a clause naming the governing law and the courts with jurisdiction over disputes.",
	},
	{
		keywords:       []string{"terminat"},
		missing:        "No termination provisions define how either party may end the agreement.",
		recommendation: "Add termination rights, notice periods and the consequences of termination.",
	},
	{
		keywords:       []string{"confidential"},
		missing:        "Confidentiality obligations are absent.",
		recommendation: "Add a confidentiality clause covering scope, duration and permitted disclosures.",
	},
	{
		keywords:       []string{"dispute", "arbitration", "mediation"},
		missing:        "There is no dispute resolution mechanism.",
		recommendation: "Add an escalation, mediation or arbitration procedure for disputes.",
	},
	{
		keywords:       []string{"force majeure", "act of god", "acts of god"},
		missing:        "Force majeure events are not addressed.",
		recommendation: "Add a force majeure clause listing excused events and notice requirements.",
	},
}

var vagueTerms = []struct {
	term       string
	suggestion string
}{
	{"reasonable", "Replace \"reasonable\" with an objective standard or a defined time frame."},
	{"best efforts", "Define what \"best efforts\" requires or use \"commercially reasonable efforts\" with examples."},
	{"as soon as possible", "Replace \"as soon as possible\" with a fixed number of days."},
	{"from time to time", "State how and when changes made \"from time to time\" are notified."},
}

var (
	sentenceSplit = regexp.MustCompile(`(?s)[^.!?\n]+[.!?]?`)
	datePattern   = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|(january|february|march|april|may|june|july|august|september|october|november|december) \d{1,2},? \d{4}|\d+ (days|months|years))\b`)
	moneyPattern  = regexp.MustCompile(`(\$|€|£|USD |EUR )\s?\d[\d,]*(\.\d+)?`)
	partyPattern  = regexp.MustCompile(`(?i)between\s+(.+?)\s+and\s+(.+?)(?:[,.;(]|$)`)
)

func sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func orNotSpecified(values []string) []string {
	if len(values) == 0 {
		return []string{"Not specified"}
	}
	return values
}

// Analyze returns findings derived from keyword rules over the document text.
// Binary-only documents yield placeholder findings.
func (p *Provider) Analyze(ctx context.Context, kind analyses.Kind, req analyses.Request) (analyses.Findings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch kind {
	case analyses.KindSummary:
		return summarize(req), nil
	case analyses.KindClauses:
		return flagClauses(req.Text), nil
	case analyses.KindSuggestions:
		return suggest(req.Text), nil
	case analyses.KindMissingPoints:
		return missingPoints(req.Text), nil
	case analyses.KindOutcomes:
		return predict(req.Text), nil
	}
	return nil, &analyses.ProviderError{Kind: kind, Reason: "unknown analysis kind"}
}

func summarize(req analyses.Request) *analyses.Summary {
	if !req.HasText() {
		return &analyses.Summary{
			OverallSummary:  fmt.Sprintf("A %s provided as an embedded %s document. Text-level details are not available offline.", req.Context, req.MimeType),
			InvolvedParties: orNotSpecified(nil),
			KeyObligations:  orNotSpecified(nil),
			FinancialTerms:  orNotSpecified(nil),
			KeyDates:        orNotSpecified(nil),
		}
	}

	all := sentences(req.Text)
	lead := all
	if len(lead) > 2 {
		lead = lead[:2]
	}
	out := &analyses.Summary{
		OverallSummary: fmt.Sprintf("%s (%d sentences reviewed). %s", req.Context, len(all), strings.Join(lead, " ")),
	}

	var parties, obligations []string
	if m := partyPattern.FindStringSubmatch(req.Text); m != nil {
		parties = []string{strings.TrimSpace(m[1]), strings.TrimSpace(m[2])}
	}
	for _, s := range all {
		lower := strings.ToLower(s)
		if strings.Contains(lower, " shall ") || strings.Contains(lower, " must ") || strings.Contains(lower, " agrees to ") {
			obligations = append(obligations, s)
		}
	}
	out.InvolvedParties = orNotSpecified(parties)
	out.KeyObligations = orNotSpecified(obligations)
	out.FinancialTerms = orNotSpecified(moneyPattern.FindAllString(req.Text, -1))
	out.KeyDates = orNotSpecified(datePattern.FindAllString(req.Text, -1))
	return out
}

func flagClauses(text string) *analyses.ClauseFindings {
	out := &analyses.ClauseFindings{CriticalClauses: []analyses.FlaggedClause{}}
	for _, s := range sentences(text) {
		lower := strings.ToLower(s)
		for _, rule := range clauseRules {
			if containsAny(lower, rule.keywords) {
				out.CriticalClauses = append(out.CriticalClauses, analyses.FlaggedClause{
					ClauseText: s,
					Reason:     rule.reason,
					RiskTags:   append([]string(nil), rule.tags...),
				})
				break
			}
		}
	}
	if len(out.CriticalClauses) == 0 {
		out.CriticalClauses = append(out.CriticalClauses, analyses.FlaggedClause{
			ClauseText: "Example critical clause (identified offline)",
			Reason:     "No high-risk keywords were found. This placeholder marks the document for manual review.",
			RiskTags:   []string{"Other"},
		})
	}
	return out
}

func suggest(text string) *analyses.Suggestions {
	lower := strings.ToLower(text)
	out := &analyses.Suggestions{Suggestions: []analyses.Suggestion{}}
	for _, v := range vagueTerms {
		if strings.Contains(lower, v.term) {
			out.Suggestions = append(out.Suggestions, analyses.Suggestion{
				Area:       "Vague language",
				Suggestion: v.suggestion,
				Rationale:  "Undefined standards invite disputes over what compliance requires.",
			})
		}
	}
	if !strings.Contains(lower, "definition") && !strings.Contains(lower, "means") {
		out.Suggestions = append(out.Suggestions, analyses.Suggestion{
			Area:       "Definitions",
			Suggestion: "Add a definitions section for key terms used throughout the document.",
			Rationale:  "Defined terms keep obligations consistent across clauses.",
		})
	}
	return out
}

func missingPoints(text string) *analyses.MissingPoints {
	lower := strings.ToLower(text)
	out := &analyses.MissingPoints{MissingPoints: []string{}, Recommendations: []string{}}
	for _, p := range expectedProvisions {
		if !containsAny(lower, p.keywords) {
			out.MissingPoints = append(out.MissingPoints, p.missing)
			out.Recommendations = append(out.Recommendations, p.recommendation)
		}
	}
	switch n := len(out.MissingPoints); n {
	case 0:
		out.Summary = "The document covers the standard provisions checked."
	default:
		out.Summary = fmt.Sprintf("%d of %d standard provisions appear to be missing.", n, len(expectedProvisions))
	}
	return out
}

func predict(text string) *analyses.Outcomes {
	clauses := flagClauses(text).CriticalClauses
	missing := missingPoints(text).MissingPoints
	out := &analyses.Outcomes{PredictedOutcomes: []analyses.PredictedOutcome{}, StrategicRecommendations: []string{}}

	for _, c := range clauses {
		category := "Contractual Risk"
		if len(c.RiskTags) > 0 {
			category = c.RiskTags[0]
		}
		out.PredictedOutcomes = append(out.PredictedOutcomes, analyses.PredictedOutcome{
			IdentifiedIssue:           c.ClauseText,
			PotentialRealWorldOutcome: "If invoked, this clause could lead to a dispute over its scope and enforceability.",
			RiskCategory:              category,
		})
	}
	for _, m := range missing {
		out.PredictedOutcomes = append(out.PredictedOutcomes, analyses.PredictedOutcome{
			IdentifiedIssue:           m,
			PotentialRealWorldOutcome: "Without this provision, default legal rules apply and may not favor either party.",
			RiskCategory:              "Contractual Risk",
		})
	}

	score := len(clauses) + len(missing)
	switch {
	case score >= 6:
		out.OverallRiskAssessment = "High risk: several critical clauses and missing provisions."
	case score >= 3:
		out.OverallRiskAssessment = "Moderate risk: some terms need attention before signing."
	default:
		out.OverallRiskAssessment = "Low risk: few issues were identified."
	}
	out.StrategicRecommendations = append(out.StrategicRecommendations,
		"Negotiate the flagged clauses before signing.",
		"Have qualified counsel review the final draft.",
	)
	return out
}

// Fix drafts replacement text from the problem description.
func (p *Provider) Fix(ctx context.Context, req fixes.Request) (fixes.Result, error) {
	if err := req.Validate(); err != nil {
		return fixes.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return fixes.Result{}, err
	}
	switch req.Mode {
	case fixes.ModeRewrite:
		text := strings.TrimRight(strings.TrimSpace(req.OriginalText), ".")
		return fixes.Result{
			FixedText:     text + ", to the extent permitted by applicable law and subject to the limits the parties agree in writing.",
			Justification: "Narrows the clause to address: " + req.Problem,
		}, nil
	default:
		return fixes.Result{
			FixedText:     "The parties agree that the following applies to this " + req.Context + ": " + strings.TrimSpace(req.Problem) + " This provision is resolved as set out in a schedule agreed in writing by both parties.",
			Justification: "Introduces a provision for the missing element.",
		}, nil
	}
}

// Ask answers with the document sentences that share the most words with the
// question.
func (p *Provider) Ask(ctx context.Context, doc analyses.Request, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question is required")
	}
	if !doc.HasText() {
		return "The document was provided as an embedded file and cannot be searched offline.", nil
	}
	words := significantWords(question)
	best, bestScore := "", 0
	for _, s := range sentences(doc.Text) {
		lower := strings.ToLower(s)
		score := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	if bestScore == 0 {
		return "The document does not address this question.", nil
	}
	return "According to the document: " + best, nil
}

func significantWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, "?.,!;:\"'")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

var (
	_ analyses.Provider = (*Provider)(nil)
	_ fixes.Provider    = (*Provider)(nil)
)

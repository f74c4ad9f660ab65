package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/fixes"
)

// Analyzer implements analyses.Provider on top of a Client.
type Analyzer struct {
	Client Client
}

func (a Analyzer) Analyze(ctx context.Context, kind analyses.Kind, req analyses.Request) (analyses.Findings, error) {
	if a.Client == nil {
		return nil, &analyses.ProviderError{Kind: kind, Err: ErrNotConfigured}
	}
	template, ok := PromptTemplate(kind)
	if !ok {
		return nil, &analyses.ProviderError{Kind: kind, Reason: "unknown analysis kind"}
	}
	findings, _ := analyses.NewFindings(kind)

	raw, err := a.Client.Complete(ctx, documentPrompt("analysis."+string(kind), template, req, ""))
	if err != nil {
		return nil, &analyses.ProviderError{Kind: kind, Reason: sanitizeError(err), Err: err}
	}
	if err := decodeObject(raw, findings); err != nil {
		return nil, &analyses.ProviderError{Kind: kind, Reason: err.Error(), Err: err}
	}
	if err := checkFindings(findings); err != nil {
		return nil, &analyses.ProviderError{Kind: kind, Reason: err.Error(), Err: err}
	}
	return findings, nil
}

// checkFindings rejects payloads missing the fields every consumer relies on.
func checkFindings(f analyses.Findings) error {
	switch v := f.(type) {
	case *analyses.Summary:
		if strings.TrimSpace(v.OverallSummary) == "" {
			return errors.New("summary response missing overallSummary")
		}
	case *analyses.ClauseFindings:
		for i, c := range v.CriticalClauses {
			if strings.TrimSpace(c.ClauseText) == "" || strings.TrimSpace(c.Reason) == "" {
				return fmt.Errorf("critical clause %d missing clauseText or reason", i)
			}
		}
	case *analyses.Suggestions:
		for i, s := range v.Suggestions {
			if strings.TrimSpace(s.Suggestion) == "" {
				return fmt.Errorf("suggestion %d missing text", i)
			}
		}
	case *analyses.Outcomes:
		if strings.TrimSpace(v.OverallRiskAssessment) == "" {
			return errors.New("outcome response missing overallRiskAssessment")
		}
	}
	return nil
}

// Fixer implements fixes.Provider on top of a Client.
type Fixer struct {
	Client Client
}

func (f Fixer) Fix(ctx context.Context, req fixes.Request) (fixes.Result, error) {
	if err := req.Validate(); err != nil {
		return fixes.Result{}, err
	}
	if f.Client == nil {
		return fixes.Result{}, ErrNotConfigured
	}

	var user strings.Builder
	switch req.Mode {
	case fixes.ModeRewrite:
		user.WriteString("Rewrite the following problematic clause.\nOriginal clause:\n")
		user.WriteString(req.OriginalText)
		user.WriteString("\n\nWhat to fix: ")
		user.WriteString(req.Problem)
	case fixes.ModeGenerate:
		user.WriteString("Draft a new clause that addresses the following missing element.\nMissing element: ")
		user.WriteString(req.Problem)
	}

	raw, err := f.Client.Complete(ctx, Prompt{
		Name:   "fix." + string(req.Mode),
		System: render(promptFix, req.Context),
		User:   user.String(),
		JSON:   true,
	})
	if err != nil {
		return fixes.Result{}, err
	}

	var out fixes.Result
	if err := decodeObject(raw, &out); err != nil {
		return fixes.Result{}, err
	}
	if strings.TrimSpace(out.FixedText) == "" {
		return fixes.Result{}, errors.New("fix response missing fixedClauseText")
	}
	return out, nil
}

// Assistant answers questions about a document.
type Assistant struct {
	Client Client
}

// Ask answers question from the document alone.
func (a Assistant) Ask(ctx context.Context, doc analyses.Request, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question is required")
	}
	if a.Client == nil {
		return "", ErrNotConfigured
	}
	raw, err := a.Client.Complete(ctx, documentPrompt("ask", promptAsk, doc, "User's question: "+question))
	if err != nil {
		return "", err
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := decodeObject(raw, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Answer) == "" {
		return "", errors.New("answer response missing answer")
	}
	return out.Answer, nil
}

var (
	_ analyses.Provider = Analyzer{}
	_ fixes.Provider    = Fixer{}
)

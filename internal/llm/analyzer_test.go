package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/fixes"
)

type fakeClient struct {
	resp    string
	err     error
	prompts []Prompt
}

func (f *fakeClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.resp, f.err
}

func TestAnalyzerDecodesClauses(t *testing.T) {
	client := &fakeClient{resp: "Here you go:\n```json\n{\"criticalClauses\":[{\"clauseText\":\"Unlimited liability.\",\"reason\":\"Liability is uncapped.\",\"riskTags\":[\"Financial Risk\"]}]}\n```"}
	req := analyses.Request{Text: "contract text", Context: "NDA"}

	findings, err := Analyzer{Client: client}.Analyze(context.Background(), analyses.KindClauses, req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	clauses, ok := findings.(*analyses.ClauseFindings)
	if !ok || len(clauses.CriticalClauses) != 1 || clauses.CriticalClauses[0].Reason != "Liability is uncapped." {
		t.Fatalf("unexpected findings: %#v", findings)
	}

	p := client.prompts[0]
	if p.Name != "analysis.clauses" || !p.JSON || p.Attachment != nil {
		t.Fatalf("unexpected prompt: %+v", p)
	}
	if !strings.Contains(p.System, "Document context: NDA") || !strings.Contains(p.User, "contract text") {
		t.Fatalf("prompt missing context or text")
	}
}

func TestAnalyzerAttachesBinary(t *testing.T) {
	client := &fakeClient{resp: `{"overallSummary":"A lease."}`}
	req := analyses.Request{Binary: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png", Context: "Lease"}

	if _, err := (Analyzer{Client: client}).Analyze(context.Background(), analyses.KindSummary, req); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	att := client.prompts[0].Attachment
	if att == nil || !att.IsImage() || !strings.HasPrefix(att.DataURI(), "data:image/png;base64,") {
		t.Fatalf("unexpected attachment: %+v", att)
	}
}

func TestAnalyzerFailures(t *testing.T) {
	cases := []struct {
		name   string
		client *fakeClient
		kind   analyses.Kind
	}{
		{name: "client error", client: &fakeClient{err: errors.New("openai http status 500: boom")}, kind: analyses.KindSummary},
		{name: "not json", client: &fakeClient{resp: "I cannot help with that."}, kind: analyses.KindSummary},
		{name: "schema mismatch", client: &fakeClient{resp: `{"criticalClauses":"none"}`}, kind: analyses.KindClauses},
		{name: "missing summary", client: &fakeClient{resp: `{"involvedParties":["A"]}`}, kind: analyses.KindSummary},
		{name: "clause without reason", client: &fakeClient{resp: `{"criticalClauses":[{"clauseText":"x"}]}`}, kind: analyses.KindClauses},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Analyzer{Client: tc.client}.Analyze(context.Background(), tc.kind, analyses.Request{Text: "x", Context: "c"})
			var provErr *analyses.ProviderError
			if !errors.As(err, &provErr) || provErr.Kind != tc.kind {
				t.Fatalf("expected ProviderError for %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestFixerRewriteAndGenerate(t *testing.T) {
	client := &fakeClient{resp: `{"fixedClauseText":"Liability is capped at fees paid.","justificationNote":"caps exposure"}`}
	fixer := Fixer{Client: client}

	res, err := fixer.Fix(context.Background(), fixes.Request{Problem: "uncapped liability", Context: "NDA", OriginalText: "Unlimited liability.", Mode: fixes.ModeRewrite})
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}
	if res.FixedText != "Liability is capped at fees paid." || res.Justification != "caps exposure" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(client.prompts[0].User, "Unlimited liability.") {
		t.Fatalf("rewrite prompt must carry the original clause")
	}

	if _, err := fixer.Fix(context.Background(), fixes.Request{Problem: "Governing law", Context: "NDA", Mode: fixes.ModeGenerate}); err != nil {
		t.Fatalf("generate Fix: %v", err)
	}
	if client.prompts[1].Name != "fix.generate" {
		t.Fatalf("unexpected prompt name %q", client.prompts[1].Name)
	}
}

func TestFixerContractAndEmptyText(t *testing.T) {
	client := &fakeClient{resp: `{"justificationNote":"only a note"}`}
	fixer := Fixer{Client: client}

	_, err := fixer.Fix(context.Background(), fixes.Request{Problem: "p", Mode: fixes.ModeRewrite})
	var contractErr *fixes.InputContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("expected InputContractError, got %v", err)
	}
	if len(client.prompts) != 0 {
		t.Fatalf("invalid request must not reach the client")
	}

	if _, err := fixer.Fix(context.Background(), fixes.Request{Problem: "p", Mode: fixes.ModeGenerate}); err == nil {
		t.Fatalf("expected error for missing fixedClauseText")
	}
}

func TestAssistantAsk(t *testing.T) {
	client := &fakeClient{resp: `{"answer":"The term is 12 months."}`}
	answer, err := Assistant{Client: client}.Ask(context.Background(), analyses.Request{Text: "Term: 12 months.", Context: "Lease"}, "How long is the term?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "The term is 12 months." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if !strings.Contains(client.prompts[0].User, "How long is the term?") {
		t.Fatalf("question missing from prompt")
	}
	if _, err := (Assistant{Client: client}).Ask(context.Background(), analyses.Request{Text: "x", Context: "c"}, " "); err == nil {
		t.Fatalf("expected error for blank question")
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := map[string]bool{
		`{"a":1}`:                 true,
		"prefix {\"a\":1} suffix": true,
		"":                        false,
		"no braces":               false,
		"{not json}":              false,
	}
	for raw, ok := range cases {
		_, err := extractJSONObject(raw)
		if (err == nil) != ok {
			t.Fatalf("extractJSONObject(%q) err=%v, want ok=%v", raw, err, ok)
		}
	}
}

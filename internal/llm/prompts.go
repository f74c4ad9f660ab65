package llm

import (
	_ "embed"
	"strings"

	"legalreview-backend/internal/analyses"
)

var (
	//go:embed prompts/summary.txt
	promptSummary string
	//go:embed prompts/clauses.txt
	promptClauses string
	//go:embed prompts/suggestions.txt
	promptSuggestions string
	//go:embed prompts/missing_points.txt
	promptMissingPoints string
	//go:embed prompts/outcomes.txt
	promptOutcomes string
	//go:embed prompts/fix.txt
	promptFix string
	//go:embed prompts/ask.txt
	promptAsk string
)

// PromptTemplate returns the system prompt for an analysis kind and whether
// the kind was recognized.
func PromptTemplate(kind analyses.Kind) (string, bool) {
	switch kind {
	case analyses.KindSummary:
		return promptSummary, true
	case analyses.KindClauses:
		return promptClauses, true
	case analyses.KindSuggestions:
		return promptSuggestions, true
	case analyses.KindMissingPoints:
		return promptMissingPoints, true
	case analyses.KindOutcomes:
		return promptOutcomes, true
	default:
		return "", false
	}
}

func render(template, docContext string) string {
	if strings.TrimSpace(docContext) == "" {
		docContext = "General legal document"
	}
	return strings.NewReplacer("{{CONTEXT}}", docContext).Replace(template)
}

// documentPrompt builds a prompt carrying the document as text or attachment.
func documentPrompt(name, system string, req analyses.Request, extra string) Prompt {
	p := Prompt{Name: name, System: render(system, req.Context), JSON: true}

	var b strings.Builder
	if req.HasText() {
		b.WriteString("Document Text:\n")
		b.WriteString(req.Text)
	} else {
		b.WriteString("The document is attached.")
		p.Attachment = &Attachment{MimeType: req.MimeType, FileName: req.FileName, Data: req.Binary}
	}
	if extra != "" {
		b.WriteString("\n\n")
		b.WriteString(extra)
	}
	p.User = b.String()
	return p
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/documents"
	"legalreview-backend/internal/events"
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/llm/offline"
	"legalreview-backend/internal/sessions"
)

const contract = "This Services Agreement is made between Acme Corp and Beta LLC. " +
	"The Supplier shall have unlimited liability for all losses."

func TestRenderReportShowsSectionsAndStates(t *testing.T) {
	provider := offline.New()
	svc := &sessions.Service{
		Documents:    &documents.Service{},
		Orchestrator: &analyses.Orchestrator{Provider: provider},
		Fixer:        provider,
		Repo:         sessions.NewMemoryRepo(),
		TTL:          time.Hour,
	}
	sess, err := svc.Start(context.Background(), sessions.StartInput{Owner: "user:t", FileName: "services agreement.txt", Text: contract})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sum, err := svc.AutoFix(context.Background(), "user:t", sess.ID, nil)
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}

	out := renderReport(sess.View(), &sum)
	for _, want := range []string{"services agreement.txt", "Agreement Document", "Summary", "Flagged clauses", "[proposed]", fixes.CompletedMessage} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStepAndEvent(t *testing.T) {
	step := fixes.Step{Phase: fixes.PhaseStarted, Progress: "Fixing flagged clause 1 of 2..."}
	if !strings.Contains(renderStep(step), "Fixing flagged clause 1 of 2...") {
		t.Fatalf("unexpected step line %q", renderStep(step))
	}
	line := renderEvent(events.New(events.AutoFixProgress, "s-1", map[string]any{"index": 1}))
	if !strings.Contains(line, "autofix.progress") || !strings.Contains(line, "s-1") || !strings.Contains(line, `"index":1`) {
		t.Fatalf("unexpected event line %q", line)
	}
}

func TestAnalyzeCommandJSON(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("LLM_PROVIDER", "offline")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("EVENTS_QUEUE_URL", "")
	t.Setenv("CONTEXT_RULES_FILE", "")

	path := filepath.Join(t.TempDir(), "nda.txt")
	if err := os.WriteFile(path, []byte(contract), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"analyze", path, "--json", "--context", "Mutual NDA"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var report struct {
		FileName string `json:"fileName"`
		Context  string `json:"documentContext"`
		Notice   string `json:"notice"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if report.FileName != "nda.txt" || report.Context != "Mutual NDA" || report.Notice != string(analyses.NoticeComplete) {
		t.Fatalf("unexpected report %+v", report)
	}
}

package doccontext

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name     string
		userText string
		fileName string
		want     string
	}{
		{name: "user text wins", userText: "  NDA for startup ", fileName: "sale_agreement.pdf", want: "NDA for startup"},
		{name: "agreement", fileName: "Employment_Agreement_v2.pdf", want: "Agreement Document"},
		{name: "offer", fileName: "OFFER.txt", want: "Offer Letter or Similar"},
		{name: "letter", fileName: "cover-letter.docx", want: "Offer Letter or Similar"},
		{name: "sale", fileName: "land_sale.png", want: "Sale Document"},
		{name: "rule order", fileName: "sale_agreement.pdf", want: "Agreement Document"},
		{name: "no match", fileName: "lease.pdf", want: "General Legal Document"},
		{name: "blank user text falls through", userText: "   ", fileName: "lease.pdf", want: "General Legal Document"},
		{name: "no filename", want: "General legal document review"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.userText, tc.fileName); got != tc.want {
				t.Fatalf("Resolve(%q, %q) = %q, want %q", tc.userText, tc.fileName, got, tc.want)
			}
		})
	}
}

func TestParseCustomRules(t *testing.T) {
	raw := []byte(`
rules:
  - contains: ["nda", "confidential"]
    label: Non-Disclosure Agreement
  - contains: ["lease"]
    label: Lease
default_label: Unclassified Document
fallback: Unnamed upload
`)
	r, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := r.Resolve("", "Mutual_NDA.pdf"); got != "Non-Disclosure Agreement" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := r.Resolve("", "agreement.pdf"); got != "Unclassified Document" {
		t.Fatalf("custom rules must replace the defaults, got %q", got)
	}
	if got := r.Resolve("", ""); got != "Unnamed upload" {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestParseRejectsInvalidRules(t *testing.T) {
	cases := map[string]string{
		"empty":     "rules: []\n",
		"no label":  "rules:\n  - contains: [x]\n",
		"no needle": "rules:\n  - label: X\n",
		"not yaml":  "rules: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(raw)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	r, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile empty: %v", err)
	}
	if got := r.Resolve("", "x_agreement.pdf"); got != "Agreement Document" {
		t.Fatalf("expected built-in rules, got %q", got)
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - contains: [will]\n    label: Testament\n"), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	r, err = LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := r.Resolve("", "Last_Will.pdf"); got != "Testament" {
		t.Fatalf("unexpected label: %q", got)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "ENV", "LLM_PROVIDER", "ANALYSIS_TIMEOUT", "USAGE_LIMIT", "OBJECT_STORE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.LLMProvider != "offline" {
		t.Fatalf("expected offline provider, got %q", cfg.LLMProvider)
	}
	if cfg.AnalysisTimeout != 90*time.Second {
		t.Fatalf("unexpected analysis timeout: %s", cfg.AnalysisTimeout)
	}
	if cfg.UsageLimit != 10 {
		t.Fatalf("unexpected usage limit: %d", cfg.UsageLimit)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("unexpected object store: %q", cfg.ObjectStoreType)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LLM_MODEL", "")
	os.Unsetenv("LLM_MODEL")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_MODEL=gpt-4o-mini\nFIX_TIMEOUT=5s\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("FIX_TIMEOUT", "")
	os.Unsetenv("FIX_TIMEOUT")

	cfg := Load()
	if cfg.LLMModel != "gpt-4o-mini" {
		t.Fatalf("expected model from .env, got %q", cfg.LLMModel)
	}
	if cfg.FixTimeout != 5*time.Second {
		t.Fatalf("expected fix timeout from .env, got %s", cfg.FixTimeout)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ANALYSIS_TIMEOUT", "soon")
	t.Setenv("USAGE_LIMIT", "-3")
	t.Setenv("ARCHIVE_UPLOADS", "maybe")

	cfg := Load()
	if cfg.AnalysisTimeout != 90*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.AnalysisTimeout)
	}
	if cfg.UsageLimit != 10 {
		t.Fatalf("expected fallback usage limit, got %d", cfg.UsageLimit)
	}
	if cfg.ArchiveUploads {
		t.Fatalf("expected archive uploads to stay false")
	}
}

func TestEnvFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LLM_MODEL", "")
	os.Unsetenv("LLM_MODEL")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_MODEL=from-default\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "review.env"), []byte("LLM_MODEL=from-custom\n"), 0o644); err != nil {
		t.Fatalf("write review.env: %v", err)
	}
	t.Setenv("ENV_FILE", " review.env , missing.env ")

	cfg := Load()
	if cfg.LLMModel != "from-custom" {
		t.Fatalf("expected model from ENV_FILE, got %q", cfg.LLMModel)
	}
}

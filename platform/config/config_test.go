package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fieldops")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RefreshInterval != 24*time.Hour {
		t.Fatalf("expected 24h refresh interval, got %s", cfg.RefreshInterval)
	}
	if cfg.QuoteFollowUpAfter != 72*time.Hour {
		t.Fatalf("expected 72h follow-up window, got %s", cfg.QuoteFollowUpAfter)
	}
	if cfg.RefreshBatchSize != 500 || cfg.RefreshConcurrency != 4 {
		t.Fatalf("expected batch 500 / concurrency 4, got %d/%d", cfg.RefreshBatchSize, cfg.RefreshConcurrency)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fieldops")
	t.Setenv("QUOTE_FOLLOW_UP_AFTER", "48h")
	t.Setenv("LIFECYCLE_REFRESH_BATCH_SIZE", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.QuoteFollowUpAfter != 48*time.Hour {
		t.Fatalf("expected 48h follow-up window, got %s", cfg.QuoteFollowUpAfter)
	}
	if cfg.RefreshBatchSize != 250 {
		t.Fatalf("expected batch size 250, got %d", cfg.RefreshBatchSize)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing DATABASE_URL")
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fieldops")
	t.Setenv("QUOTE_FOLLOW_UP_AFTER", "three days")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for malformed duration")
	}
	if !strings.Contains(err.Error(), "QUOTE_FOLLOW_UP_AFTER") {
		t.Fatalf("expected error to name the offending variable, got %q", err)
	}
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fieldops")
	t.Setenv("LIFECYCLE_REFRESH_BATCH_SIZE", "lots")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for malformed integer")
	}
	if !strings.Contains(err.Error(), "LIFECYCLE_REFRESH_BATCH_SIZE") {
		t.Fatalf("expected error to name the offending variable, got %q", err)
	}
}

func TestLoadRejectsCredentialedWildcardCORS(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fieldops")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for wildcard origins with credentials")
	}
}

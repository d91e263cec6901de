package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "")
	t.Setenv("VIDEOGEN_API_KEY", "")
	t.Setenv("VIDEOGEN_BASE_URL", "")
	t.Setenv("BATCH_CONCURRENCY", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if cfg.VideoGenBaseURL != "https://api.videogen.example.com/v1" {
		t.Fatalf("VideoGenBaseURL mismatch: got %q", cfg.VideoGenBaseURL)
	}
	if cfg.BatchConcurrency != 5 {
		t.Fatalf("BatchConcurrency mismatch: got %d want 5", cfg.BatchConcurrency)
	}
	if cfg.BatchPollInterval != 2*time.Second {
		t.Fatalf("BatchPollInterval mismatch: got %v", cfg.BatchPollInterval)
	}
	if cfg.ProviderRetryMax != 30*time.Second {
		t.Fatalf("ProviderRetryMax mismatch: got %v", cfg.ProviderRetryMax)
	}
	if cfg.CORSOrigins != nil {
		t.Fatalf("CORSOrigins mismatch: %#v", cfg.CORSOrigins)
	}
}

func TestLoadConfigRequiresAPIKeyOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("VIDEOGEN_API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing VIDEOGEN_API_KEY in production")
	}

	t.Setenv("VIDEOGEN_API_KEY", "sk-test")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig returned error with key set: %v", err)
	}
}

func TestLoadConfigRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("BATCH_CONCURRENCY", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for BATCH_CONCURRENCY=0")
	}
}

func TestLoadConfigParsesCORSOrigins(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("BATCH_CONCURRENCY", "")
	t.Setenv("CORS_ORIGINS", "https://studio.example.com, https://app.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://studio.example.com", "https://app.example.com"}
	if len(cfg.CORSOrigins) != len(expected) {
		t.Fatalf("CORSOrigins mismatch: got %#v want %#v", cfg.CORSOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSOrigins[i] != origin {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], origin)
		}
	}
}

func TestLoadConfigIgnoresMalformedInts(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("BATCH_CONCURRENCY", "")
	t.Setenv("VIDEOGEN_MAX_RETRIES", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ProviderMaxRetries != 3 {
		t.Fatalf("ProviderMaxRetries mismatch: got %d want 3", cfg.ProviderMaxRetries)
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testEnvLLMAPIKey   = "LLM_API_KEY"
	testEnvOpenAIKey   = "OPENAI_API_KEY"
)

// Test values.
const (
	testPostgresDSN  = "postgres://localhost/test"
	testErrLoad      = "Load() error = %v"
	testDefaultEnv   = "local"
	testDefaultModel = "gpt-4o-mini"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, "")
	os.Unsetenv(testEnvPostgresDSN)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	// Explicitly unset variables that might be in .env to test actual defaults
	for _, key := range []string{"APP_ENV", "LLM_MODEL", "QUEUE_INTERVAL", "QUEUE_BATCH_SIZE", "QUEUE_STALE_AFTER", "LLM_TIMEOUT", "OPENAI_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != testDefaultEnv {
		t.Errorf("AppEnv default = %q, want %q", cfg.AppEnv, testDefaultEnv)
	}

	if cfg.LLM.Model != testDefaultModel {
		t.Errorf("LLM.Model default = %q, want %q", cfg.LLM.Model, testDefaultModel)
	}

	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("LLM.Timeout default = %v, want 30s", cfg.LLM.Timeout)
	}

	if cfg.Queue.Interval != 30*time.Second {
		t.Errorf("Queue.Interval default = %v, want 30s", cfg.Queue.Interval)
	}

	if cfg.Queue.BatchSize != 10 {
		t.Errorf("Queue.BatchSize default = %d, want 10", cfg.Queue.BatchSize)
	}

	if cfg.Queue.StaleAfter != 10*time.Minute {
		t.Errorf("Queue.StaleAfter default = %v, want 10m", cfg.Queue.StaleAfter)
	}

	sc := cfg.ScoringConfig()
	if sc.Weights.Sentiment != 0.5 || sc.Weights.Recency != 0.3 || sc.Weights.Likes != 0.2 {
		t.Errorf("scoring weights = %+v, want 0.5/0.3/0.2", sc.Weights)
	}

	if sc.RecencyHorizon != 365*24*time.Hour {
		t.Errorf("RecencyHorizon = %v, want 8760h", sc.RecencyHorizon)
	}
}

func TestLoad_OpenAIKeyAlias(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvLLMAPIKey, "")
	os.Unsetenv(testEnvLLMAPIKey)
	t.Setenv(testEnvOpenAIKey, "sk-alias")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.LLM.APIKey != "sk-alias" {
		t.Errorf("LLM.APIKey = %q, want alias value", cfg.LLM.APIKey)
	}
}

func TestLoad_ExplicitKeyWinsOverAlias(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvLLMAPIKey, "sk-primary")
	t.Setenv(testEnvOpenAIKey, "sk-alias")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.LLM.APIKey != "sk-primary" {
		t.Errorf("LLM.APIKey = %q, want sk-primary", cfg.LLM.APIKey)
	}
}

func TestLoad_InvalidNumeric(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("QUEUE_BATCH_SIZE", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid QUEUE_BATCH_SIZE")
	}
}

func TestLoad_MockFallbackOnlyLocal(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{env: AppEnvLocal, want: true},
		{env: "production", want: false},
		{env: "staging", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv("APP_ENV", tt.env)

			cfg, err := Load()
			if err != nil {
				t.Fatalf(testErrLoad, err)
			}

			if cfg.LLM.AllowMockFallback != tt.want {
				t.Errorf("LLM.AllowMockFallback = %v, want %v", cfg.LLM.AllowMockFallback, tt.want)
			}
		})
	}
}

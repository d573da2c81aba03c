package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "CHUNK_SIZE", "CHUNK_OVERLAP", "LLM_PROVIDER", "JOB_TTL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.StoreBackend != StoreSQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.StoreBackend)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 100 {
		t.Errorf("expected 500/100 windows, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Errorf("expected openai provider, got %q", cfg.LLMProvider)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h job TTL, got %s", cfg.JobTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %s", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "PathStore")
	t.Setenv("CHUNK_SIZE", "256")
	t.Setenv("CHUNK_OVERLAP", "32")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("LLM_MAX_RETRIES", "not-a-number")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.StoreBackend != StorePathstore {
		t.Errorf("expected pathstore backend, got %q", cfg.StoreBackend)
	}
	if cfg.ChunkSize != 256 || cfg.ChunkOverlap != 32 {
		t.Errorf("expected 256/32, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected negative worker count to reset to 4, got %d", cfg.WorkerCount)
	}
	if cfg.LLMTimeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %s", cfg.LLMTimeout)
	}
	if cfg.LLMMaxRetries != 3 {
		t.Errorf("expected unparsable retries to fall back to 3, got %d", cfg.LLMMaxRetries)
	}
	if cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback disabled")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
}

func validConfig() Config {
	return Config{
		APIKey:       "k",
		StoreBackend: StoreSQLite,
		DatabasePath: "x.db",
		LLMProvider:  ProviderOpenAI,
		OpenAIAPIKey: "sk",
		ChunkSize:    500,
		ChunkOverlap: 100,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown store", func(c *Config) { c.StoreBackend = "mongo" }, "STORE_BACKEND"},
		{"sqlite without path", func(c *Config) { c.DatabasePath = "" }, "DATABASE_PATH"},
		{"pathstore without key", func(c *Config) { c.StoreBackend = StorePathstore }, "PATHSTORE_API_KEY"},
		{"pathstore with key", func(c *Config) { c.StoreBackend = StorePathstore; c.PathstoreAPIKey = "p" }, ""},
		{"missing openai key", func(c *Config) { c.OpenAIAPIKey = "" }, "OPENAI_API_KEY"},
		{"anthropic without key", func(c *Config) { c.LLMProvider = ProviderAnthropic }, "ANTHROPIC_API_KEY"},
		{"anthropic with key", func(c *Config) { c.LLMProvider = ProviderAnthropic; c.AnthropicAPIKey = "a" }, ""},
		{"unknown provider", func(c *Config) { c.LLMProvider = "llama" }, "LLM_PROVIDER"},
		{"overlap too large", func(c *Config) { c.ChunkOverlap = 500 }, "CHUNK_OVERLAP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateServer_RequiresAPIKey(t *testing.T) {
	c := validConfig()
	if err := c.ValidateServer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.APIKey = ""
	if err := c.Validate(); err != nil {
		t.Errorf("CLI validation should not need the API key: %v", err)
	}
	if err := c.ValidateServer(); err == nil {
		t.Error("expected error without PAPERCHUNK_API_KEY")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PAPERCHUNK_TEST_FROM_DOTENV=yes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PAPERCHUNK_TEST_FROM_DOTENV") })
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("PAPERCHUNK_TEST_FROM_DOTENV"); got != "yes" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

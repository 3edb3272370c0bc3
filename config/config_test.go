package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHTTPPortDefaultFormatting(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != ":9000" {
		t.Fatalf("expected HTTP_PORT to include colon, got %s", cfg.HTTPPort)
	}
}

func TestQueueSizeDefaultsRespectWorkers(t *testing.T) {
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("JOB_QUEUE_SIZE", "4")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.WorkerCount != 8 {
		t.Fatalf("expected worker count 8, got %d", cfg.WorkerCount)
	}
	if cfg.QueueSize < cfg.WorkerCount {
		t.Fatalf("queue size should be at least workers, got %d", cfg.QueueSize)
	}
}

func TestProviderDefaultsToAzure(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Provider != "azure" {
		t.Fatalf("expected azure default provider, got %s", cfg.Provider)
	}
}

func TestFileOverridesAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
http_port: "7777"
provider: openai
vision:
  openai_model: gpt-4o
  min_confidence: 0.4
vocabulary:
  minor:
    - faded
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_PORT", "8888")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != ":8888" {
		t.Fatalf("env should win over file, got %s", cfg.HTTPPort)
	}
	if cfg.Provider != "openai" {
		t.Fatalf("expected provider from file, got %s", cfg.Provider)
	}
	if cfg.Vision.OpenAIModel != "gpt-4o" {
		t.Fatalf("expected model from file, got %s", cfg.Vision.OpenAIModel)
	}
	if cfg.Vision.MinConfidence != 0.4 {
		t.Fatalf("expected min confidence 0.4, got %g", cfg.Vision.MinConfidence)
	}
	if len(cfg.Vocabulary.Minor) != 1 || cfg.Vocabulary.Minor[0] != "faded" {
		t.Fatalf("expected overridden minor set, got %v", cfg.Vocabulary.Minor)
	}
	if len(cfg.Vocabulary.Negative) == 0 {
		t.Fatalf("untouched sets should keep defaults")
	}
}

func TestStrictConfigRejectsBadProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http_port: \"8000\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("STRICT_CONFIG", "1")
	t.Setenv("VISION_PROVIDER", "clarifai")
	if _, err := Load(); err == nil {
		t.Fatalf("expected strict mode to reject unknown provider")
	}
}

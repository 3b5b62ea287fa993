package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.ModelBackend != BackendZhipu {
		t.Errorf("expected default backend zhipu, got %s", cfg.ModelBackend)
	}
	if cfg.Temperature != 0.7 || cfg.MaxTokens != 2000 {
		t.Errorf("unexpected generation defaults: temp=%v max=%d", cfg.Temperature, cfg.MaxTokens)
	}
	if cfg.ModelTimeout != 30*time.Second {
		t.Errorf("expected 30s model timeout, got %v", cfg.ModelTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AI_MODEL_TYPE", "simulated")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("AI_TEMPERATURE", "0.2")
	t.Setenv("ZHIPU_API_KEY", "real-key")

	cfg := Load()
	if cfg.ModelBackend != BackendSimulated {
		t.Errorf("expected simulated backend, got %s", cfg.ModelBackend)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.Temperature)
	}
	if cfg.Zhipu.APIKey != "real-key" {
		t.Errorf("zhipu key not picked up: %q", cfg.Zhipu.APIKey)
	}
}

func TestCredentialUsable(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"your-zhipu-api-key", false},
		{"sk-your-openai-api-key", false},
		{"your-api-key", false},
		{"sk-abc123", true},
	}
	for _, tt := range tests {
		if got := CredentialUsable(tt.key); got != tt.want {
			t.Errorf("CredentialUsable(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

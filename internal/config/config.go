// Package config provides configuration for the nutrition assistant service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Backend identifies which model backend generates replies.
type Backend string

const (
	// BackendZhipu is the primary chat-completion backend.
	BackendZhipu Backend = "zhipu"
	// BackendOpenAI is the secondary, OpenAI-compatible backend.
	BackendOpenAI Backend = "openai"
	// BackendSimulated forces the offline responder, useful for local
	// development and tests.
	BackendSimulated Backend = "simulated"
)

// Placeholder credentials that ship in example env files. A key equal to one
// of these is treated the same as no key at all.
var PlaceholderAPIKeys = []string{
	"your-zhipu-api-key",
	"sk-your-openai-api-key",
	"your-api-key",
}

// BackendConfig holds the settings for one chat-completion backend.
type BackendConfig struct {
	APIKey   string
	Model    string
	Endpoint string
}

// Config holds the service configuration. It is loaded once at startup and
// passed into constructors; nothing deeper in the call graph reads the
// process environment.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Model backend selection. Static per deployment.
	ModelBackend Backend
	Zhipu        BackendConfig
	OpenAI       BackendConfig

	// Generation settings shared by all backends.
	Temperature  float64
	MaxTokens    int
	ModelTimeout time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:     getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:  getEnv("DATABASE_URL", "file:nutrichat.db?cache=shared&mode=rwc"),
		ModelBackend: Backend(getEnv("AI_MODEL_TYPE", string(BackendZhipu))),
		Zhipu: BackendConfig{
			APIKey:   os.Getenv("ZHIPU_API_KEY"),
			Model:    getEnv("ZHIPU_MODEL", "chatglm_turbo"),
			Endpoint: getEnv("ZHIPU_API_ENDPOINT", "https://open.bigmodel.cn/api/paas/v4/chat/completions"),
		},
		OpenAI: BackendConfig{
			APIKey:   os.Getenv("OPENAI_API_KEY"),
			Model:    getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			Endpoint: getEnv("OPENAI_API_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		},
		Temperature:  getEnvFloat("AI_TEMPERATURE", 0.7),
		MaxTokens:    getEnvInt("AI_MAX_TOKENS", 2000),
		ModelTimeout: time.Duration(getEnvInt("AI_TIMEOUT_MS", 30000)) * time.Millisecond,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// CredentialUsable reports whether key is a real credential rather than
// empty or a placeholder sentinel.
func CredentialUsable(key string) bool {
	if key == "" {
		return false
	}
	for _, placeholder := range PlaceholderAPIKeys {
		if key == placeholder {
			return false
		}
	}
	return true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

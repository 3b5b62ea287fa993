package ai

import (
	"log"

	"github.com/nutrichat/nutrichat/internal/config"
)

// NewGenerator selects the model backend for this deployment. Selection is
// static: it reads the configuration once at construction and never routes
// per user or per message.
func NewGenerator(cfg *config.Config, detector AdviceDetector) Generator {
	switch cfg.ModelBackend {
	case config.BackendSimulated:
		log.Println("model backend: simulated responder")
		return NewSimulated()
	case config.BackendOpenAI:
		log.Printf("model backend: openai (%s)", cfg.OpenAI.Model)
		return NewClient(cfg.OpenAI, cfg.Temperature, cfg.MaxTokens, cfg.ModelTimeout, detector)
	default:
		log.Printf("model backend: zhipu (%s)", cfg.Zhipu.Model)
		return NewClient(cfg.Zhipu, cfg.Temperature, cfg.MaxTokens, cfg.ModelTimeout, detector)
	}
}

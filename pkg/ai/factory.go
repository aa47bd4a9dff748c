package ai

import (
	"fmt"

	"github.com/kentsubra71/keystone/pkg/gemini"

	"github.com/charmbracelet/log"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GeminiAPIKey string
	GeminiModel  string

	// Ollama base URL and model are read through getters so settings can change at runtime.
	OllamaBaseURL func() string
	OllamaModel   func() string

	AnthropicAPIKey string
	AnthropicModel  string
}

// NewProvider builds the configured provider. A nil provider with nil error means
// inference is disabled and callers should use their deterministic fallback.
func NewProvider(cfg Config, logger *log.Logger) (Provider, error) {
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil

	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiProvider(gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel)), nil

	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		return NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil

	case ProviderOllama:
		return NewOllamaProviderWithGetters(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	case ProviderAuto, "":
		// Hosted providers first, local Ollama last.
		var chain []Provider
		if cfg.AnthropicAPIKey != "" {
			chain = append(chain, NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel))
		}
		if cfg.GeminiAPIKey != "" {
			chain = append(chain, NewGeminiProvider(gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel)))
		}
		if cfg.OllamaBaseURL != nil {
			chain = append(chain, NewOllamaProviderWithGetters(cfg.OllamaBaseURL, cfg.OllamaModel))
		}
		switch len(chain) {
		case 0:
			return nil, nil
		case 1:
			return chain[0], nil
		}
		return NewFallbackProvider(logger, chain...), nil
	}

	return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
}

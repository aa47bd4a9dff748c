package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrNoProvider is returned when no inference backend is configured.
var ErrNoProvider = errors.New("no AI provider available")

// Request is one single-turn completion.
type Request struct {
	System      string
	Prompt      string
	JSON        bool // ask the backend for a JSON-only reply where supported
	MaxTokens   int
	Temperature float64
}

// Provider is a text completion backend.
// Implement this interface to add new AI providers.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini    ProviderType = "gemini"
	ProviderOllama    ProviderType = "ollama"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderAuto      ProviderType = "auto"
	ProviderNone      ProviderType = "none"
)

// ExtractJSON returns the text between the first '{' and the last '}'.
// Models often wrap JSON in prose or markdown fences.
func ExtractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", errors.New("no JSON object found in response")
	}
	return s[start : end+1], nil
}

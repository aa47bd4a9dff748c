package ai

import (
	"context"

	"github.com/kentsubra71/keystone/pkg/gemini"
)

// geminiProvider adapts the Gemini REST client to Provider.
type geminiProvider struct {
	svc *gemini.GeminiService
}

func NewGeminiProvider(svc *gemini.GeminiService) Provider {
	return &geminiProvider{svc: svc}
}

func (g *geminiProvider) Name() string { return string(ProviderGemini) }

func (g *geminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	return g.svc.GenerateContent(ctx, req.System, req.Prompt, gemini.GenerationOptions{
		JSON:            req.JSON,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	})
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3"
)

// OllamaSettings holds the Ollama endpoint and model, editable at runtime.
type OllamaSettings struct {
	mu      sync.RWMutex
	baseURL string
	model   string
}

func NewOllamaSettings(baseURL, model string) *OllamaSettings {
	s := &OllamaSettings{}
	s.Update(baseURL, model)
	return s
}

func (s *OllamaSettings) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

func (s *OllamaSettings) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Update replaces the base URL and, when non-empty, the model.
func (s *OllamaSettings) Update(baseURL, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	s.baseURL = baseURL
	if model != "" {
		s.model = model
	} else if s.model == "" {
		s.model = defaultOllamaModel
	}
}

// OllamaProvider implements Provider using an Ollama server.
type OllamaProvider struct {
	getBaseURL func() string // Dynamic getter for BaseURL
	getModel   func() string // Dynamic getter for Model
	client     *http.Client
}

// NewOllamaProvider creates a provider with fixed settings.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	s := NewOllamaSettings(baseURL, model)
	return NewOllamaProviderWithGetters(s.BaseURL, s.Model)
}

// NewOllamaProviderWithGetters creates a provider that reads its settings on every call.
func NewOllamaProviderWithGetters(getBaseURL, getModel func() string) *OllamaProvider {
	if getBaseURL == nil {
		getBaseURL = func() string { return defaultOllamaBaseURL }
	}
	if getModel == nil {
		getModel = func() string { return defaultOllamaModel }
	}
	return &OllamaProvider{
		getBaseURL: getBaseURL,
		getModel:   getModel,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *OllamaProvider) Name() string { return string(ProviderOllama) }

// Complete implements Provider via /api/generate.
func (o *OllamaProvider) Complete(ctx context.Context, req Request) (string, error) {
	url := o.getBaseURL() + "/api/generate"

	options := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	payload := map[string]interface{}{
		"model":   o.getModel(),
		"prompt":  req.Prompt,
		"stream":  false,
		"options": options,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if req.JSON {
		payload["format"] = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Response, nil
}

// Ping checks that an Ollama server answers on baseURL by listing its models.
func Ping(ctx context.Context, baseURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

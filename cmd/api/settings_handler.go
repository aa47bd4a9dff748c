package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/kentsubra71/keystone/pkg/ai"

	"github.com/gin-gonic/gin"
)

// SettingsHandler exposes the runtime Ollama settings used by the Ollama provider.
type SettingsHandler struct {
	ollama *ai.OllamaSettings
}

func NewSettingsHandler(ollama *ai.OllamaSettings) *SettingsHandler {
	return &SettingsHandler{ollama: ollama}
}

// UpdateOllamaSettingsRequest represents the request body for updating Ollama settings
type UpdateOllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// GET /api/settings/ollama
func (h *SettingsHandler) GetOllamaSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ollama_base_url": h.ollama.BaseURL(),
		"ollama_model":    h.ollama.Model(),
	})
}

// PUT /api/settings/ollama
func (h *SettingsHandler) UpdateOllamaSettings(c *gin.Context) {
	var req UpdateOllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.ollama.Update(req.OllamaBaseURL, req.OllamaModel)

	c.JSON(http.StatusOK, gin.H{
		"message":         "Ollama settings updated successfully",
		"ollama_base_url": h.ollama.BaseURL(),
		"ollama_model":    h.ollama.Model(),
	})
}

// TestOllamaConnection checks that an Ollama server is reachable. The body is optional.
// POST /api/settings/ollama/test
func (h *SettingsHandler) TestOllamaConnection(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OllamaBaseURL == "" {
		req.OllamaBaseURL = h.ollama.BaseURL()
	}

	models, err := ai.Ping(c.Request.Context(), req.OllamaBaseURL)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"ollama_base_url": req.OllamaBaseURL,
		"models":          models,
	})
}

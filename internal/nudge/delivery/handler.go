package delivery

import (
	"errors"
	"net/http"

	"github.com/kentsubra71/keystone/internal/nudge/domain"
	"github.com/kentsubra71/keystone/internal/nudge/usecase"

	"github.com/gin-gonic/gin"
)

type NudgeHandler struct {
	nudgeUsecase usecase.NudgeUsecase
}

func NewNudgeHandler(nudgeUsecase usecase.NudgeUsecase) *NudgeHandler {
	return &NudgeHandler{nudgeUsecase: nudgeUsecase}
}

// RegisterDeviceRequest is the body of POST /api/devices
type RegisterDeviceRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"deviceInfo"`
}

// GET /api/nudges
func (h *NudgeHandler) GetActive(c *gin.Context) {
	nudges, err := h.nudgeUsecase.Active(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nudges": nudges})
}

// POST /api/nudges/:id/dismiss
func (h *NudgeHandler) Dismiss(c *gin.Context) {
	if err := h.nudgeUsecase.Dismiss(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /api/devices
func (h *NudgeHandler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.DeviceInfo == "" {
		req.DeviceInfo = c.GetHeader("User-Agent")
	}
	if err := h.nudgeUsecase.RegisterDevice(c.Request.Context(), req.Token, req.DeviceInfo); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DELETE /api/devices/:token
func (h *NudgeHandler) UnregisterDevice(c *gin.Context) {
	if err := h.nudgeUsecase.UnregisterDevice(c.Request.Context(), c.Param("token")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNudgeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Nudge not found"})
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

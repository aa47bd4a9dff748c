package delivery

import (
	"errors"
	"net/http"

	"github.com/kentsubra71/keystone/internal/brief/domain"
	"github.com/kentsubra71/keystone/internal/brief/usecase"

	"github.com/gin-gonic/gin"
)

type BriefHandler struct {
	briefUsecase usecase.BriefUsecase
}

func NewBriefHandler(briefUsecase usecase.BriefUsecase) *BriefHandler {
	return &BriefHandler{briefUsecase: briefUsecase}
}

// GET /api/brief
func (h *BriefHandler) GetLatest(c *gin.Context) {
	b, err := h.briefUsecase.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoBrief) {
			c.JSON(http.StatusOK, gin.H{"brief": nil})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"brief": b.Content, "generatedAt": b.GeneratedAt})
}

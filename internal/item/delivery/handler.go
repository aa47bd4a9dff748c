package delivery

import (
	"errors"
	"net/http"

	"github.com/kentsubra71/keystone/internal/item/domain"
	"github.com/kentsubra71/keystone/internal/item/usecase"

	"github.com/gin-gonic/gin"
)

// ItemHandler serves the canonical item read accessors and user actions.
type ItemHandler struct {
	itemUsecase usecase.ItemUsecase
}

func NewItemHandler(itemUsecase usecase.ItemUsecase) *ItemHandler {
	return &ItemHandler{itemUsecase: itemUsecase}
}

// ActionRequest is the body of POST /api/items/:id/action
type ActionRequest struct {
	Action     string `json:"action" binding:"required,oneof=done snooze ignore"`
	SnoozeDays int    `json:"snoozeDays"`
}

// GetItems returns items for a view.
// GET /api/items?filter=due|blocking|all&status=&owner=&source=
func (h *ItemHandler) GetItems(c *gin.Context) {
	q := usecase.ListQuery{View: domain.View(c.DefaultQuery("filter", string(domain.ViewAll)))}

	if s := c.Query("status"); s != "" {
		status := domain.Status(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		q.Status = &status
	}
	if owner := c.Query("owner"); owner != "" {
		q.OwnerEmail = &owner
	}
	if s := c.Query("source"); s != "" {
		source := domain.Source(s)
		if !source.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source"})
			return
		}
		q.Source = &source
	}

	items, err := h.itemUsecase.ListItems(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /api/items/:id
func (h *ItemHandler) GetItemByID(c *gin.Context) {
	item, err := h.itemUsecase.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GET /api/items/:id/history
func (h *ItemHandler) GetHistory(c *gin.Context) {
	actions, err := h.itemUsecase.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// ApplyAction records a done/snooze/ignore decision.
// POST /api/items/:id/action
func (h *ItemHandler) ApplyAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	var err error
	switch req.Action {
	case "done":
		err = h.itemUsecase.MarkDone(ctx, id)
	case "snooze":
		err = h.itemUsecase.Snooze(ctx, id, req.SnoozeDays)
	case "ignore":
		err = h.itemUsecase.Ignore(ctx, id)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "action": req.Action})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
	case errors.Is(err, usecase.ErrInvalidSnooze):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

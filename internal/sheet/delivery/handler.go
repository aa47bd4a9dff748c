package delivery

import (
	"errors"
	"net/http"
	"strconv"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	"github.com/kentsubra71/keystone/internal/sheet/domain"
	"github.com/kentsubra71/keystone/internal/sheet/usecase"

	"github.com/gin-gonic/gin"
)

type SheetHandler struct {
	sheetUsecase usecase.SheetUsecase
}

func NewSheetHandler(sheetUsecase usecase.SheetUsecase) *SheetHandler {
	return &SheetHandler{sheetUsecase: sheetUsecase}
}

type OwnerRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	Email       string `json:"email" binding:"required"`
}

// GetRows returns stored sheet rows.
// GET /api/sheet-items?status=&needsOwnerMapping=&isOverdue=&owner=|unassigned&includeMissing=
func (h *SheetHandler) GetRows(c *gin.Context) {
	var filter domain.RowFilter

	if v := c.Query("status"); v != "" {
		status := itemdomain.Status(v)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	var ok bool
	if filter.NeedsOwnerMapping, ok = boolQuery(c, "needsOwnerMapping"); !ok {
		return
	}
	if filter.IsOverdue, ok = boolQuery(c, "isOverdue"); !ok {
		return
	}
	switch owner := c.Query("owner"); owner {
	case "":
	case "unassigned":
		filter.Unassigned = true
	default:
		filter.OwnerEmail = &owner
	}
	filter.IncludeMissing = c.Query("includeMissing") == "true"

	rows, err := h.sheetUsecase.ListRows(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// GET /api/waiting-on
func (h *SheetHandler) GetWaitingOn(c *gin.Context) {
	rows, err := h.sheetUsecase.WaitingOn(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// GET /api/owner-directory
func (h *SheetHandler) GetOwners(c *gin.Context) {
	entries, err := h.sheetUsecase.ListOwners(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"owners": entries})
}

// POST /api/owner-directory
func (h *SheetHandler) CreateOwner(c *gin.Context) {
	var req OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.sheetUsecase.CreateOwner(c.Request.Context(), req.DisplayName, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// PUT /api/owner-directory/:id
func (h *SheetHandler) UpdateOwner(c *gin.Context) {
	var req OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.sheetUsecase.UpdateOwner(c.Request.Context(), c.Param("id"), req.DisplayName, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DELETE /api/owner-directory/:id
func (h *SheetHandler) DeleteOwner(c *gin.Context) {
	if err := h.sheetUsecase.DeleteOwner(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/owner-directory/suggest?label=
func (h *SheetHandler) SuggestOwners(c *gin.Context) {
	label := c.Query("label")
	if label == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}

	suggestions, err := h.sheetUsecase.SuggestOwners(c.Request.Context(), label)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// boolQuery parses an optional boolean query param. It writes a 400 and returns ok=false on bad input.
func boolQuery(c *gin.Context, key string) (*bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return nil, false
	}
	return &v, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOwnerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Owner not found"})
	case errors.Is(err, domain.ErrDuplicateOwner):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrInvalidOwner):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

package api

import (
	"context"
	"net/http"

	briefdomain "github.com/kentsubra71/keystone/internal/brief/domain"
	mailusecase "github.com/kentsubra71/keystone/internal/mail/usecase"
	nudgedomain "github.com/kentsubra71/keystone/internal/nudge/domain"
	sheetusecase "github.com/kentsubra71/keystone/internal/sheet/usecase"

	"github.com/gin-gonic/gin"
)

// JobRunner is satisfied by *scheduler.Jobs.
type JobRunner interface {
	SyncSheet(ctx context.Context) (*sheetusecase.ReconcileResult, error)
	SyncMail(ctx context.Context) (*mailusecase.IngestResult, error)
	GenerateNudges(ctx context.Context) ([]*nudgedomain.Nudge, error)
	GenerateBrief(ctx context.Context) (*briefdomain.Brief, error)
}

// JobsHandler serves both the cron endpoints and the authenticated manual sync triggers.
type JobsHandler struct {
	jobs JobRunner
}

func NewJobsHandler(jobs JobRunner) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// POST /api/cron/sheet, POST /api/sync/sheet
func (h *JobsHandler) SyncSheet(c *gin.Context) {
	res, err := h.jobs.SyncSheet(c.Request.Context())
	writeJobResult(c, res, err)
}

// POST /api/cron/gmail, POST /api/sync/gmail
func (h *JobsHandler) SyncMail(c *gin.Context) {
	res, err := h.jobs.SyncMail(c.Request.Context())
	writeJobResult(c, res, err)
}

// POST /api/cron/nudges
func (h *JobsHandler) GenerateNudges(c *gin.Context) {
	nudges, err := h.jobs.GenerateNudges(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "created": len(nudges), "nudges": nudges})
}

// POST /api/cron/brief
func (h *JobsHandler) GenerateBrief(c *gin.Context) {
	b, err := h.jobs.GenerateBrief(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "brief": b.Content, "generatedAt": b.GeneratedAt})
}

// writeJobResult always returns the result summary; a fatal error turns it into a 500.
func writeJobResult[T any](c *gin.Context, res *T, err error) {
	if err != nil {
		if res == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

package api

import (
	"net/http"
	"time"

	authUsecase "github.com/kentsubra71/keystone/internal/auth/usecase"
	briefDelivery "github.com/kentsubra71/keystone/internal/brief/delivery"
	itemDelivery "github.com/kentsubra71/keystone/internal/item/delivery"
	nudgeDelivery "github.com/kentsubra71/keystone/internal/nudge/delivery"
	sheetDelivery "github.com/kentsubra71/keystone/internal/sheet/delivery"
	"github.com/kentsubra71/keystone/pkg/config"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	config   *config.Config
	tokens   authUsecase.TokenUsecase
	jobs     *JobsHandler
	items    *itemDelivery.ItemHandler
	sheets   *sheetDelivery.SheetHandler
	nudges   *nudgeDelivery.NudgeHandler
	briefs   *briefDelivery.BriefHandler
	settings *SettingsHandler
	logger   *log.Logger
}

// Handlers groups the per-module HTTP handlers the router mounts.
type Handlers struct {
	Jobs     *JobsHandler
	Items    *itemDelivery.ItemHandler
	Sheets   *sheetDelivery.SheetHandler
	Nudges   *nudgeDelivery.NudgeHandler
	Briefs   *briefDelivery.BriefHandler
	Settings *SettingsHandler
}

func NewHandler(cfg *config.Config, tokens authUsecase.TokenUsecase, handlers Handlers, logger *log.Logger) *Handler {
	return &Handler{
		config:   cfg,
		tokens:   tokens,
		jobs:     handlers.Jobs,
		items:    handlers.Items,
		sheets:   handlers.Sheets,
		nudges:   handlers.Nudges,
		briefs:   handlers.Briefs,
		settings: handlers.Settings,
		logger:   logger.WithPrefix("HTTP"),
	}
}

// Engine builds the gin engine with middleware and routes.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger(), cors())
	SetupRoutes(r, h)
	return r
}

// Server returns an http.Server for addr; callers own ListenAndServe and Shutdown.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

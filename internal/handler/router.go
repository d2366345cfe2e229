package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketpulse/internal/handler/api"
	"marketpulse/internal/handler/middleware"
	"marketpulse/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, logger *slog.Logger, automationHandler *api.AutomationHandler, authMiddleware *middleware.AuthMiddleware) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, automationHandler, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(logger))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, automationHandler *api.AutomationHandler, authMiddleware *middleware.AuthMiddleware) {
	engine.GET("/health", healthCheck)

	apiGroup := engine.Group("/api")
	{
		automation := apiGroup.Group("/automation")
		automation.Use(authMiddleware.RequireOperator())
		{
			addRoutes(automation, []route{
				{Method: http.MethodGet, Path: "/status", Handler: automationHandler.Status},
				{Method: http.MethodPost, Path: "/tasks/:name/trigger", Handler: automationHandler.TriggerTask},
				{Method: http.MethodPatch, Path: "/tasks/:name", Handler: automationHandler.SetTaskEnabled},
				{Method: http.MethodPost, Path: "/jobs", Handler: automationHandler.EnqueueJob},
				{Method: http.MethodGet, Path: "/jobs/failed", Handler: automationHandler.ListFailedJobs},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, r.Handler)
		case http.MethodPost:
			g.POST(r.Path, r.Handler)
		case http.MethodPatch:
			g.PATCH(r.Path, r.Handler)
		case http.MethodDelete:
			g.DELETE(r.Path, r.Handler)
		default:
			g.Any(r.Path, r.Handler)
		}
	}
}

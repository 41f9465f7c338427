package app

import (
	"net/http"

	"github.com/firstword/responder/internal/middleware"
	"github.com/firstword/responder/internal/modules/review"
	"github.com/firstword/responder/internal/modules/settings/credential"
	"github.com/firstword/responder/internal/modules/system/core/health"
	"github.com/firstword/responder/internal/pkg/response"
	"github.com/firstword/responder/web"
	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
	})

	api := r.Group("/api/v1")
	api.Use(middleware.BodyLimit(a.cfg.MaxUploadBytes()))

	health.RegisterRoutes(api, a.sched, a.review, a.startedAt)
	credential.NewHandler(a.creds, a.logger.Named("settings")).RegisterRoutes(api)
	review.NewHandler(a.review, a.cfg.Upload.MaxSizeMB).RegisterRoutes(api)
}

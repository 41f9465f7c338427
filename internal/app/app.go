package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/firstword/responder/internal/config"
	"github.com/firstword/responder/internal/middleware"
	"github.com/firstword/responder/internal/modules/processing/ai"
	"github.com/firstword/responder/internal/modules/processing/docx"
	"github.com/firstword/responder/internal/modules/review"
	"github.com/firstword/responder/internal/modules/settings/credential"
	pkgcron "github.com/firstword/responder/internal/pkg/cron"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const jobEvictSessions = "evict_sessions"

// App holds all application dependencies.
type App struct {
	cfg       *config.AppConfig
	router    *gin.Engine
	logger    *zap.Logger
	creds     credential.Store
	review    *review.Service
	sched     *pkgcron.Scheduler
	cancel    context.CancelFunc
	closeFns  []func() error
	startedAt time.Time
}

// New wires config → credential store → generator → review service → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	store, closeStore, err := credential.Open(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	if seeded, err := credential.Seed(ctx, store, cfg.AI.APIKey); err != nil {
		logger.Warn("seeding api key from config failed", zap.Error(err))
	} else if seeded {
		logger.Info("api key seeded from config")
	}

	generator, err := ai.NewGenerator(cfg.AI, store, logger.Named("ai"))
	if err != nil {
		cancel()
		_ = closeStore()
		return nil, fmt.Errorf("ai: %w", err)
	}
	exporter := docx.NewExporter(cfg.Export.Suffix, logger.Named("export"))
	reviewSvc := review.NewService(generator, exporter, cfg.Session.TTL, review.WithLogger(logger.Named("review")))

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  originMatcher(cfg.AllowedOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Export-Mode", "X-Export-Warnings"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	sched := pkgcron.New(logger.Named("cron"))
	if err := sched.Register(pkgcron.Job{
		Name:     jobEvictSessions,
		Interval: janitorInterval(cfg.Session.TTL),
		Fn:       reviewSvc.EvictIdle,
	}); err != nil {
		cancel()
		_ = closeStore()
		return nil, err
	}
	sched.Start(ctx)

	a := &App{
		cfg:       cfg,
		router:    router,
		logger:    logger,
		creds:     store,
		review:    reviewSvc,
		sched:     sched,
		cancel:    cancel,
		closeFns:  []func() error{closeStore},
		startedAt: time.Now(),
	}
	a.registerRoutes()
	return a, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and releases backend connections.
func (a *App) Shutdown() {
	a.cancel()
	a.sched.Wait()
	for _, fn := range a.closeFns {
		if err := fn(); err != nil {
			a.logger.Warn("shutdown", zap.Error(err))
		}
	}
}

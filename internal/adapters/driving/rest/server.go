package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driving"
	"github.com/custodia-labs/intentflow/internal/logger"
)

// ErrMissingIntentService is returned when the server is built without an
// intent service.
var ErrMissingIntentService = errors.New("intent service is required")

// Server implements the HTTP API.
type Server struct {
	intents  driving.IntentService
	settings domain.Settings
	limiter  *ClientLimiter
	now      func() time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(intents driving.IntentService, settings domain.Settings) (*Server, error) {
	if intents == nil {
		return nil, ErrMissingIntentService
	}
	return &Server{
		intents:  intents,
		settings: settings,
		limiter:  NewClientLimiter(settings.RateLimit.MaxRequests, settings.RateLimit.Window),
		now:      time.Now,
	}, nil
}

// SetupRoutes configures and returns the HTTP router with all API endpoints.
func (s *Server) SetupRoutes() *gin.Engine {
	if !s.settings.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// Forwarded headers are only believed from configured proxies, so a
	// client cannot pick its own rate limit key.
	if err := router.SetTrustedProxies(s.settings.Server.TrustedProxies); err != nil {
		logger.Error("invalid trusted proxies, trusting none", logger.Err(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(_ *gin.Context, _ *slog.Logger) *slog.Logger {
			return logger.Slog()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})
	router.Use(s.limiter.Middleware())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		intent := api.Group("/intent")
		intent.POST("/create", s.createIntent)
		intent.GET("/:id", s.getIntent)
		intent.PUT("/:id/refine", s.refineIntent)
		intent.PUT("/:id/finalize", s.finalizeIntent)
		intent.DELETE("/:id", s.deleteIntent)
		intent.GET("/:id/flows", s.listFlows)

		flow := api.Group("/flow")
		flow.POST("/generate/:id", s.generateFlows)
		flow.GET("/:id", s.getFlow)
		flow.DELETE("/:id", s.deleteFlow)
		flow.GET("/:id/diml", s.exportDIML)
		flow.GET("/:id/diml/generated", s.generateDIML)
		flow.GET("/:id/description", s.describeFlow)

		dimlGroup := api.Group("/diml")
		dimlGroup.POST("/validate", s.validateDIML)
		dimlGroup.POST("/import", s.importDIML)
	}

	return router
}

// Run serves the API on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.settings.Server.Addr(),
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("http server listening",
		"addr", httpServer.Addr,
		"environment", s.settings.Environment.String(),
		"rate_limit", s.settings.RateLimit.MaxRequests,
		"rate_window", s.settings.RateLimit.Window.String(),
	)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/taskmaster-backend/internal/http/handlers"
	httpMW "github.com/yungbote/taskmaster-backend/internal/http/middleware"
	"github.com/yungbote/taskmaster-backend/internal/observability"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics
	// MetricsEnabled exposes /metrics on the API router.
	MetricsEnabled bool

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	// Optional. Applied to the public auth routes.
	AuthRateLimiter *httpMW.ClientRateLimiter
	UserHandler     *httpH.UserHandler
	RealtimeHandler *httpH.RealtimeHandler
	ProjectHandler  *httpH.ProjectHandler
	ProgressHandler *httpH.ProgressHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsEnabled && cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			public := api.Group("/")
			if cfg.AuthRateLimiter != nil {
				public.Use(cfg.AuthRateLimiter.Middleware())
			}
			public.POST("/register", cfg.AuthHandler.Register)
			public.POST("/login", cfg.AuthHandler.Login)
			public.POST("/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
			protected.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
			protected.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
		}

		// Projects
		if cfg.ProjectHandler != nil {
			protected.POST("/projects", cfg.ProjectHandler.CreateProject)
			protected.GET("/projects", cfg.ProjectHandler.ListProjects)
			protected.GET("/projects/:id", cfg.ProjectHandler.GetProject)
		}

		// Progress
		if h := cfg.ProgressHandler; h != nil {
			p := protected.Group("/projects/:id/progress")
			p.GET("", h.GetProgress)
			p.POST("", h.CreateProgress)
			p.PUT("", h.UpdateProgress)
			p.DELETE("", h.DeleteProgress)
			p.GET("/history", h.ListHistory)
			p.GET("/version/:version", h.GetVersion)
			p.GET("/compare/:a/:b", h.CompareVersions)
			p.GET("/stats", h.GetStats)
			p.POST("/restore/:version", h.RestoreVersion)
			p.POST("/publish", h.Publish)
			p.POST("/unpublish", h.Unpublish)
			p.POST("/export", h.Export)
			p.GET("/exports/:export_id/download", h.DownloadExport)
		}
	}

	return r
}

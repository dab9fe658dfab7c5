package app

import (
	"github.com/yungbote/taskmaster-backend/internal/http"
	httpH "github.com/yungbote/taskmaster-backend/internal/http/handlers"
	httpMW "github.com/yungbote/taskmaster-backend/internal/http/middleware"
	"github.com/yungbote/taskmaster-backend/internal/observability"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
)

type Middleware struct {
	Auth      *httpMW.AuthMiddleware
	AuthLimit *httpMW.ClientRateLimiter
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Realtime *httpH.RealtimeHandler
	Project  *httpH.ProjectHandler
	Progress *httpH.ProgressHandler
}

func wireHandlers(log *logger.Logger, services Services, sseHub *realtime.SSEHub, checks ...httpH.DependencyCheck) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(checks...),
		Auth:     httpH.NewAuthHandler(services.Auth),
		User:     httpH.NewUserHandler(services.User),
		Realtime: httpH.NewRealtimeHandler(log, sseHub, services.Progress.AuthorizeChannel),
		Project:  httpH.NewProjectHandler(services.Project),
		Progress: httpH.NewProgressHandler(log, services.Progress),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	mw := Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
	if cfg.Auth.RateLimitPerMinute > 0 {
		mw.AuthLimit = httpMW.NewClientRateLimiter(cfg.Auth.RateLimitPerMinute, cfg.Auth.RateLimitBurst)
	}
	return mw
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		Metrics:         metrics,
		MetricsEnabled:  cfg.HTTP.MetricsEnabled,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		AuthRateLimiter: middleware.AuthLimit,
		UserHandler:     handlers.User,
		RealtimeHandler: handlers.Realtime,
		ProjectHandler:  handlers.Project,
		ProgressHandler: handlers.Progress,
	})
}

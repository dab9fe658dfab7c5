package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/taskmaster-backend/internal/modules/progress"
	"github.com/yungbote/taskmaster-backend/internal/observability"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
	"github.com/yungbote/taskmaster-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	User     services.UserService
	Project  services.ProjectService
	Progress progress.Usecases
	Emitter  *realtime.Emitter
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	repos Repos,
	clients Clients,
	hub *realtime.SSEHub,
	metrics *observability.Metrics,
) Services {
	log.Info("Wiring services...")

	var pub realtime.Publisher
	if clients.SSEBus != nil {
		pub = clients.SSEBus
	}
	emitter := realtime.NewEmitter(log, hub, pub)

	return Services{
		Auth: services.NewAuthService(db, log, repos.User, repos.UserToken, services.AuthConfig{
			JWTSecretKey: cfg.Auth.JWTSecretKey,
			AccessTTL:    cfg.Auth.AccessTokenTTL,
			RefreshTTL:   cfg.Auth.RefreshTokenTTL,
		}),
		User:    services.NewUserService(db, log, repos.User),
		Project: services.NewProjectService(db, log, repos.Project),
		Progress: progress.New(progress.UsecasesDeps{
			DB:              db,
			Log:             log,
			Progress:        repos.ProjectProgress,
			History:         repos.ProgressHistory,
			Exports:         repos.ProgressExport,
			Projects:        repos.Project,
			Store:           clients.Export.Store,
			Emitter:         emitter,
			Metrics:         metrics,
			MaxContentBytes: cfg.Progress.MaxContentBytes,
			ExportTTL:       cfg.Progress.ExportTTL,
		}),
		Emitter: emitter,
	}
}

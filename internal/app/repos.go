package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/taskmaster-backend/internal/data/repos"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

type Repos struct {
	User            repos.UserRepo
	UserToken       repos.UserTokenRepo
	Project         repos.ProjectRepo
	ProjectProgress repos.ProjectProgressRepo
	ProgressHistory repos.ProgressHistoryRepo
	ProgressExport  repos.ProgressExportRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:            repos.NewUserRepo(db, log),
		UserToken:       repos.NewUserTokenRepo(db, log),
		Project:         repos.NewProjectRepo(db, log),
		ProjectProgress: repos.NewProjectProgressRepo(db, log),
		ProgressHistory: repos.NewProgressHistoryRepo(db, log),
		ProgressExport:  repos.NewProgressExportRepo(db, log),
	}
}

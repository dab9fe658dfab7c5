package repos

import (
	"github.com/yungbote/taskmaster-backend/internal/data/repos/auth"
	"github.com/yungbote/taskmaster-backend/internal/data/repos/progress"
	"github.com/yungbote/taskmaster-backend/internal/data/repos/project"
	"github.com/yungbote/taskmaster-backend/internal/data/repos/user"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type ProjectRepo = project.ProjectRepo

type ProjectProgressRepo = progress.ProjectProgressRepo
type ProgressHistoryRepo = progress.ProgressHistoryRepo
type ProgressExportRepo = progress.ProgressExportRepo

var (
	NewUserRepo      = user.NewUserRepo
	NewUserTokenRepo = auth.NewUserTokenRepo

	NewProjectRepo = project.NewProjectRepo

	NewProjectProgressRepo = progress.NewProjectProgressRepo
	NewProgressHistoryRepo = progress.NewProgressHistoryRepo
	NewProgressExportRepo  = progress.NewProgressExportRepo
)

// ErrVersionConflict is returned when a versioned write lost a race.
var ErrVersionConflict = progress.ErrVersionConflict

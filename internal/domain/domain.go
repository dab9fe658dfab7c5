package domain

import (
	"github.com/yungbote/taskmaster-backend/internal/domain/auth"
	"github.com/yungbote/taskmaster-backend/internal/domain/progress"
	"github.com/yungbote/taskmaster-backend/internal/domain/project"
	"github.com/yungbote/taskmaster-backend/internal/domain/user"
)

type (
	User      = user.User
	UserToken = auth.UserToken

	Project = project.Project

	ProjectProgress = progress.ProjectProgress
	ProgressHistory = progress.ProgressHistory
	ProgressExport  = progress.ProgressExport
)

const (
	ProjectStatusActive   = project.StatusActive
	ProjectStatusArchived = project.StatusArchived

	ExportFormatMarkdown = progress.ExportFormatMarkdown
	ExportFormatHTML     = progress.ExportFormatHTML
	ExportFormatText     = progress.ExportFormatText
	ExportFormatPDF      = progress.ExportFormatPDF
	ExportFormatDOCX     = progress.ExportFormatDOCX

	ExportStorageGCS    = progress.ExportStorageGCS
	ExportStorageRedis  = progress.ExportStorageRedis
	ExportStorageInline = progress.ExportStorageInline
)

// Models lists every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&UserToken{},
		&Project{},
		&ProjectProgress{},
		&ProgressHistory{},
		&ProgressExport{},
	}
}

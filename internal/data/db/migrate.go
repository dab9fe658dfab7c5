package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// EnsureProgressIndexes adds the Postgres-only indexes the history browser relies on.
func EnsureProgressIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_progress_history_project_version_desc
		ON project_progress_history (project_id, version DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_progress_history_project_version_desc: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_progress_export_expires
		ON project_progress_export (expires_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_progress_export_expires: %w", err)
	}
	return nil
}

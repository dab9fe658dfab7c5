package progress

import (
	"time"

	"github.com/google/uuid"
)

// ProjectProgress is the live progress document of a project. There is at most one per project.
type ProjectProgress struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	Content     string    `gorm:"type:text;not null;column:content" json:"content"`
	Version     int       `gorm:"not null;column:version" json:"version"`
	IsPublished bool      `gorm:"not null;default:false;column:is_published" json:"is_published"`
	UpdatedBy   uuid.UUID `gorm:"type:uuid;column:updated_by" json:"updated_by"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ProjectProgress) TableName() string { return "project_progress" }

// ProgressHistory is an immutable snapshot of the document content at one version.
// Rows are only ever inserted.
type ProgressHistory struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_progress_history_project_version,priority:1" json:"project_id"`
	Version       int       `gorm:"not null;uniqueIndex:idx_progress_history_project_version,priority:2" json:"version"`
	Content       string    `gorm:"type:text;not null;column:content" json:"content"`
	ChangeSummary string    `gorm:"type:text;column:change_summary" json:"change_summary,omitempty"`
	UpdatedBy     uuid.UUID `gorm:"type:uuid;column:updated_by" json:"updated_by"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (ProgressHistory) TableName() string { return "project_progress_history" }

package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ExportFormatMarkdown = "markdown"
	ExportFormatHTML     = "html"
	ExportFormatText     = "txt"
	ExportFormatPDF      = "pdf"
	ExportFormatDOCX     = "docx"
)

const (
	ExportStorageGCS    = "gcs"
	ExportStorageRedis  = "redis"
	ExportStorageInline = "inline"
)

// ProgressExport records one rendered export of a progress document.
type ProgressExport struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Version     int            `gorm:"not null" json:"version"`
	Format      string         `gorm:"not null;column:format" json:"format"`
	Filename    string         `gorm:"not null;column:filename" json:"filename"`
	Storage     string         `gorm:"not null;column:storage" json:"storage"`
	ObjectKey   string         `gorm:"column:object_key" json:"object_key,omitempty"`
	FileSize    int64          `gorm:"not null;default:0;column:file_size" json:"file_size"`
	Options     datatypes.JSON `gorm:"column:options" json:"options,omitempty"`
	RequestedBy uuid.UUID      `gorm:"type:uuid;column:requested_by" json:"requested_by"`
	ExpiresAt   time.Time      `gorm:"not null;index" json:"expires_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ProgressExport) TableName() string { return "project_progress_export" }

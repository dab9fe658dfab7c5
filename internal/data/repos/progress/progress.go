package progress

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

// ErrVersionConflict means the stored version moved since it was read.
var ErrVersionConflict = errors.New("progress version conflict")

type ProjectProgressRepo interface {
	Create(dbc dbctx.Context, row *types.ProjectProgress) (*types.ProjectProgress, error)
	GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.ProjectProgress, error)
	// UpdateVersioned writes content, version and updated_by of row only if the
	// stored version still equals expectedVersion.
	UpdateVersioned(dbc dbctx.Context, row *types.ProjectProgress, expectedVersion int) error
	SetPublished(dbc dbctx.Context, projectID uuid.UUID, published bool, updatedBy uuid.UUID) (*types.ProjectProgress, error)
	DeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
}

type projectProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProjectProgressRepo {
	return &projectProgressRepo{db: db, log: baseLog.With("repo", "ProjectProgressRepo")}
}

func (r *projectProgressRepo) Create(dbc dbctx.Context, row *types.ProjectProgress) (*types.ProjectProgress, error) {
	if row == nil {
		return nil, errors.New("nil progress row")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// GetByProjectID returns nil, nil when the project has no progress document.
func (r *projectProgressRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.ProjectProgress, error) {
	if projectID == uuid.Nil {
		return nil, nil
	}
	var row types.ProjectProgress
	err := dbc.DB(r.db).Where("project_id = ?", projectID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *projectProgressRepo) UpdateVersioned(dbc dbctx.Context, row *types.ProjectProgress, expectedVersion int) error {
	if row == nil {
		return errors.New("nil progress row")
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&types.ProjectProgress{}).
		Where("project_id = ? AND version = ?", row.ProjectID, expectedVersion).
		Updates(map[string]interface{}{
			"content":      row.Content,
			"version":      row.Version,
			"is_published": row.IsPublished,
			"updated_by":   row.UpdatedBy,
			"updated_at":   row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// SetPublished flips visibility without touching version or content.
// Returns nil, nil when no document exists.
func (r *projectProgressRepo) SetPublished(dbc dbctx.Context, projectID uuid.UUID, published bool, updatedBy uuid.UUID) (*types.ProjectProgress, error) {
	res := dbc.DB(r.db).
		Model(&types.ProjectProgress{}).
		Where("project_id = ?", projectID).
		Updates(map[string]interface{}{
			"is_published": published,
			"updated_by":   updatedBy,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByProjectID(dbc, projectID)
}

func (r *projectProgressRepo) DeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Delete(&types.ProjectProgress{})
	return res.RowsAffected, res.Error
}

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

type ProgressExportRepo interface {
	Create(dbc dbctx.Context, row *types.ProgressExport) (*types.ProgressExport, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProgressExport, error)
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ProgressExport, error)
	ListExpired(dbc dbctx.Context, now time.Time, limit int) ([]*types.ProgressExport, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
}

type progressExportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressExportRepo(db *gorm.DB, baseLog *logger.Logger) ProgressExportRepo {
	return &progressExportRepo{db: db, log: baseLog.With("repo", "ProgressExportRepo")}
}

func (r *progressExportRepo) Create(dbc dbctx.Context, row *types.ProgressExport) (*types.ProgressExport, error) {
	if row == nil {
		return nil, errors.New("nil export row")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// GetByID returns nil, nil when the export does not exist.
func (r *progressExportRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProgressExport, error) {
	var row types.ProgressExport
	err := dbc.DB(r.db).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *progressExportRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ProgressExport, error) {
	var results []*types.ProgressExport
	if err := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressExportRepo) ListExpired(dbc dbctx.Context, now time.Time, limit int) ([]*types.ProgressExport, error) {
	var results []*types.ProgressExport
	q := dbc.DB(r.db).Where("expires_at <= ?", now).Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressExportRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.ProgressExport{}).Error
}

func (r *progressExportRepo) DeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Delete(&types.ProgressExport{})
	return res.RowsAffected, res.Error
}

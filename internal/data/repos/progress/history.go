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

type ProgressHistoryRepo interface {
	Create(dbc dbctx.Context, entry *types.ProgressHistory) (*types.ProgressHistory, error)
	GetByVersion(dbc dbctx.Context, projectID uuid.UUID, version int) (*types.ProgressHistory, error)
	ListByProjectID(dbc dbctx.Context, projectID uuid.UUID, limit, offset int) ([]*types.ProgressHistory, error)
	CountByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
	First(dbc dbctx.Context, projectID uuid.UUID) (*types.ProgressHistory, error)
	DeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
}

type progressHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ProgressHistoryRepo {
	return &progressHistoryRepo{db: db, log: baseLog.With("repo", "ProgressHistoryRepo")}
}

func (r *progressHistoryRepo) Create(dbc dbctx.Context, entry *types.ProgressHistory) (*types.ProgressHistory, error) {
	if entry == nil {
		return nil, errors.New("nil history entry")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := dbc.DB(r.db).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// GetByVersion returns nil, nil when the version does not exist.
func (r *progressHistoryRepo) GetByVersion(dbc dbctx.Context, projectID uuid.UUID, version int) (*types.ProgressHistory, error) {
	var entry types.ProgressHistory
	err := dbc.DB(r.db).
		Where("project_id = ? AND version = ?", projectID, version).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByProjectID returns entries newest first.
func (r *progressHistoryRepo) ListByProjectID(dbc dbctx.Context, projectID uuid.UUID, limit, offset int) ([]*types.ProgressHistory, error) {
	var results []*types.ProgressHistory
	q := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Order("version DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressHistoryRepo) CountByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.ProgressHistory{}).
		Where("project_id = ?", projectID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// First returns the oldest entry, or nil, nil when there is none.
func (r *progressHistoryRepo) First(dbc dbctx.Context, projectID uuid.UUID) (*types.ProgressHistory, error) {
	var entry types.ProgressHistory
	err := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Order("version ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *progressHistoryRepo) DeleteByProjectID(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Where("project_id = ?", projectID).
		Delete(&types.ProgressHistory{})
	return res.RowsAffected, res.Error
}

package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/platform/apierr"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
)

type HistoryQuery struct {
	Limit  int
	Offset int
}

type RestoreInput struct {
	ChangeSummary   string
	ExpectedVersion *int
}

var errVersionNotFound = errors.New("version not found")

// RestoreSummary is the change summary recorded when a restore has none.
func RestoreSummary(version int) string {
	return fmt.Sprintf("Restored to version %d", version)
}

// ListHistory returns entries newest first.
func (u Usecases) ListHistory(ctx context.Context, userID, projectID uuid.UUID, q HistoryQuery) (entries []*types.ProgressHistory, err error) {
	ctx, done := u.begin(ctx, "history", projectID)
	defer func() { done(err) }()

	if q.Limit < 0 || q.Offset < 0 {
		return nil, apierr.BadRequest("invalid_request", errors.New("skip and limit must not be negative"))
	}
	if q.Limit == 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, _, err := u.requireReadable(dbc, userID, projectID); err != nil {
		return nil, err
	}
	entries, err = u.deps.History.ListByProjectID(dbc, projectID, q.Limit, q.Offset)
	if err != nil {
		return nil, u.internal(ctx, "list_history_failed", fmt.Errorf("list history: %w", err), "project_id", projectID)
	}
	if entries == nil {
		entries = []*types.ProgressHistory{}
	}
	return entries, nil
}

func (u Usecases) GetVersion(ctx context.Context, userID, projectID uuid.UUID, version int) (entry *types.ProgressHistory, err error) {
	ctx, done := u.begin(ctx, "version", projectID)
	defer func() { done(err) }()

	dbc := dbctx.Context{Ctx: ctx}
	if _, _, err := u.requireReadable(dbc, userID, projectID); err != nil {
		return nil, err
	}
	return u.snapshot(dbc, projectID, version)
}

// Restore copies snapshot version into a new version. It always writes, even
// when the snapshot equals the live content, and never alters is_published.
func (u Usecases) Restore(ctx context.Context, userID, projectID uuid.UUID, version int, in RestoreInput) (doc *types.ProjectProgress, err error) {
	ctx, done := u.begin(ctx, "restore", projectID)
	defer func() { done(err) }()

	if _, err := u.requireOwner(dbctx.Context{Ctx: ctx}, userID, projectID); err != nil {
		return nil, err
	}
	summary := strings.TrimSpace(in.ChangeSummary)
	if err := checkSummary(summary); err != nil {
		return nil, err
	}
	if summary == "" {
		summary = RestoreSummary(version)
	}

	err = u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := u.loadForWrite(dbc, projectID, in.ExpectedVersion)
		if err != nil {
			return err
		}
		snap, err := u.snapshot(dbc, projectID, version)
		if err != nil {
			return err
		}
		next := *current
		next.Content = snap.Content
		next.Version = current.Version + 1
		next.UpdatedBy = userID
		next.UpdatedAt = u.now()
		if err := u.commit(dbc, &next, current.Version, true, summary); err != nil {
			return err
		}
		doc = &next
		return nil
	})
	if err != nil {
		return nil, u.internal(ctx, "restore_progress_failed", err, "project_id", projectID, "version", version)
	}

	u.emit(ctx, realtime.SSEEventProgressRestored, projectID, doc, summary)
	return doc, nil
}

func (u Usecases) snapshot(dbc dbctx.Context, projectID uuid.UUID, version int) (*types.ProgressHistory, error) {
	if version < 1 {
		return nil, apierr.NotFound("version_not_found", fmt.Errorf("%w: %d", errVersionNotFound, version))
	}
	entry, err := u.deps.History.GetByVersion(dbc, projectID, version)
	if err != nil {
		return nil, u.internal(dbc.Ctx, "load_version_failed", fmt.Errorf("load version %d: %w", version, err), "project_id", projectID)
	}
	if entry == nil {
		return nil, apierr.NotFound("version_not_found", fmt.Errorf("%w: %d", errVersionNotFound, version))
	}
	return entry, nil
}

package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/taskmaster-backend/internal/data/repos"
	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
	"github.com/yungbote/taskmaster-backend/internal/platform/apierr"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/platform/validate"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
)

const InitialChangeSummary = "Initial version"

type CreateInput struct {
	Content       string `json:"content"`
	IsPublished   *bool  `json:"is_published,omitempty"`
	ChangeSummary string `json:"change_summary,omitempty"`
}

type CreateResult struct {
	Document *types.ProjectProgress
	Created  bool
}

// SaveInput is a partial update. A nil Content leaves the content alone.
type SaveInput struct {
	Content         *string `json:"content,omitempty"`
	IsPublished     *bool   `json:"is_published,omitempty"`
	ChangeSummary   string  `json:"change_summary,omitempty"`
	ExpectedVersion *int    `json:"expected_version,omitempty"`
}

var errVersionConflict = errors.New("the document was changed by someone else; reload and try again")

func (u Usecases) Get(ctx context.Context, userID, projectID uuid.UUID) (doc *types.ProjectProgress, err error) {
	ctx, done := u.begin(ctx, "get", projectID)
	defer func() { done(err) }()

	_, doc, err = u.requireReadable(dbctx.Context{Ctx: ctx}, userID, projectID)
	return doc, err
}

// Create makes version 1 of the document. When the document already exists
// it is returned unchanged with Created=false.
func (u Usecases) Create(ctx context.Context, userID, projectID uuid.UUID, in CreateInput) (res CreateResult, err error) {
	ctx, done := u.begin(ctx, "create", projectID)
	defer func() { done(err) }()

	project, err := u.requireOwner(dbctx.Context{Ctx: ctx}, userID, projectID)
	if err != nil {
		return CreateResult{}, err
	}
	now := u.now()
	body := in.Content
	if strings.TrimSpace(body) == "" {
		body = content.DefaultDocument(project.Name, now)
	}
	if err := u.checkContent(body); err != nil {
		return CreateResult{}, err
	}
	summary := strings.TrimSpace(in.ChangeSummary)
	if err := checkSummary(summary); err != nil {
		return CreateResult{}, err
	}
	if summary == "" {
		summary = InitialChangeSummary
	}

	doc := &types.ProjectProgress{
		ProjectID:   projectID,
		Content:     body,
		Version:     1,
		IsPublished: in.IsPublished != nil && *in.IsPublished,
		UpdatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var existing *types.ProjectProgress
	err = u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := u.deps.Progress.GetByProjectID(dbc, projectID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if found != nil {
			existing = found
			return nil
		}
		if _, err := u.deps.Progress.Create(dbc, doc); err != nil {
			return fmt.Errorf("create progress: %w", err)
		}
		if _, err := u.deps.History.Create(dbc, &types.ProgressHistory{
			ProjectID:     projectID,
			Version:       1,
			Content:       body,
			ChangeSummary: summary,
			UpdatedBy:     userID,
			CreatedAt:     now,
		}); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if repos.IsUniqueViolation(err) {
		// Lost a creation race; the other writer's document wins.
		existing, err = u.deps.Progress.GetByProjectID(dbctx.Context{Ctx: ctx}, projectID)
		if err == nil && existing == nil {
			err = errProgressNotFound
		}
	}
	if err != nil {
		return CreateResult{}, u.internal(ctx, "create_progress_failed", err, "project_id", projectID)
	}
	if existing != nil {
		return CreateResult{Document: existing, Created: false}, nil
	}

	u.deps.Metrics.ObserveContentSize(len(body))
	u.emit(ctx, realtime.SSEEventProgressSaved, projectID, doc, summary)
	return CreateResult{Document: doc, Created: true}, nil
}

// Save applies a partial update. Changed content produces a new version and
// history entry; unchanged content only applies the publish flag.
func (u Usecases) Save(ctx context.Context, userID, projectID uuid.UUID, in SaveInput) (doc *types.ProjectProgress, err error) {
	ctx, done := u.begin(ctx, "save", projectID)
	defer func() { done(err) }()

	if _, err := u.requireOwner(dbctx.Context{Ctx: ctx}, userID, projectID); err != nil {
		return nil, err
	}
	if in.Content != nil {
		if err := u.checkContent(*in.Content); err != nil {
			return nil, err
		}
	}
	summary := strings.TrimSpace(in.ChangeSummary)
	if err := checkSummary(summary); err != nil {
		return nil, err
	}

	var (
		versioned     bool
		publishedFrom bool
	)
	err = u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := u.loadForWrite(dbc, projectID, in.ExpectedVersion)
		if err != nil {
			return err
		}
		publishedFrom = current.IsPublished
		next := *current
		if in.Content != nil && *in.Content != current.Content {
			next.Content = *in.Content
			next.Version = current.Version + 1
			versioned = true
		}
		if in.IsPublished != nil {
			next.IsPublished = *in.IsPublished
		}
		if !versioned && next.IsPublished == current.IsPublished {
			doc = current
			return nil
		}
		next.UpdatedBy = userID
		next.UpdatedAt = u.now()
		if err := u.commit(dbc, &next, current.Version, versioned, summary); err != nil {
			return err
		}
		doc = &next
		return nil
	})
	if err != nil {
		return nil, u.internal(ctx, "save_progress_failed", err, "project_id", projectID)
	}

	if versioned {
		u.deps.Metrics.ObserveContentSize(len(doc.Content))
		u.emit(ctx, realtime.SSEEventProgressSaved, projectID, doc, summary)
	}
	if doc.IsPublished != publishedFrom {
		u.emit(ctx, publishEvent(doc.IsPublished), projectID, doc, "")
	}
	return doc, nil
}

func (u Usecases) Publish(ctx context.Context, userID, projectID uuid.UUID) (*types.ProjectProgress, error) {
	return u.setPublished(ctx, userID, projectID, true)
}

func (u Usecases) Unpublish(ctx context.Context, userID, projectID uuid.UUID) (*types.ProjectProgress, error) {
	return u.setPublished(ctx, userID, projectID, false)
}

// setPublished is idempotent and never touches version or content.
func (u Usecases) setPublished(ctx context.Context, userID, projectID uuid.UUID, published bool) (doc *types.ProjectProgress, err error) {
	op := "unpublish"
	if published {
		op = "publish"
	}
	ctx, done := u.begin(ctx, op, projectID)
	defer func() { done(err) }()

	dbc := dbctx.Context{Ctx: ctx}
	if _, err := u.requireOwner(dbc, userID, projectID); err != nil {
		return nil, err
	}
	current, err := u.deps.Progress.GetByProjectID(dbc, projectID)
	if err != nil {
		return nil, u.internal(ctx, "publish_progress_failed", fmt.Errorf("load progress: %w", err), "project_id", projectID)
	}
	if current == nil {
		return nil, apierr.NotFound("progress_not_found", errProgressNotFound)
	}
	if current.IsPublished == published {
		return current, nil
	}
	doc, err = u.deps.Progress.SetPublished(dbc, projectID, published, userID)
	if err != nil {
		return nil, u.internal(ctx, "publish_progress_failed", fmt.Errorf("set published: %w", err), "project_id", projectID)
	}
	if doc == nil {
		return nil, apierr.NotFound("progress_not_found", errProgressNotFound)
	}
	u.emit(ctx, publishEvent(published), projectID, doc, "")
	return doc, nil
}

// Delete removes the document, its history and its exports. Stored export
// artifacts are removed after the rows are gone.
func (u Usecases) Delete(ctx context.Context, userID, projectID uuid.UUID) (err error) {
	ctx, done := u.begin(ctx, "delete", projectID)
	defer func() { done(err) }()

	if _, err := u.requireOwner(dbctx.Context{Ctx: ctx}, userID, projectID); err != nil {
		return err
	}
	var exports []*types.ProgressExport
	err = u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		n, err := u.deps.Progress.DeleteByProjectID(dbc, projectID)
		if err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		if n == 0 {
			return apierr.NotFound("progress_not_found", errProgressNotFound)
		}
		if _, err := u.deps.History.DeleteByProjectID(dbc, projectID); err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
		exports, err = u.deps.Exports.ListByProjectID(dbc, projectID)
		if err != nil {
			return fmt.Errorf("list exports: %w", err)
		}
		if _, err := u.deps.Exports.DeleteByProjectID(dbc, projectID); err != nil {
			return fmt.Errorf("delete exports: %w", err)
		}
		return nil
	})
	if err != nil {
		return u.internal(ctx, "delete_progress_failed", err, "project_id", projectID)
	}

	u.removeArtifacts(ctx, exports)
	u.emit(ctx, realtime.SSEEventProgressDeleted, projectID, nil, "")
	return nil
}

// loadForWrite reads the live row inside a write transaction and enforces
// expectedVersion when given.
func (u Usecases) loadForWrite(dbc dbctx.Context, projectID uuid.UUID, expectedVersion *int) (*types.ProjectProgress, error) {
	current, err := u.deps.Progress.GetByProjectID(dbc, projectID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if current == nil {
		return nil, apierr.NotFound("progress_not_found", errProgressNotFound)
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		return nil, apierr.Conflict("version_conflict",
			fmt.Errorf("%w (expected version %d, current version %d)", errVersionConflict, *expectedVersion, current.Version))
	}
	return current, nil
}

// commit writes next with a compare-and-swap on fromVersion and, when
// versioned, appends the matching history entry. The swap runs first so a
// concurrent writer blocks on the row rather than on the history index.
func (u Usecases) commit(dbc dbctx.Context, next *types.ProjectProgress, fromVersion int, versioned bool, summary string) error {
	err := u.deps.Progress.UpdateVersioned(dbc, next, fromVersion)
	if errors.Is(err, repos.ErrVersionConflict) {
		return apierr.Conflict("version_conflict", errVersionConflict)
	}
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if !versioned {
		return nil
	}
	_, err = u.deps.History.Create(dbc, &types.ProgressHistory{
		ProjectID:     next.ProjectID,
		Version:       next.Version,
		Content:       next.Content,
		ChangeSummary: summary,
		UpdatedBy:     next.UpdatedBy,
		CreatedAt:     next.UpdatedAt,
	})
	if repos.IsUniqueViolation(err) {
		return apierr.Conflict("version_conflict", errVersionConflict)
	}
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (u Usecases) checkContent(body string) error {
	err := validate.Var("content", body, "maxbytes="+strconv.Itoa(u.deps.MaxContentBytes))
	if validate.IsMaxBytes(err) {
		return apierr.New(http.StatusUnprocessableEntity, "content_too_large", err)
	}
	if err != nil {
		return apierr.BadRequest("validation_failed", err)
	}
	return nil
}

func checkSummary(summary string) error {
	if utf8.RuneCountInString(summary) > MaxChangeSummaryChars {
		return apierr.BadRequest("validation_failed",
			fmt.Errorf("change_summary must be at most %d characters", MaxChangeSummaryChars))
	}
	return nil
}

func publishEvent(published bool) realtime.SSEEvent {
	if published {
		return realtime.SSEEventProgressPublished
	}
	return realtime.SSEEventProgressUnpublished
}

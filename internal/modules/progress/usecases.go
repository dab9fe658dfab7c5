package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/taskmaster-backend/internal/data/repos"
	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/observability"
	"github.com/yungbote/taskmaster-backend/internal/platform/apierr"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
)

const (
	DefaultMaxContentBytes = 1 << 20
	DefaultHistoryLimit    = 50
	MaxHistoryLimit        = 100
	DefaultExportTTL       = 24 * time.Hour
	MaxChangeSummaryChars  = 500
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Progress repos.ProjectProgressRepo
	History  repos.ProgressHistoryRepo
	Exports  repos.ProgressExportRepo
	Projects repos.ProjectRepo

	// Optional. Exports are returned inline when nil.
	Store ExportStore
	// Optional. Mutations are not broadcast when nil.
	Emitter *realtime.Emitter
	// Optional.
	Metrics *observability.Metrics

	Clock           func() time.Time
	MaxContentBytes int
	ExportTTL       time.Duration
	// DownloadPath builds the API path served for exports kept in Redis.
	DownloadPath func(projectID, exportID uuid.UUID) string
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log != nil {
		deps.Log = deps.Log.With("module", "progress")
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	if deps.MaxContentBytes <= 0 {
		deps.MaxContentBytes = DefaultMaxContentBytes
	}
	if deps.ExportTTL <= 0 {
		deps.ExportTTL = DefaultExportTTL
	}
	if deps.Store == nil {
		deps.Store = NewInlineExportStore()
	}
	if deps.DownloadPath == nil {
		deps.DownloadPath = DefaultDownloadPath
	}
	return Usecases{deps: deps}
}

// DefaultDownloadPath is the router path of the export download endpoint.
func DefaultDownloadPath(projectID, exportID uuid.UUID) string {
	return fmt.Sprintf("/api/projects/%s/progress/exports/%s/download", projectID, exportID)
}

var (
	errProjectNotFound  = errors.New("project not found")
	errProgressNotFound = errors.New("progress document not found")
	errForbidden        = errors.New("you do not have access to this progress document")
)

func (u Usecases) now() time.Time { return u.deps.Clock().UTC() }

// begin opens a span for op and returns the matching finisher, which records
// the outcome on the span and in metrics.
func (u Usecases) begin(ctx context.Context, op string, projectID uuid.UUID) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "progress."+op, observability.ProgressAttrs(projectID.String(), 0)...)
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = apierr.CodeOf(err, "error")
		}
		u.deps.Metrics.ObserveProgressOp(op, outcome)
		observability.EndSpan(span, err)
	}
}

func (u Usecases) internal(ctx context.Context, code string, err error, kv ...interface{}) error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	if u.deps.Log != nil {
		u.deps.Log.WithContext(ctx).Error("Progress operation failed", append([]interface{}{"code", code, "error", err}, kv...)...)
	}
	return apierr.Internal(code, err)
}

func (u Usecases) loadProject(dbc dbctx.Context, projectID uuid.UUID) (*types.Project, error) {
	p, err := u.deps.Projects.GetByID(dbc, projectID)
	if err != nil {
		return nil, u.internal(dbc.Ctx, "load_project_failed", fmt.Errorf("load project: %w", err), "project_id", projectID)
	}
	if p == nil {
		return nil, apierr.NotFound("project_not_found", errProjectNotFound)
	}
	return p, nil
}

// requireOwner allows mutations only by the project owner.
func (u Usecases) requireOwner(dbc dbctx.Context, userID, projectID uuid.UUID) (*types.Project, error) {
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized()
	}
	p, err := u.loadProject(dbc, projectID)
	if err != nil {
		return nil, err
	}
	if p.OwnerUserID != userID {
		return nil, apierr.Forbidden("forbidden", errForbidden)
	}
	return p, nil
}

// requireReadable loads the live document for userID. Owners can read their
// documents in any state; everyone else only sees published documents.
func (u Usecases) requireReadable(dbc dbctx.Context, userID, projectID uuid.UUID) (*types.Project, *types.ProjectProgress, error) {
	if userID == uuid.Nil {
		return nil, nil, apierr.Unauthorized()
	}
	p, err := u.loadProject(dbc, projectID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := u.deps.Progress.GetByProjectID(dbc, projectID)
	if err != nil {
		return nil, nil, u.internal(dbc.Ctx, "load_progress_failed", fmt.Errorf("load progress: %w", err), "project_id", projectID)
	}
	if p.OwnerUserID != userID && (doc == nil || !doc.IsPublished) {
		return nil, nil, apierr.Forbidden("forbidden", errForbidden)
	}
	if doc == nil {
		return nil, nil, apierr.NotFound("progress_not_found", errProgressNotFound)
	}
	return p, doc, nil
}

// AuthorizeChannel reports whether userID may subscribe to channel.
func (u Usecases) AuthorizeChannel(ctx context.Context, userID uuid.UUID, channel string) error {
	raw, ok := strings.CutPrefix(channel, "project:")
	if !ok {
		return apierr.BadRequest("invalid_channel", fmt.Errorf("unknown channel %q", channel))
	}
	projectID, err := uuid.Parse(raw)
	if err != nil {
		return apierr.BadRequest("invalid_channel", fmt.Errorf("invalid project id in channel: %w", err))
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := u.requireOwner(dbc, userID, projectID); err == nil {
		return nil
	} else if apierr.StatusOf(err) != http.StatusForbidden {
		return err
	}
	_, _, err = u.requireReadable(dbc, userID, projectID)
	return err
}

// ProgressEvent is the payload of realtime progress messages.
type ProgressEvent struct {
	ProjectID     uuid.UUID `json:"project_id"`
	Version       int       `json:"version"`
	IsPublished   bool      `json:"is_published"`
	UpdatedBy     uuid.UUID `json:"updated_by"`
	ChangeSummary string    `json:"change_summary,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u Usecases) emit(ctx context.Context, event realtime.SSEEvent, projectID uuid.UUID, doc *types.ProjectProgress, summary string) {
	payload := ProgressEvent{ProjectID: projectID, ChangeSummary: summary, UpdatedAt: u.now()}
	if doc != nil {
		payload.Version = doc.Version
		payload.IsPublished = doc.IsPublished
		payload.UpdatedBy = doc.UpdatedBy
		payload.UpdatedAt = doc.UpdatedAt
	}
	u.deps.Metrics.IncSSEEvent(string(event))
	u.deps.Emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ProjectChannel(projectID),
		Event:   event,
		Data:    payload,
	})
}

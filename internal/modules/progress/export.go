package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
	"github.com/yungbote/taskmaster-backend/internal/platform/apierr"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/platform/validate"
)

type ExportResult struct {
	Success     bool       `json:"success"`
	ExportID    uuid.UUID  `json:"export_id"`
	Filename    string     `json:"filename"`
	Format      string     `json:"format"`
	ContentType string     `json:"content_type"`
	DownloadURL string     `json:"download_url,omitempty"`
	FileSize    int64      `json:"file_size,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	// Content carries the body when nothing was stored.
	Content string `json:"content,omitempty"`
}

type ExportDownload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

var errExportNotFound = errors.New("export not found")

var contentTypes = map[string]string{
	types.ExportFormatMarkdown: "text/markdown; charset=utf-8",
	types.ExportFormatHTML:     "text/html; charset=utf-8",
	types.ExportFormatText:     "text/plain; charset=utf-8",
}

// NormalizeFormat maps aliases onto the stored format names.
func NormalizeFormat(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "md":
		return types.ExportFormatMarkdown
	case "text":
		return types.ExportFormatText
	default:
		return f
	}
}

// Export renders the live document and keeps the artifact in the configured
// store until ExportTTL passes.
func (u Usecases) Export(ctx context.Context, userID, projectID uuid.UUID, opts content.ExportOptions) (res *ExportResult, err error) {
	ctx, done := u.begin(ctx, "export", projectID)
	defer func() { done(err) }()

	opts.Format = NormalizeFormat(opts.Format)
	switch opts.Format {
	case types.ExportFormatPDF, types.ExportFormatDOCX:
		return nil, apierr.New(http.StatusUnprocessableEntity, "unsupported_format",
			fmt.Errorf("%s export is not available; use the browser print dialog to save a copy", opts.Format))
	}
	if err := validate.Var("custom_title", opts.CustomTitle, "max=200"); err != nil {
		return nil, apierr.BadRequest("validation_failed", err)
	}
	if err := validate.Var("custom_footer", opts.CustomFooter, "max=2000"); err != nil {
		return nil, apierr.BadRequest("validation_failed", err)
	}

	project, doc, err := u.requireReadable(dbctx.Context{Ctx: ctx}, userID, projectID)
	if err != nil {
		return nil, err
	}
	now := u.now()
	rendered, err := content.Render(content.RenderInput{
		ProjectName: project.Name,
		Content:     doc.Content,
		Version:     doc.Version,
		IsPublished: doc.IsPublished,
		UpdatedAt:   doc.UpdatedAt,
		GeneratedAt: now,
	}, opts)
	if errors.Is(err, content.ErrUnsupportedFormat) {
		return nil, apierr.New(http.StatusUnprocessableEntity, "unsupported_format", err)
	}
	if err != nil {
		return nil, u.internal(ctx, "export_failed", fmt.Errorf("render: %w", err), "project_id", projectID)
	}

	exportID := uuid.New()
	filename := content.Filename(project.Name, doc.Version, rendered.Extension)
	key := path.Join(projectID.String(), exportID.String(), filename)
	store := u.deps.Store
	if err := store.Put(ctx, key, rendered, u.deps.ExportTTL); err != nil {
		return nil, u.internal(ctx, "export_failed", fmt.Errorf("store artifact: %w", err), "project_id", projectID, "storage", store.Kind())
	}

	optsJSON, _ := json.Marshal(opts)
	row := &types.ProgressExport{
		ID:          exportID,
		ProjectID:   projectID,
		Version:     doc.Version,
		Format:      opts.Format,
		Filename:    filename,
		Storage:     store.Kind(),
		ObjectKey:   key,
		FileSize:    int64(len(rendered.Body)),
		Options:     datatypes.JSON(optsJSON),
		RequestedBy: userID,
		ExpiresAt:   now.Add(u.deps.ExportTTL),
		CreatedAt:   now,
	}
	if store.Kind() == types.ExportStorageInline {
		row.ObjectKey = ""
	}
	if _, err := u.deps.Exports.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		u.removeArtifacts(ctx, []*types.ProgressExport{row})
		return nil, u.internal(ctx, "export_failed", fmt.Errorf("record export: %w", err), "project_id", projectID)
	}
	u.deps.Metrics.AddExportBytes(opts.Format, store.Kind(), row.FileSize)

	res = &ExportResult{
		Success:     true,
		ExportID:    exportID,
		Filename:    filename,
		Format:      opts.Format,
		ContentType: rendered.ContentType,
		FileSize:    row.FileSize,
	}
	if store.Kind() == types.ExportStorageInline {
		res.Content = string(rendered.Body)
		return res, nil
	}
	url, err := store.URL(ctx, key, u.deps.ExportTTL)
	if err != nil {
		return nil, u.internal(ctx, "export_failed", fmt.Errorf("download url: %w", err), "project_id", projectID)
	}
	if url == "" {
		url = u.deps.DownloadPath(projectID, exportID)
	}
	expires := row.ExpiresAt
	res.DownloadURL = url
	res.ExpiresAt = &expires
	return res, nil
}

// OpenExport streams a stored artifact that has not expired yet. The caller
// closes Body.
func (u Usecases) OpenExport(ctx context.Context, userID, projectID, exportID uuid.UUID) (dl *ExportDownload, err error) {
	ctx, done := u.begin(ctx, "download", projectID)
	defer func() { done(err) }()

	dbc := dbctx.Context{Ctx: ctx}
	if _, _, err := u.requireReadable(dbc, userID, projectID); err != nil {
		return nil, err
	}
	row, err := u.deps.Exports.GetByID(dbc, exportID)
	if err != nil {
		return nil, u.internal(ctx, "download_failed", fmt.Errorf("load export: %w", err), "project_id", projectID)
	}
	if row == nil || row.ProjectID != projectID || row.ObjectKey == "" || row.Storage != u.deps.Store.Kind() {
		return nil, apierr.NotFound("export_not_found", errExportNotFound)
	}
	if !row.ExpiresAt.After(u.now()) {
		return nil, apierr.NotFound("export_not_found", fmt.Errorf("%w: expired at %s", errExportNotFound, row.ExpiresAt.Format(time.RFC3339)))
	}
	body, err := u.deps.Store.Open(ctx, row.ObjectKey)
	if errors.Is(err, ErrArtifactMissing) {
		return nil, apierr.NotFound("export_not_found", errExportNotFound)
	}
	if err != nil {
		return nil, u.internal(ctx, "download_failed", fmt.Errorf("open artifact: %w", err), "project_id", projectID)
	}
	ct := contentTypes[row.Format]
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &ExportDownload{Filename: row.Filename, ContentType: ct, Size: row.FileSize, Body: body}, nil
}

// PurgeExpiredExports deletes up to limit expired export rows and their artifacts.
func (u Usecases) PurgeExpiredExports(ctx context.Context, limit int) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	expired, err := u.deps.Exports.ListExpired(dbc, u.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list expired exports: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}
	u.removeArtifacts(ctx, expired)
	ids := make([]uuid.UUID, 0, len(expired))
	for _, e := range expired {
		ids = append(ids, e.ID)
	}
	if err := u.deps.Exports.DeleteByIDs(dbc, ids); err != nil {
		return 0, fmt.Errorf("delete expired exports: %w", err)
	}
	return len(ids), nil
}

// removeArtifacts is best effort; Redis artifacts expire on their own.
func (u Usecases) removeArtifacts(ctx context.Context, exports []*types.ProgressExport) {
	store := u.deps.Store
	for _, e := range exports {
		if e == nil || e.ObjectKey == "" || e.Storage != store.Kind() {
			continue
		}
		if err := store.Delete(ctx, e.ObjectKey); err != nil && u.deps.Log != nil {
			u.deps.Log.WithContext(ctx).Warn("Failed to delete export artifact", "error", err, "export_id", e.ID, "storage", e.Storage)
		}
	}
}

package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/taskmaster-backend/internal/http/response"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

type ProgressHandler struct {
	log      *logger.Logger
	progress progress.Usecases
}

func NewProgressHandler(log *logger.Logger, uc progress.Usecases) *ProgressHandler {
	return &ProgressHandler{log: log.With("handler", "ProgressHandler"), progress: uc}
}

// GET /projects/:id/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	doc, err := h.progress.Get(c.Request.Context(), userID, projectID)
	if err != nil {
		response.RespondAPIError(c, err, "get_progress_failed")
		return
	}
	response.RespondOK(c, doc)
}

// POST /projects/:id/progress
// body: { "content": "...", "is_published": false, "change_summary": "..." }
func (h *ProgressHandler) CreateProgress(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	var req progress.CreateInput
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.progress.Create(c.Request.Context(), userID, projectID, req)
	if err != nil {
		response.RespondAPIError(c, err, "create_progress_failed")
		return
	}
	if res.Created {
		response.RespondCreated(c, res.Document)
		return
	}
	response.RespondOK(c, res.Document)
}

// PUT /projects/:id/progress
// body: { "content": "...", "is_published": true, "change_summary": "...", "expected_version": 3 }
func (h *ProgressHandler) UpdateProgress(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	var req progress.SaveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	doc, err := h.progress.Save(c.Request.Context(), userID, projectID, req)
	if err != nil {
		response.RespondAPIError(c, err, "save_progress_failed")
		return
	}
	response.RespondOK(c, doc)
}

// DELETE /projects/:id/progress
func (h *ProgressHandler) DeleteProgress(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.progress.Delete(c.Request.Context(), userID, projectID); err != nil {
		response.RespondAPIError(c, err, "delete_progress_failed")
		return
	}
	response.RespondNoContent(c)
}

// GET /projects/:id/progress/history?skip=0&limit=50
func (h *ProgressHandler) ListHistory(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	skip, ok := intQuery(c, "skip")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	var q progress.HistoryQuery
	if skip != nil {
		q.Offset = *skip
	}
	if limit != nil {
		q.Limit = *limit
	}
	entries, err := h.progress.ListHistory(c.Request.Context(), userID, projectID, q)
	if err != nil {
		response.RespondAPIError(c, err, "list_history_failed")
		return
	}
	response.RespondOK(c, entries)
}

// GET /projects/:id/progress/version/:version
func (h *ProgressHandler) GetVersion(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	version, ok := intParam(c, "version")
	if !ok {
		return
	}
	entry, err := h.progress.GetVersion(c.Request.Context(), userID, projectID, version)
	if err != nil {
		response.RespondAPIError(c, err, "get_version_failed")
		return
	}
	response.RespondOK(c, entry)
}

// GET /projects/:id/progress/compare/:a/:b
func (h *ProgressHandler) CompareVersions(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	a, ok := intParam(c, "a")
	if !ok {
		return
	}
	b, ok := intParam(c, "b")
	if !ok {
		return
	}
	cmp, err := h.progress.Compare(c.Request.Context(), userID, projectID, a, b)
	if err != nil {
		response.RespondAPIError(c, err, "compare_failed")
		return
	}
	response.RespondOK(c, cmp)
}

// GET /projects/:id/progress/stats
func (h *ProgressHandler) GetStats(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	stats, err := h.progress.Stats(c.Request.Context(), userID, projectID)
	if err != nil {
		response.RespondAPIError(c, err, "stats_failed")
		return
	}
	response.RespondOK(c, stats)
}

// POST /projects/:id/progress/restore/:version?change_summary=...&expected_version=3
func (h *ProgressHandler) RestoreVersion(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	version, ok := intParam(c, "version")
	if !ok {
		return
	}
	expected, ok := intQuery(c, "expected_version")
	if !ok {
		return
	}
	doc, err := h.progress.Restore(c.Request.Context(), userID, projectID, version, progress.RestoreInput{
		ChangeSummary:   c.Query("change_summary"),
		ExpectedVersion: expected,
	})
	if err != nil {
		response.RespondAPIError(c, err, "restore_failed")
		return
	}
	response.RespondOK(c, doc)
}

// POST /projects/:id/progress/publish
func (h *ProgressHandler) Publish(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	doc, err := h.progress.Publish(c.Request.Context(), userID, projectID)
	if err != nil {
		response.RespondAPIError(c, err, "publish_failed")
		return
	}
	response.RespondOK(c, doc)
}

// POST /projects/:id/progress/unpublish
func (h *ProgressHandler) Unpublish(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	doc, err := h.progress.Unpublish(c.Request.Context(), userID, projectID)
	if err != nil {
		response.RespondAPIError(c, err, "unpublish_failed")
		return
	}
	response.RespondOK(c, doc)
}

// POST /projects/:id/progress/export
// body: { "format": "markdown|html|txt", "include_metadata": true, "include_toc": false, ... }
func (h *ProgressHandler) Export(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	var req content.ExportOptions
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.progress.Export(c.Request.Context(), userID, projectID, req)
	if err != nil {
		response.RespondAPIError(c, err, "export_failed")
		return
	}
	response.RespondOK(c, res)
}

// GET /projects/:id/progress/exports/:export_id/download
func (h *ProgressHandler) DownloadExport(c *gin.Context) {
	userID, projectID, ok := h.target(c)
	if !ok {
		return
	}
	exportID, ok := uuidParam(c, "export_id")
	if !ok {
		return
	}
	dl, err := h.progress.OpenExport(c.Request.Context(), userID, projectID, exportID)
	if err != nil {
		response.RespondAPIError(c, err, "download_failed")
		return
	}
	defer dl.Body.Close()
	h.log.WithContext(c.Request.Context()).Debug("Serving export download",
		"project_id", projectID, "export_id", exportID, "bytes", dl.Size)
	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", dl.Filename),
	})
}

// target resolves the caller and the :id project, writing an error response
// when either is missing.
func (h *ProgressHandler) target(c *gin.Context) (userID, projectID uuid.UUID, ok bool) {
	uid, ok := sessionUserID(c)
	if !ok {
		return userID, projectID, false
	}
	pid, ok := uuidParam(c, "id")
	if !ok {
		return userID, projectID, false
	}
	return uid, pid, true
}

// bindOptionalJSON decodes the body into dst, treating an empty body as {}.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

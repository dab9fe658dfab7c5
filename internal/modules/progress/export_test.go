package progress

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
)

func exportOpts(format string) content.ExportOptions {
	return content.ExportOptions{Format: format, IncludeVersionInfo: true}
}

func TestExportInline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "# Plan\n\nShip it")

	res, err := f.uc.Export(ctx, f.owner, f.project, content.ExportOptions{Format: "md", IncludeTOC: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "markdown", res.Format)
	require.Equal(t, "project-progress-v1.md", res.Filename)
	require.Empty(t, res.DownloadURL)
	require.Nil(t, res.ExpiresAt)
	require.Contains(t, res.Content, "## Table of Contents")
	require.Contains(t, res.Content, "Ship it")
	require.Equal(t, int64(len(res.Content)), res.FileSize)
}

func TestExportRejectsUnsupportedFormats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "a")

	for _, format := range []string{"pdf", "DOCX", "rtf"} {
		_, err := f.uc.Export(ctx, f.owner, f.project, exportOpts(format))
		requireAPIError(t, err, http.StatusUnprocessableEntity, "unsupported_format")
	}
	_, err := f.uc.Export(ctx, f.owner, f.project, content.ExportOptions{Format: "html", CustomTitle: strings.Repeat("t", 201)})
	requireAPIError(t, err, http.StatusBadRequest, "validation_failed")
}

func TestExportStoredAndDownloaded(t *testing.T) {
	store := newMemStore()
	f := newFixture(t, func(d *UsecasesDeps) {
		d.Store = store
		d.ExportTTL = time.Hour
	})
	ctx := context.Background()
	f.create(t, "# Plan\n\n**Ship** it")

	res, err := f.uc.Export(ctx, f.owner, f.project, exportOpts("html"))
	require.NoError(t, err)
	require.Equal(t, DefaultDownloadPath(f.project, res.ExportID), res.DownloadURL)
	require.NotNil(t, res.ExpiresAt)
	require.Equal(t, f.clock.Now().Add(time.Hour), res.ExpiresAt.UTC())
	require.Empty(t, res.Content)

	dl, err := f.uc.OpenExport(ctx, f.owner, f.project, res.ExportID)
	require.NoError(t, err)
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	require.NoError(t, dl.Body.Close())
	require.Equal(t, "text/html; charset=utf-8", dl.ContentType)
	require.Equal(t, res.Filename, dl.Filename)
	require.Contains(t, string(body), "<strong>Ship</strong>")
	require.Contains(t, string(body), "Version 1")

	_, err = f.uc.OpenExport(ctx, f.owner, uuid.New(), res.ExportID)
	requireAPIError(t, err, http.StatusNotFound, "project_not_found")
	_, err = f.uc.OpenExport(ctx, f.owner, f.project, uuid.New())
	requireAPIError(t, err, http.StatusNotFound, "export_not_found")
	_, err = f.uc.OpenExport(ctx, f.other, f.project, res.ExportID)
	requireAPIError(t, err, http.StatusForbidden, "forbidden")

	f.clock.Advance(2 * time.Hour)
	_, err = f.uc.OpenExport(ctx, f.owner, f.project, res.ExportID)
	requireAPIError(t, err, http.StatusNotFound, "export_not_found")

	n, err := f.uc.PurgeExpiredExports(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 0, store.len())

	n, err = f.uc.PurgeExpiredExports(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestExportOfPublishedDocumentByOtherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "# Plan")

	_, err := f.uc.Export(ctx, f.other, f.project, exportOpts("txt"))
	requireAPIError(t, err, http.StatusForbidden, "forbidden")

	_, err = f.uc.Publish(ctx, f.owner, f.project)
	require.NoError(t, err)
	res, err := f.uc.Export(ctx, f.other, f.project, exportOpts("text"))
	require.NoError(t, err)
	require.Equal(t, "txt", res.Format)
	require.True(t, strings.HasSuffix(res.Filename, ".txt"))
	require.NotContains(t, res.Content, "#")
}

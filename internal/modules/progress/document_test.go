package progress

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/taskmaster-backend/internal/data/repos"
	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
)

// racedHistory fails history inserts the way a concurrent writer that took
// the same version first would.
type racedHistory struct {
	repos.ProgressHistoryRepo
	raced bool
}

func (h *racedHistory) Create(dbc dbctx.Context, entry *types.ProgressHistory) (*types.ProgressHistory, error) {
	if h.raced {
		return nil, fmt.Errorf("insert history: %w", gorm.ErrDuplicatedKey)
	}
	return h.ProgressHistoryRepo.Create(dbc, entry)
}

// staleProgress reads one version behind the stored row, as if another
// writer committed between the read and the update.
type staleProgress struct {
	repos.ProjectProgressRepo
	stale bool
}

func (p *staleProgress) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.ProjectProgress, error) {
	row, err := p.ProjectProgressRepo.GetByProjectID(dbc, projectID)
	if err == nil && row != nil && p.stale {
		row.Version--
	}
	return row, err
}

func TestScenarioCreateSavePublishRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.create(t, "# Overview")
	require.Equal(t, 1, doc.Version)
	require.False(t, doc.IsPublished)

	doc = f.save(t, "# Overview\n\nMore text")
	require.Equal(t, 2, doc.Version)

	doc, err := f.uc.Publish(ctx, f.owner, f.project)
	require.NoError(t, err)
	require.True(t, doc.IsPublished)
	require.Equal(t, 2, doc.Version)

	doc, err = f.uc.Restore(ctx, f.owner, f.project, 1, RestoreInput{})
	require.NoError(t, err)
	require.Equal(t, 3, doc.Version)
	require.Equal(t, "# Overview", doc.Content)
	require.True(t, doc.IsPublished)

	live, err := f.uc.Get(ctx, f.owner, f.project)
	require.NoError(t, err)
	require.Equal(t, 3, live.Version)
	require.Equal(t, "# Overview", live.Content)
	require.True(t, live.IsPublished)

	entry, err := f.uc.GetVersion(ctx, f.owner, f.project, 3)
	require.NoError(t, err)
	require.Equal(t, RestoreSummary(1), entry.ChangeSummary)

	cmp, err := f.uc.Compare(ctx, f.owner, f.project, 1, 3)
	require.NoError(t, err)
	require.Equal(t, "# Overview", cmp.ContentA)
	require.Equal(t, "# Overview", cmp.ContentB)
	require.Equal(t, "No differences", cmp.Summary)
	require.Zero(t, cmp.AddedLines+cmp.RemovedLines+cmp.ModifiedLines)

	require.Equal(t, []realtime.SSEEvent{
		realtime.SSEEventProgressSaved,
		realtime.SSEEventProgressSaved,
		realtime.SSEEventProgressPublished,
		realtime.SSEEventProgressRestored,
	}, f.pub.events())
}

func TestVersionEqualsNumberOfSaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "v1")
	for i := 2; i <= 6; i++ {
		doc := f.save(t, strings.Repeat("x", i))
		require.Equal(t, i, doc.Version)
	}

	entries, err := f.uc.ListHistory(ctx, f.owner, f.project, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 6)
	for i, e := range entries {
		require.Equal(t, 6-i, e.Version)
	}
	require.Equal(t, "v1", entries[5].Content)
	require.Equal(t, InitialChangeSummary, entries[5].ChangeSummary)
}

func TestCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, "first")
	res, err := f.uc.Create(ctx, f.owner, f.project, CreateInput{Content: "second"})
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Equal(t, first.ID, res.Document.ID)
	require.Equal(t, "first", res.Document.Content)
	require.Equal(t, 1, res.Document.Version)
}

func TestCreateUsesTemplateForEmptyContent(t *testing.T) {
	f := newFixture(t)
	doc := f.create(t, "  ")
	require.True(t, strings.HasPrefix(doc.Content, "# project Progress"), doc.Content)
	require.Contains(t, doc.Content, "## Next Steps")
}

func TestSaveUnchangedContentKeepsVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "same")

	doc := f.save(t, "same")
	require.Equal(t, 1, doc.Version)

	doc, err := f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("same"), IsPublished: boolPtr(true)})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)
	require.True(t, doc.IsPublished)

	entries, err := f.uc.ListHistory(ctx, f.owner, f.project, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveNeverTouchesPublishFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "a")
	_, err := f.uc.Publish(ctx, f.owner, f.project)
	require.NoError(t, err)

	doc := f.save(t, "b")
	require.True(t, doc.IsPublished)
	doc, err = f.uc.Restore(ctx, f.owner, f.project, 1, RestoreInput{})
	require.NoError(t, err)
	require.True(t, doc.IsPublished)

	doc, err = f.uc.Unpublish(ctx, f.owner, f.project)
	require.NoError(t, err)
	require.False(t, doc.IsPublished)
	doc = f.save(t, "c")
	require.False(t, doc.IsPublished)
	require.Equal(t, 4, doc.Version)
}

func TestPublishIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "a")

	for i := 0; i < 2; i++ {
		doc, err := f.uc.Publish(ctx, f.owner, f.project)
		require.NoError(t, err)
		require.True(t, doc.IsPublished)
		require.Equal(t, 1, doc.Version)
	}
	require.Equal(t, []realtime.SSEEvent{
		realtime.SSEEventProgressSaved,
		realtime.SSEEventProgressPublished,
	}, f.pub.events())
}

func TestExpectedVersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "a")
	f.save(t, "b")

	_, err := f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("c"), ExpectedVersion: intPtr(1)})
	requireAPIError(t, err, http.StatusConflict, "version_conflict")

	_, err = f.uc.Restore(ctx, f.owner, f.project, 1, RestoreInput{ExpectedVersion: intPtr(1)})
	requireAPIError(t, err, http.StatusConflict, "version_conflict")

	doc, err := f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("c"), ExpectedVersion: intPtr(2)})
	require.NoError(t, err)
	require.Equal(t, 3, doc.Version)
}

func TestLostUpdateIsVersionConflict(t *testing.T) {
	progressRepo := &staleProgress{}
	f := newFixture(t, func(d *UsecasesDeps) {
		progressRepo.ProjectProgressRepo = d.Progress
		d.Progress = progressRepo
	})
	ctx := context.Background()
	f.create(t, "a")
	f.save(t, "b")
	before := len(f.pub.events())

	progressRepo.stale = true
	_, err := f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("c")})
	requireAPIError(t, err, http.StatusConflict, "version_conflict")
	_, err = f.uc.Restore(ctx, f.owner, f.project, 1, RestoreInput{})
	requireAPIError(t, err, http.StatusConflict, "version_conflict")
	progressRepo.stale = false

	doc, err := f.uc.Get(ctx, f.owner, f.project)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Version)
	require.Equal(t, "b", doc.Content)
	require.Len(t, f.pub.events(), before)
}

func TestDuplicateHistoryVersionIsVersionConflict(t *testing.T) {
	history := &racedHistory{}
	f := newFixture(t, func(d *UsecasesDeps) {
		history.ProgressHistoryRepo = d.History
		d.History = history
	})
	ctx := context.Background()
	f.create(t, "a")
	f.save(t, "b")

	history.raced = true
	_, err := f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("c")})
	requireAPIError(t, err, http.StatusConflict, "version_conflict")
	_, err = f.uc.Restore(ctx, f.owner, f.project, 1, RestoreInput{})
	requireAPIError(t, err, http.StatusConflict, "version_conflict")
	history.raced = false

	doc, err := f.uc.Get(ctx, f.owner, f.project)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Version)
	require.Equal(t, "b", doc.Content)

	entries, err := f.uc.ListHistory(ctx, f.owner, f.project, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestSaveWithVisibilityChangeEmitsBothEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "a")

	doc, err := f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("b"), IsPublished: boolPtr(true)})
	require.NoError(t, err)
	require.Equal(t, 2, doc.Version)
	require.True(t, doc.IsPublished)

	doc, err = f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("c"), IsPublished: boolPtr(false)})
	require.NoError(t, err)
	require.False(t, doc.IsPublished)

	require.Equal(t, []realtime.SSEEvent{
		realtime.SSEEventProgressSaved,
		realtime.SSEEventProgressSaved,
		realtime.SSEEventProgressPublished,
		realtime.SSEEventProgressSaved,
		realtime.SSEEventProgressUnpublished,
	}, f.pub.events())
}

func TestContentTooLarge(t *testing.T) {
	f := newFixture(t, func(d *UsecasesDeps) { d.MaxContentBytes = 8 })
	ctx := context.Background()

	_, err := f.uc.Create(ctx, f.owner, f.project, CreateInput{Content: "123456789"})
	requireAPIError(t, err, http.StatusUnprocessableEntity, "content_too_large")

	f.create(t, "12345678")
	_, err = f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("ééééé")})
	requireAPIError(t, err, http.StatusUnprocessableEntity, "content_too_large")

	doc, err := f.uc.Get(ctx, f.owner, f.project)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)
}

func TestChangeSummaryLimit(t *testing.T) {
	f := newFixture(t)
	f.create(t, "a")
	_, err := f.uc.Save(context.Background(), f.owner, f.project, SaveInput{
		Content:       strPtr("b"),
		ChangeSummary: strings.Repeat("s", MaxChangeSummaryChars+1),
	})
	requireAPIError(t, err, http.StatusBadRequest, "validation_failed")
}

func TestAccessControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Get(ctx, f.owner, f.project)
	requireAPIError(t, err, http.StatusNotFound, "progress_not_found")
	_, err = f.uc.Get(ctx, f.owner, uuid.New())
	requireAPIError(t, err, http.StatusNotFound, "project_not_found")
	_, err = f.uc.Get(ctx, uuid.Nil, f.project)
	requireAPIError(t, err, http.StatusUnauthorized, "unauthorized")

	_, err = f.uc.Create(ctx, f.other, f.project, CreateInput{Content: "x"})
	requireAPIError(t, err, http.StatusForbidden, "forbidden")

	f.create(t, "draft")
	_, err = f.uc.Get(ctx, f.other, f.project)
	requireAPIError(t, err, http.StatusForbidden, "forbidden")
	_, err = f.uc.Stats(ctx, f.other, f.project)
	requireAPIError(t, err, http.StatusForbidden, "forbidden")

	_, err = f.uc.Publish(ctx, f.owner, f.project)
	require.NoError(t, err)
	doc, err := f.uc.Get(ctx, f.other, f.project)
	require.NoError(t, err)
	require.Equal(t, "draft", doc.Content)

	_, err = f.uc.Save(ctx, f.other, f.project, SaveInput{Content: strPtr("hijack")})
	requireAPIError(t, err, http.StatusForbidden, "forbidden")
	_, err = f.uc.Restore(ctx, f.other, f.project, 1, RestoreInput{})
	requireAPIError(t, err, http.StatusForbidden, "forbidden")
	require.Error(t, f.uc.Delete(ctx, f.other, f.project))
	_, err = f.uc.Unpublish(ctx, f.other, f.project)
	requireAPIError(t, err, http.StatusForbidden, "forbidden")
}

func TestMutationsOnMissingDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Save(ctx, f.owner, f.project, SaveInput{Content: strPtr("x")})
	requireAPIError(t, err, http.StatusNotFound, "progress_not_found")
	_, err = f.uc.Publish(ctx, f.owner, f.project)
	requireAPIError(t, err, http.StatusNotFound, "progress_not_found")
	_, err = f.uc.Restore(ctx, f.owner, f.project, 1, RestoreInput{})
	requireAPIError(t, err, http.StatusNotFound, "progress_not_found")
	requireAPIError(t, f.uc.Delete(ctx, f.owner, f.project), http.StatusNotFound, "progress_not_found")
}

func TestDeleteRemovesDocumentHistoryAndExports(t *testing.T) {
	store := newMemStore()
	f := newFixture(t, func(d *UsecasesDeps) { d.Store = store })
	ctx := context.Background()

	f.create(t, "a")
	f.save(t, "b")
	_, err := f.uc.Export(ctx, f.owner, f.project, exportOpts("markdown"))
	require.NoError(t, err)
	require.Equal(t, 1, store.len())

	require.NoError(t, f.uc.Delete(ctx, f.owner, f.project))
	require.Equal(t, 0, store.len())

	_, err = f.uc.Get(ctx, f.owner, f.project)
	requireAPIError(t, err, http.StatusNotFound, "progress_not_found")

	res, err := f.uc.Create(ctx, f.owner, f.project, CreateInput{Content: "fresh"})
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, 1, res.Document.Version)

	entries, err := f.uc.ListHistory(ctx, f.owner, f.project, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "fresh", entries[0].Content)

	events := f.pub.events()
	require.Contains(t, events, realtime.SSEEventProgressDeleted)
}

func TestAuthorizeChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	channel := realtime.ProjectChannel(f.project)

	require.NoError(t, f.uc.AuthorizeChannel(ctx, f.owner, channel))
	require.Error(t, f.uc.AuthorizeChannel(ctx, f.other, channel))
	require.Error(t, f.uc.AuthorizeChannel(ctx, f.owner, "user:"+f.owner.String()))
	require.Error(t, f.uc.AuthorizeChannel(ctx, f.owner, "project:nope"))

	f.create(t, "a")
	_, err := f.uc.Publish(ctx, f.owner, f.project)
	require.NoError(t, err)
	require.NoError(t, f.uc.AuthorizeChannel(ctx, f.other, channel))
}

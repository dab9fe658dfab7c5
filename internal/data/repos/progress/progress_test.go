package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/taskmaster-backend/internal/data/repos/testutil"
	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
)

func TestProjectProgressRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProjectProgressRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "progressrepo@example.com")
	p := testutil.SeedProject(t, ctx, tx, u.ID)

	missing, err := repo.GetByProjectID(dbc, p.ID)
	if err != nil || missing != nil {
		t.Fatalf("GetByProjectID(before create): err=%v row=%+v", err, missing)
	}

	row, err := repo.Create(dbc, &types.ProjectProgress{ProjectID: p.ID, Content: "# v1", Version: 1, UpdatedBy: u.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if row.ID == uuid.Nil || row.CreatedAt.IsZero() {
		t.Fatalf("Create defaults not applied: %+v", row)
	}

	if _, err := repo.Create(dbc, &types.ProjectProgress{ProjectID: p.ID, Content: "dup", Version: 1}); err == nil {
		t.Fatalf("second document for the same project must fail")
	}

	next := *row
	next.Content = "# v2"
	next.Version = 2
	next.UpdatedAt = time.Time{}
	if err := repo.UpdateVersioned(dbc, &next, 1); err != nil {
		t.Fatalf("UpdateVersioned: %v", err)
	}

	stale := *row
	stale.Content = "# stale"
	stale.Version = 2
	if err := repo.UpdateVersioned(dbc, &stale, 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale UpdateVersioned: want ErrVersionConflict got=%v", err)
	}

	got, err := repo.GetByProjectID(dbc, p.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByProjectID: err=%v", err)
	}
	if got.Version != 2 || got.Content != "# v2" {
		t.Fatalf("unexpected row after update: version=%d content=%q", got.Version, got.Content)
	}

	pub, err := repo.SetPublished(dbc, p.ID, true, u.ID)
	if err != nil || pub == nil {
		t.Fatalf("SetPublished: err=%v row=%+v", err, pub)
	}
	if !pub.IsPublished || pub.Version != 2 || pub.Content != "# v2" {
		t.Fatalf("SetPublished must only flip visibility: %+v", pub)
	}

	none, err := repo.SetPublished(dbc, uuid.New(), true, u.ID)
	if err != nil || none != nil {
		t.Fatalf("SetPublished(missing): err=%v row=%+v", err, none)
	}

	n, err := repo.DeleteByProjectID(dbc, p.ID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByProjectID: err=%v n=%d", err, n)
	}
}

func TestUpdateVersionedRejectsStaleVersion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProjectProgressRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "casrepo@example.com")
	p := testutil.SeedProject(t, ctx, tx, u.ID)
	row, err := repo.Create(dbc, &types.ProjectProgress{ProjectID: p.ID, Content: "# v1", Version: 1, UpdatedBy: u.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Two writers both read version 1. The first swap wins.
	first, second := *row, *row
	first.Content, first.Version = "# first", 2
	second.Content, second.Version, second.IsPublished = "# second", 2, true
	if err := repo.UpdateVersioned(dbc, &first, 1); err != nil {
		t.Fatalf("UpdateVersioned(first): %v", err)
	}
	if err := repo.UpdateVersioned(dbc, &second, 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("UpdateVersioned(second): want ErrVersionConflict got=%v", err)
	}
	if err := repo.UpdateVersioned(dbc, &second, 7); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("UpdateVersioned(ahead): want ErrVersionConflict got=%v", err)
	}

	got, err := repo.GetByProjectID(dbc, p.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByProjectID: err=%v", err)
	}
	if got.Version != 2 || got.Content != "# first" || got.IsPublished {
		t.Fatalf("losing writer changed the row: %+v", got)
	}
}

func TestProgressHistoryRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProgressHistoryRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "historyrepo@example.com")
	p := testutil.SeedProject(t, ctx, tx, u.ID)
	testutil.SeedProgress(t, ctx, tx, p.ID, u.ID, "one")

	for v, content := range map[int]string{2: "two", 3: "three"} {
		if _, err := repo.Create(dbc, &types.ProgressHistory{ProjectID: p.ID, Version: v, Content: content, UpdatedBy: u.ID}); err != nil {
			t.Fatalf("Create v%d: %v", v, err)
		}
	}
	if _, err := repo.Create(dbc, &types.ProgressHistory{ProjectID: p.ID, Version: 3, Content: "again"}); err == nil {
		t.Fatalf("duplicate (project_id, version) must fail")
	}

	rows, err := repo.ListByProjectID(dbc, p.ID, 10, 0)
	if err != nil || len(rows) != 3 {
		t.Fatalf("ListByProjectID: err=%v len=%d", err, len(rows))
	}
	if rows[0].Version != 3 || rows[2].Version != 1 {
		t.Fatalf("history must be newest first: %d..%d", rows[0].Version, rows[2].Version)
	}

	page, err := repo.ListByProjectID(dbc, p.ID, 1, 1)
	if err != nil || len(page) != 1 || page[0].Version != 2 {
		t.Fatalf("ListByProjectID(limit=1, offset=1): err=%v page=%+v", err, page)
	}

	n, err := repo.CountByProjectID(dbc, p.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountByProjectID: err=%v n=%d", err, n)
	}

	v2, err := repo.GetByVersion(dbc, p.ID, 2)
	if err != nil || v2 == nil || v2.Content != "two" {
		t.Fatalf("GetByVersion: err=%v entry=%+v", err, v2)
	}
	v9, err := repo.GetByVersion(dbc, p.ID, 9)
	if err != nil || v9 != nil {
		t.Fatalf("GetByVersion(missing): err=%v entry=%+v", err, v9)
	}

	first, err := repo.First(dbc, p.ID)
	if err != nil || first == nil || first.Version != 1 {
		t.Fatalf("First: err=%v entry=%+v", err, first)
	}

	deleted, err := repo.DeleteByProjectID(dbc, p.ID)
	if err != nil || deleted != 3 {
		t.Fatalf("DeleteByProjectID: err=%v n=%d", err, deleted)
	}
}

func TestProgressExportRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProgressExportRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "exportrepo@example.com")
	p := testutil.SeedProject(t, ctx, tx, u.ID)

	now := time.Now().UTC()
	live, err := repo.Create(dbc, &types.ProgressExport{
		ProjectID: p.ID, Version: 1, Format: types.ExportFormatMarkdown,
		Filename: "a.md", Storage: types.ExportStorageInline, ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Create(live): %v", err)
	}
	old, err := repo.Create(dbc, &types.ProgressExport{
		ProjectID: p.ID, Version: 1, Format: types.ExportFormatHTML,
		Filename: "a.html", Storage: types.ExportStorageRedis, ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Create(old): %v", err)
	}

	got, err := repo.GetByID(dbc, live.ID)
	if err != nil || got == nil || got.Filename != "a.md" {
		t.Fatalf("GetByID: err=%v row=%+v", err, got)
	}

	expired, err := repo.ListExpired(dbc, now, 10)
	if err != nil || len(expired) != 1 || expired[0].ID != old.ID {
		t.Fatalf("ListExpired: err=%v rows=%+v", err, expired)
	}
	all, err := repo.ListByProjectID(dbc, p.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByProjectID: err=%v rows=%d", err, len(all))
	}
	if err := repo.DeleteByIDs(dbc, []uuid.UUID{old.ID}); err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}

	n, err := repo.DeleteByProjectID(dbc, p.ID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByProjectID: err=%v n=%d", err, n)
	}
}

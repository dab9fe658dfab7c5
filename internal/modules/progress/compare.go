package progress

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
)

type VersionCompare struct {
	VersionA int    `json:"version_a"`
	VersionB int    `json:"version_b"`
	ContentA string `json:"content_a"`
	ContentB string `json:"content_b"`
	content.LineDiff
}

// Compare diffs two snapshots in the order given. Neither snapshot is modified.
func (u Usecases) Compare(ctx context.Context, userID, projectID uuid.UUID, versionA, versionB int) (out *VersionCompare, err error) {
	ctx, done := u.begin(ctx, "compare", projectID)
	defer func() { done(err) }()

	if _, _, err := u.requireReadable(dbctx.Context{Ctx: ctx}, userID, projectID); err != nil {
		return nil, err
	}

	var a, b *types.ProgressHistory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = u.snapshot(dbctx.Context{Ctx: gctx}, projectID, versionA)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = u.snapshot(dbctx.Context{Ctx: gctx}, projectID, versionB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	diff, err := content.Diff(a.Content, b.Content, "v"+strconv.Itoa(versionA), "v"+strconv.Itoa(versionB))
	if err != nil {
		return nil, u.internal(ctx, "compare_failed", fmt.Errorf("diff: %w", err), "project_id", projectID)
	}
	return &VersionCompare{
		VersionA: versionA,
		VersionB: versionB,
		ContentA: a.Content,
		ContentB: b.Content,
		LineDiff: diff,
	}, nil
}

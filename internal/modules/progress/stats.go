package progress

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
)

type ProjectProgressStats struct {
	ProjectID uuid.UUID `json:"project_id"`
	Version   int       `json:"version"`
	content.Stats
}

// Stats derives metrics from the live document on every call.
func (u Usecases) Stats(ctx context.Context, userID, projectID uuid.UUID) (out *ProjectProgressStats, err error) {
	ctx, done := u.begin(ctx, "stats", projectID)
	defer func() { done(err) }()

	dbc := dbctx.Context{Ctx: ctx}
	_, doc, err := u.requireReadable(dbc, userID, projectID)
	if err != nil {
		return nil, err
	}
	total, err := u.deps.History.CountByProjectID(dbc, projectID)
	if err != nil {
		return nil, u.internal(ctx, "stats_failed", fmt.Errorf("count history: %w", err), "project_id", projectID)
	}
	first, err := u.deps.History.First(dbc, projectID)
	if err != nil {
		return nil, u.internal(ctx, "stats_failed", fmt.Errorf("first history: %w", err), "project_id", projectID)
	}
	firstCreated := doc.CreatedAt
	if first != nil {
		firstCreated = first.CreatedAt
	}
	stats := content.DeriveStats(content.StatsInput{
		Content:       doc.Content,
		TotalVersions: int(total),
		IsPublished:   doc.IsPublished,
		FirstCreated:  firstCreated,
		LastUpdated:   doc.UpdatedAt,
	}, u.now())
	return &ProjectProgressStats{ProjectID: projectID, Version: doc.Version, Stats: stats}, nil
}

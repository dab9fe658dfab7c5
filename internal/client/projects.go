package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
)

func (c *Client) CreateProject(ctx context.Context, sess Session, name, description string) (*types.Project, error) {
	var out struct {
		Project *types.Project `json:"project"`
	}
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, &sess, http.MethodPost, "/api/projects", body, &out); err != nil {
		return nil, err
	}
	return out.Project, nil
}

func (c *Client) ListProjects(ctx context.Context, sess Session) ([]*types.Project, error) {
	var out struct {
		Projects []*types.Project `json:"projects"`
	}
	if err := c.do(ctx, &sess, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (c *Client) GetProject(ctx context.Context, sess Session, projectID uuid.UUID) (*types.Project, error) {
	var out struct {
		Project *types.Project `json:"project"`
	}
	if err := c.do(ctx, &sess, http.MethodGet, "/api/projects/"+projectID.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Project, nil
}

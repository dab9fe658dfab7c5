package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
	"github.com/yungbote/taskmaster-backend/internal/platform/ctxutil"
)

type (
	CreateInput    = progress.CreateInput
	SaveInput      = progress.SaveInput
	VersionCompare = progress.VersionCompare
	Stats          = progress.ProjectProgressStats
	ExportOptions  = content.ExportOptions
	ExportResult   = progress.ExportResult
)

type HistoryOptions struct {
	Skip  int
	Limit int
}

type RestoreOptions struct {
	ChangeSummary   string
	ExpectedVersion *int
}

func progressPath(projectID uuid.UUID, suffix string) string {
	return "/api/projects/" + projectID.String() + "/progress" + suffix
}

// Get returns the live document or a *NotFoundError when none exists yet.
func (c *Client) Get(ctx context.Context, sess Session, projectID uuid.UUID) (*types.ProjectProgress, error) {
	var out types.ProjectProgress
	if err := c.do(ctx, &sess, http.MethodGet, progressPath(projectID, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create returns the existing document unchanged when one already exists.
func (c *Client) Create(ctx context.Context, sess Session, projectID uuid.UUID, in CreateInput) (*types.ProjectProgress, error) {
	var out types.ProjectProgress
	if err := c.do(ctx, &sess, http.MethodPost, progressPath(projectID, ""), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrCreate loads the document and creates it from the default template
// when the project has none.
func (c *Client) GetOrCreate(ctx context.Context, sess Session, projectID uuid.UUID) (*types.ProjectProgress, error) {
	doc, err := c.Get(ctx, sess, projectID)
	if err == nil {
		return doc, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	return c.Create(ctx, sess, projectID, CreateInput{})
}

func (c *Client) Save(ctx context.Context, sess Session, projectID uuid.UUID, in SaveInput) (*types.ProjectProgress, error) {
	var out types.ProjectProgress
	if err := c.do(ctx, &sess, http.MethodPut, progressPath(projectID, ""), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, sess Session, projectID uuid.UUID) error {
	return c.do(ctx, &sess, http.MethodDelete, progressPath(projectID, ""), nil, nil)
}

func (c *Client) History(ctx context.Context, sess Session, projectID uuid.UUID, opts HistoryOptions) ([]*types.ProgressHistory, error) {
	q := url.Values{}
	if opts.Skip > 0 {
		q.Set("skip", strconv.Itoa(opts.Skip))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := progressPath(projectID, "/history")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []*types.ProgressHistory
	if err := c.do(ctx, &sess, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Version(ctx context.Context, sess Session, projectID uuid.UUID, version int) (*types.ProgressHistory, error) {
	var out types.ProgressHistory
	path := progressPath(projectID, "/version/"+strconv.Itoa(version))
	if err := c.do(ctx, &sess, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Compare(ctx context.Context, sess Session, projectID uuid.UUID, a, b int) (*VersionCompare, error) {
	var out VersionCompare
	path := progressPath(projectID, fmt.Sprintf("/compare/%d/%d", a, b))
	if err := c.do(ctx, &sess, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stats(ctx context.Context, sess Session, projectID uuid.UUID) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, &sess, http.MethodGet, progressPath(projectID, "/stats"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Restore(ctx context.Context, sess Session, projectID uuid.UUID, version int, opts RestoreOptions) (*types.ProjectProgress, error) {
	q := url.Values{}
	if opts.ChangeSummary != "" {
		q.Set("change_summary", opts.ChangeSummary)
	}
	if opts.ExpectedVersion != nil {
		q.Set("expected_version", strconv.Itoa(*opts.ExpectedVersion))
	}
	path := progressPath(projectID, "/restore/"+strconv.Itoa(version))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out types.ProjectProgress
	if err := c.do(ctx, &sess, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Publish(ctx context.Context, sess Session, projectID uuid.UUID) (*types.ProjectProgress, error) {
	var out types.ProjectProgress
	if err := c.do(ctx, &sess, http.MethodPost, progressPath(projectID, "/publish"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Unpublish(ctx context.Context, sess Session, projectID uuid.UUID) (*types.ProjectProgress, error) {
	var out types.ProjectProgress
	if err := c.do(ctx, &sess, http.MethodPost, progressPath(projectID, "/unpublish"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Export(ctx context.Context, sess Session, projectID uuid.UUID, opts ExportOptions) (*ExportResult, error) {
	var out ExportResult
	if err := c.do(ctx, &sess, http.MethodPost, progressPath(projectID, "/export"), opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download streams a stored export to w. downloadURL may be absolute or a
// path relative to the API base. Absolute URLs on other hosts are fetched
// without the session token.
func (c *Client) Download(ctx context.Context, sess Session, downloadURL string, w io.Writer) (int64, error) {
	if downloadURL == "" {
		return 0, fmt.Errorf("client: empty download url")
	}
	u, err := url.Parse(downloadURL)
	if err != nil {
		return 0, fmt.Errorf("client: parse download url: %w", err)
	}
	var resp *http.Response
	if u.IsAbs() {
		resp, err = c.fetchExternal(ctx, downloadURL, sess)
	} else {
		resp, err = c.doRaw(ctx, &sess, http.MethodGet, downloadURL, nil)
	}
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

func (c *Client) fetchExternal(ctx context.Context, rawURL string, sess Session) (*http.Response, error) {
	base, err := url.Parse(c.baseURL)
	if err == nil {
		if u, perr := url.Parse(rawURL); perr == nil && u.Host == base.Host {
			path := strings.TrimPrefix(u.RequestURI(), base.Path)
			return c.doRaw(ctx, &sess, http.MethodGet, path, nil)
		}
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, classify(decodeAPIError(resp.StatusCode, raw))
	}
	return resp, nil
}

package client

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/taskmaster-backend/internal/data/repos"
	"github.com/yungbote/taskmaster-backend/internal/data/repos/testutil"
	apihttp "github.com/yungbote/taskmaster-backend/internal/http"
	httpH "github.com/yungbote/taskmaster-backend/internal/http/handlers"
	httpMW "github.com/yungbote/taskmaster-backend/internal/http/middleware"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
	"github.com/yungbote/taskmaster-backend/internal/services"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	projectRepo := repos.NewProjectRepo(db, log)
	auth := services.NewAuthService(db, log, userRepo, repos.NewUserTokenRepo(db, log), services.AuthConfig{
		JWTSecretKey: "client-test-secret",
		BcryptCost:   bcrypt.MinCost,
	})
	hub := realtime.NewSSEHub(log)
	uc := progress.New(progress.UsecasesDeps{
		DB:       db,
		Log:      log,
		Progress: repos.NewProjectProgressRepo(db, log),
		History:  repos.NewProgressHistoryRepo(db, log),
		Exports:  repos.NewProgressExportRepo(db, log),
		Projects: projectRepo,
		Store:    progress.NewInlineExportStore(),
		Emitter:  realtime.NewEmitter(log, hub, nil),
	})
	router := apihttp.NewRouter(apihttp.RouterConfig{
		AuthHandler:     httpH.NewAuthHandler(auth),
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, auth),
		UserHandler:     httpH.NewUserHandler(services.NewUserService(db, log, userRepo)),
		ProjectHandler:  httpH.NewProjectHandler(services.NewProjectService(db, log, projectRepo)),
		ProgressHandler: httpH.NewProgressHandler(log, uc),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithHTTPClient(srv.Client()), WithLogger(log))
	require.NoError(t, err)
	return c
}

func signIn(t *testing.T, c *Client, email string) Session {
	t.Helper()
	ctx := context.Background()
	_, err := c.Register(ctx, RegisterInput{Email: email, Password: "correct-horse", FirstName: "Ada"})
	require.NoError(t, err)
	sess, err := c.Login(ctx, email, "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)
	return sess
}

func TestClientProgressFlow(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	sess := signIn(t, c, "owner@example.com")

	me, err := c.Me(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", me.Email)

	project, err := c.CreateProject(ctx, sess, "Apollo", "moonshot")
	require.NoError(t, err)

	_, err = c.Get(ctx, sess, project.ID)
	require.True(t, IsNotFound(err), "got %v", err)

	doc, err := c.GetOrCreate(ctx, sess, project.ID)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)
	require.Contains(t, doc.Content, "Apollo")

	again, err := c.GetOrCreate(ctx, sess, project.ID)
	require.NoError(t, err)
	require.Equal(t, doc.ID, again.ID)

	body := "# Apollo\n\n- launch\n"
	doc, err = c.Save(ctx, sess, project.ID, SaveInput{Content: &body, ChangeSummary: "launch"})
	require.NoError(t, err)
	require.Equal(t, 2, doc.Version)

	stale := 1
	_, err = c.Save(ctx, sess, project.ID, SaveInput{Content: &body, ExpectedVersion: &stale})
	require.True(t, IsConflict(err), "got %v", err)

	entries, err := c.History(ctx, sess, project.ID, HistoryOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 2, entries[0].Version)

	v1, err := c.Version(ctx, sess, project.ID, 1)
	require.NoError(t, err)

	cmp, err := c.Compare(ctx, sess, project.ID, 1, 2)
	require.NoError(t, err)
	require.Equal(t, v1.Content, cmp.ContentA)
	require.Equal(t, body, cmp.ContentB)

	doc, err = c.Restore(ctx, sess, project.ID, 1, RestoreOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, doc.Version)
	require.Equal(t, v1.Content, doc.Content)

	_, err = c.Version(ctx, sess, project.ID, 42)
	require.True(t, IsNotFound(err), "got %v", err)

	doc, err = c.Publish(ctx, sess, project.ID)
	require.NoError(t, err)
	require.True(t, doc.IsPublished)
	require.Equal(t, 3, doc.Version)

	stats, err := c.Stats(ctx, sess, project.ID)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalVersions)
	require.True(t, stats.IsPublished)

	res, err := c.Export(ctx, sess, project.ID, ExportOptions{Format: "markdown"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "markdown", res.Format)
	require.Contains(t, res.Content, "# Apollo Progress")
	require.Empty(t, res.DownloadURL)

	_, err = c.Export(ctx, sess, project.ID, ExportOptions{Format: "pdf"})
	require.True(t, IsValidation(err), "got %v", err)

	doc, err = c.Unpublish(ctx, sess, project.ID)
	require.NoError(t, err)
	require.False(t, doc.IsPublished)

	require.NoError(t, c.Delete(ctx, sess, project.ID))
	_, err = c.Get(ctx, sess, project.ID)
	require.True(t, IsNotFound(err), "got %v", err)
}

func TestClientAccessErrors(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	owner := signIn(t, c, "owner@example.com")
	other := signIn(t, c, "other@example.com")

	project, err := c.CreateProject(ctx, owner, "Gemini", "")
	require.NoError(t, err)
	_, err = c.GetOrCreate(ctx, owner, project.ID)
	require.NoError(t, err)

	_, err = c.Get(ctx, other, project.ID)
	require.True(t, IsAuth(err), "got %v", err)
	require.Equal(t, http.StatusForbidden, StatusCode(err))

	_, err = c.Me(ctx, Session{AccessToken: "garbage"})
	require.True(t, IsAuth(err), "got %v", err)

	_, err = c.Me(ctx, Session{})
	require.ErrorIs(t, err, errNoSession)

	_, err = c.Get(ctx, owner, uuid.New())
	require.Error(t, err)
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	cases := []struct {
		status int
		body   string
		check  func(error) bool
		code   string
	}{
		{http.StatusNotFound, `{"error":{"message":"no document","code":"progress_not_found"}}`, IsNotFound, "progress_not_found"},
		{http.StatusUnprocessableEntity, `{"error":{"message":"too big","code":"content_too_large"}}`, IsValidation, "content_too_large"},
		{http.StatusConflict, `{"error":{"message":"stale","code":"version_conflict"}}`, IsConflict, "version_conflict"},
		{http.StatusUnauthorized, `{"error":{"message":"nope","code":"unauthorized"}}`, IsAuth, "unauthorized"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		c, err := New(srv.URL)
		require.NoError(t, err)
		_, err = c.Get(context.Background(), Session{AccessToken: "t"}, uuid.New())
		srv.Close()

		require.True(t, tc.check(err), "status %d: got %T %v", tc.status, err, err)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, tc.code, apiErr.Code)
		require.Equal(t, tc.status, apiErr.StatusCode)
	}
}

func TestUnknownErrorKeepsPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	_, err = c.Stats(context.Background(), Session{AccessToken: "t"}, uuid.New())

	var unknown *UnknownError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "upstream exploded", unknown.Message)
}

func TestDownloadRelativePathSendsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.True(t, strings.HasSuffix(r.URL.Path, "/download"))
		_, _ = w.Write([]byte("# exported"))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	var buf bytes.Buffer
	n, err := c.Download(context.Background(), Session{AccessToken: "tok"}, "/api/projects/p/progress/exports/e/download", &buf)
	require.NoError(t, err)
	require.Equal(t, int64(len("# exported")), n)
	require.Equal(t, "# exported", buf.String())
	require.Equal(t, "Bearer tok", gotAuth)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

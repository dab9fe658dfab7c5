package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/taskmaster-backend/internal/client"
	"github.com/yungbote/taskmaster-backend/internal/data/repos"
	"github.com/yungbote/taskmaster-backend/internal/data/repos/testutil"
	apihttp "github.com/yungbote/taskmaster-backend/internal/http"
	httpH "github.com/yungbote/taskmaster-backend/internal/http/handlers"
	httpMW "github.com/yungbote/taskmaster-backend/internal/http/middleware"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress"
	"github.com/yungbote/taskmaster-backend/internal/services"
)

type harness struct {
	t           *testing.T
	server      string
	sessionPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	projectRepo := repos.NewProjectRepo(db, log)
	auth := services.NewAuthService(db, log, userRepo, repos.NewUserTokenRepo(db, log), services.AuthConfig{
		JWTSecretKey: "cli-test-secret",
		BcryptCost:   bcrypt.MinCost,
	})
	uc := progress.New(progress.UsecasesDeps{
		DB:       db,
		Log:      log,
		Progress: repos.NewProjectProgressRepo(db, log),
		History:  repos.NewProgressHistoryRepo(db, log),
		Exports:  repos.NewProgressExportRepo(db, log),
		Projects: projectRepo,
		Store:    progress.NewInlineExportStore(),
	})
	srv := httptest.NewServer(apihttp.NewRouter(apihttp.RouterConfig{
		AuthHandler:     httpH.NewAuthHandler(auth),
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, auth),
		ProjectHandler:  httpH.NewProjectHandler(services.NewProjectService(db, log, projectRepo)),
		ProgressHandler: httpH.NewProgressHandler(log, uc),
	}))
	t.Cleanup(srv.Close)
	return &harness{t: t, server: srv.URL, sessionPath: filepath.Join(t.TempDir(), "session.yaml")}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	root := NewRootCmd("test", strings.NewReader(stdin), &out)
	root.SetArgs(append([]string{"--session-file", h.sessionPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	out, err := h.run(stdin, args...)
	require.NoError(h.t, err, out)
	return out
}

// signUp registers an account and creates a project through the client library.
func (h *harness) signUp(email string) string {
	h.t.Helper()
	ctx := context.Background()
	c, err := client.New(h.server)
	require.NoError(h.t, err)
	_, err = c.Register(ctx, client.RegisterInput{Email: email, Password: "correct-horse", FirstName: "Ada"})
	require.NoError(h.t, err)
	sess, err := c.Login(ctx, email, "correct-horse")
	require.NoError(h.t, err)
	p, err := c.CreateProject(ctx, sess, "Voyager", "")
	require.NoError(h.t, err)
	return p.ID.String()
}

func TestCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "get", "7f1d1f9e-8d4e-4a55-9b36-1f7e0c3a4b21")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestProgressWorkflow(t *testing.T) {
	h := newHarness(t)
	projectID := h.signUp("owner@example.com")

	out := h.mustRun("", "--server", h.server, "login", "--email", "owner@example.com", "--password", "correct-horse")
	require.Contains(t, out, "Logged in as owner@example.com")

	saved, err := loadSession(h.sessionPath)
	require.NoError(t, err)
	require.Equal(t, h.server, saved.Server)
	require.NotEmpty(t, saved.AccessToken)

	out = h.mustRun("", "init", projectID)
	require.Contains(t, out, "version 1 (draft)")

	out = h.mustRun("# Voyager\n\n- left the heliosphere\n", "save", projectID, "-m", "milestone")
	require.Contains(t, out, "version 2")

	_, err = h.run("stale\n", "save", projectID, "--expected-version", "1")
	require.Error(t, err)
	require.True(t, client.IsConflict(err), "got %v", err)

	out = h.mustRun("", "history", projectID)
	require.Contains(t, out, "milestone")
	require.Contains(t, out, progress.InitialChangeSummary)

	out = h.mustRun("", "show", projectID, "2")
	require.Equal(t, "# Voyager\n\n- left the heliosphere\n", out)

	out = h.mustRun("", "compare", projectID, "1", "2")
	require.Contains(t, out, "--- v1")

	out = h.mustRun("", "compare", "--stat", projectID, "1", "2")
	require.Contains(t, out, "hunk(s)")
	require.NotContains(t, out, "--- v1")

	out = h.mustRun("", "restore", projectID, "1")
	require.Contains(t, out, "version 3")

	out = h.mustRun("", "publish", projectID)
	require.Contains(t, out, "version 3 (published)")

	out = h.mustRun("", "--json", "stats", projectID)
	var stats client.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, 3, stats.TotalVersions)
	require.True(t, stats.IsPublished)

	exportPath := filepath.Join(t.TempDir(), "voyager.html")
	out = h.mustRun("", "export", projectID, "--format", "html", "-o", exportPath)
	require.Contains(t, out, "Wrote "+exportPath)
	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "<h1>")

	_, err = h.run("", "export", projectID, "--format", "pdf")
	require.True(t, client.IsValidation(err), "got %v", err)

	out = h.mustRun("n\n", "delete", projectID)
	require.Contains(t, out, "Aborted")
	h.mustRun("", "get", projectID)

	h.mustRun("", "delete", projectID, "--yes")
	_, err = h.run("", "get", projectID)
	require.True(t, client.IsNotFound(err), "got %v", err)
}

func TestReadContentSources(t *testing.T) {
	got, err := readContent("-", strings.NewReader("# piped\n"))
	require.NoError(t, err)
	require.Equal(t, "# piped\n", got)

	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# file\n"), 0o600))
	got, err = readContent(path, nil)
	require.NoError(t, err)
	require.Equal(t, "# file\n", got)
}

func TestParseArguments(t *testing.T) {
	_, err := parseProjectID("nope")
	require.Error(t, err)
	_, err = parseVersion("0")
	require.Error(t, err)
	v, err := parseVersion(" 4 ")
	require.NoError(t, err)
	require.Equal(t, 4, v)
}

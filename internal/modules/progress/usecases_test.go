package progress

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/taskmaster-backend/internal/data/repos"
	"github.com/yungbote/taskmaster-backend/internal/data/repos/testutil"
	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
	"github.com/yungbote/taskmaster-backend/internal/observability"
	"github.com/yungbote/taskmaster-backend/internal/platform/apierr"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg realtime.SSEMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) events() []realtime.SSEEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Event)
	}
	return out
}

// memStore behaves like the Redis store without a server.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Kind() string { return types.ExportStorageRedis }

func (s *memStore) Put(_ context.Context, key string, r content.Rendered, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), r.Body...)
	return nil
}

func (s *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, ErrArtifactMissing
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) URL(context.Context, string, time.Duration) (string, error) { return "", nil }

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type fixture struct {
	uc      Usecases
	db      *gorm.DB
	clock   *fakeClock
	pub     *recordingPublisher
	owner   uuid.UUID
	other   uuid.UUID
	project uuid.UUID
}

func newFixture(t *testing.T, mutate ...func(*UsecasesDeps)) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	other := testutil.SeedUser(t, ctx, db, "other@example.com")
	project := testutil.SeedProject(t, ctx, db, owner.ID)

	clock := &fakeClock{t: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	deps := UsecasesDeps{
		DB:       db,
		Log:      log,
		Progress: repos.NewProjectProgressRepo(db, log),
		History:  repos.NewProgressHistoryRepo(db, log),
		Exports:  repos.NewProgressExportRepo(db, log),
		Projects: repos.NewProjectRepo(db, log),
		Emitter:  realtime.NewEmitter(log, nil, pub),
		Metrics:  observability.NewMetrics(log),
		Clock:    clock.Now,
	}
	for _, m := range mutate {
		m(&deps)
	}
	return &fixture{
		uc:      New(deps),
		db:      db,
		clock:   clock,
		pub:     pub,
		owner:   owner.ID,
		other:   other.ID,
		project: project.ID,
	}
}

func (f *fixture) create(t *testing.T, body string) *types.ProjectProgress {
	t.Helper()
	res, err := f.uc.Create(context.Background(), f.owner, f.project, CreateInput{Content: body})
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.Document
}

func (f *fixture) save(t *testing.T, body string) *types.ProjectProgress {
	t.Helper()
	doc, err := f.uc.Save(context.Background(), f.owner, f.project, SaveInput{Content: &body})
	require.NoError(t, err)
	return doc
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, apierr.StatusOf(err), "error: %v", err)
	require.Equal(t, code, apierr.CodeOf(err, ""), "error: %v", err)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

package progress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress/content"
	"github.com/yungbote/taskmaster-backend/internal/platform/gcp"
)

// ErrArtifactMissing is returned by Open when the artifact is gone or was never stored.
var ErrArtifactMissing = errors.New("export artifact not found")

// ExportStore keeps rendered export artifacts until they expire.
type ExportStore interface {
	// Kind is the storage value recorded on the export row.
	Kind() string
	Put(ctx context.Context, key string, r content.Rendered, ttl time.Duration) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns a direct download URL, or "" when downloads go through the API.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type gcsExportStore struct {
	bucket gcp.BucketService
	prefix string
}

// NewGCSExportStore keeps artifacts in the export bucket under prefix.
func NewGCSExportStore(bucket gcp.BucketService, prefix string) ExportStore {
	return &gcsExportStore{bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *gcsExportStore) Kind() string { return types.ExportStorageGCS }

func (s *gcsExportStore) path(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *gcsExportStore) Put(ctx context.Context, key string, r content.Rendered, _ time.Duration) error {
	return s.bucket.Upload(ctx, s.path(key), r.ContentType, bytes.NewReader(r.Body))
}

func (s *gcsExportStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.bucket.Download(ctx, s.path(key))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrArtifactMissing
	}
	return rc, err
}

func (s *gcsExportStore) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.bucket.DownloadURL(ctx, s.path(key), ttl)
}

func (s *gcsExportStore) Delete(ctx context.Context, key string) error {
	return s.bucket.Delete(ctx, s.path(key))
}

type redisExportStore struct {
	rdb    goredis.Cmdable
	prefix string
}

const DefaultRedisExportPrefix = "taskmaster:export:"

// NewRedisExportStore keeps artifacts as Redis strings that expire with the export.
func NewRedisExportStore(rdb goredis.Cmdable, prefix string) ExportStore {
	if prefix == "" {
		prefix = DefaultRedisExportPrefix
	}
	return &redisExportStore{rdb: rdb, prefix: prefix}
}

func (s *redisExportStore) Kind() string { return types.ExportStorageRedis }

func (s *redisExportStore) Put(ctx context.Context, key string, r content.Rendered, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.prefix+key, r.Body, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisExportStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrArtifactMissing
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *redisExportStore) URL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

func (s *redisExportStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

type inlineExportStore struct{}

// NewInlineExportStore stores nothing; the body is returned in the export response.
func NewInlineExportStore() ExportStore { return inlineExportStore{} }

func (inlineExportStore) Kind() string { return types.ExportStorageInline }

func (inlineExportStore) Put(context.Context, string, content.Rendered, time.Duration) error {
	return nil
}

func (inlineExportStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrArtifactMissing
}

func (inlineExportStore) URL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}

func (inlineExportStore) Delete(context.Context, string) error { return nil }

package gcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

type BucketService interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// DownloadURL returns a URL the object can be fetched from for at least ttl.
	DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Close() error
}

type bucketService struct {
	log    *logger.Logger
	client *storage.Client
	cfg    BucketConfig
}

func NewBucketServiceWithConfig(log *logger.Logger, cfg BucketConfig) (BucketService, error) {
	if err := ValidateBucketConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate export storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	client, err := newStorageClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog.Info(
		"Export storage initialized",
		"mode", cfg.Mode,
		"mode_inferred", cfg.ModeInferred,
		"emulator_host", cfg.EmulatorHost,
		"bucket", cfg.Bucket,
		"signed_urls", cfg.SignedURLs,
	)
	return &bucketService{log: serviceLog, client: client, cfg: cfg}, nil
}

func newStorageClient(ctx context.Context, cfg BucketConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case StorageModeGCS:
		return storage.NewClient(ctx, append(cfg.credentialOptions(), option.WithScopes(storage.ScopeReadWrite))...)
	case StorageModeGCSEmulator:
		// the storage client only honours the emulator through this variable
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ConfigError{Code: ConfigErrorInvalidMode, Field: "OBJECT_STORAGE_MODE", Value: string(cfg.Mode)}
	}
}

func (cfg BucketConfig) credentialOptions() []option.ClientOption {
	switch {
	case cfg.Credentials == "":
		return nil
	case strings.HasPrefix(cfg.Credentials, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.Credentials))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(cfg.Credentials)}
	}
}

func (bs *bucketService) object(key string) *storage.ObjectHandle {
	return bs.client.Bucket(bs.cfg.Bucket).Object(key)
}

func (bs *bucketService) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	w.ContentDisposition = fmt.Sprintf("attachment; filename=%q", keyBase(key))
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write export to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// readCloserWithCancel ties the reader's context to Close.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (bs *bucketService) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	if bs.cfg.IsEmulator() {
		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, bs.emulatorMediaURL(bs.cfg.EmulatorHost, key), nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed creating emulator download request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed emulator download request: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			_ = resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
		return &readCloserWithCancel{ReadCloser: resp.Body, cancel: cancel}, nil
	}
	r, err := bs.object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (bs *bucketService) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, bs.cfg.Bucket, err)
	}
	return nil
}

func (bs *bucketService) DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if bs.cfg.Mode == StorageModeGCS && bs.cfg.SignedURLs && bs.cfg.CDNDomain == "" {
		u, err := bs.client.Bucket(bs.cfg.Bucket).SignedURL(key, &storage.SignedURLOptions{
			Scheme:  storage.SigningSchemeV4,
			Method:  http.MethodGet,
			Expires: time.Now().Add(ttl),
		})
		if err != nil {
			return "", fmt.Errorf("sign export url: %w", err)
		}
		return u, nil
	}
	return bs.publicURL(key), nil
}

func (bs *bucketService) Close() error {
	return bs.client.Close()
}

func (bs *bucketService) publicURL(key string) string {
	return PublicObjectURL(bs.cfg, key)
}

// PublicObjectURL builds the unsigned URL of key under cfg.
func PublicObjectURL(cfg BucketConfig, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.CDNDomain, key)
	}
	if cfg.IsEmulator() {
		base := cfg.PublicBaseURL
		if base == "" {
			base = cfg.EmulatorHost
		}
		return emulatorMediaURL(base, cfg.Bucket, key)
	}
	if cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", cfg.PublicBaseURL, cfg.Bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.Bucket, key)
}

func (bs *bucketService) emulatorMediaURL(base, key string) string {
	return emulatorMediaURL(base, bs.cfg.Bucket, key)
}

func emulatorMediaURL(base, bucket, key string) string {
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		strings.TrimRight(strings.TrimSpace(base), "/"),
		url.PathEscape(bucket),
		url.PathEscape(key),
	)
}

func keyBase(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

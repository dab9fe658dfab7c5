package app

import (
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/taskmaster-backend/internal/modules/progress"
	"github.com/yungbote/taskmaster-backend/internal/platform/gcp"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

const (
	exportStorageGCS         = string(gcp.StorageModeGCS)
	exportStorageGCSEmulator = string(gcp.StorageModeGCSEmulator)
	exportStorageRedis       = "redis"
	exportStorageInline      = "inline"
)

var (
	resolveBucketConfig        = gcp.ResolveBucketConfigFromEnv
	newBucketServiceWithConfig = gcp.NewBucketServiceWithConfig
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidURL          StorageProviderBootstrapErrorCode = "invalid_url"
	StorageProviderBootstrapErrorMissingRedis        StorageProviderBootstrapErrorCode = "missing_redis"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code  StorageProviderBootstrapErrorCode
	Mode  string
	Cause error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "export storage bootstrap failed"
	}
	return fmt.Sprintf("export storage bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ExportStorage is the selected export store plus the bucket it owns, if any.
type ExportStorage struct {
	Store  progress.ExportStore
	Bucket gcp.BucketService
}

func (s ExportStorage) Close() error {
	if s.Bucket == nil {
		return nil
	}
	return s.Bucket.Close()
}

// resolveExportStore picks the export backend for cfg. rdb may be nil.
func resolveExportStore(log *logger.Logger, cfg ProgressConfig, rdb *goredis.Client) (ExportStorage, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.ExportStorage))
	if mode == "" {
		mode = autoExportStorage(rdb)
	}
	log.Info("Selecting export storage", "mode", mode, "configured", cfg.ExportStorage != "")

	switch mode {
	case exportStorageInline:
		return ExportStorage{Store: progress.NewInlineExportStore()}, nil
	case exportStorageRedis:
		if rdb == nil {
			err := &StorageProviderBootstrapError{
				Code:  StorageProviderBootstrapErrorMissingRedis,
				Mode:  mode,
				Cause: errors.New("EXPORT_STORAGE=redis requires REDIS_ADDR"),
			}
			log.Error("Export storage selection failed", "mode", mode, "error_code", err.Code, "error", err)
			return ExportStorage{}, err
		}
		return ExportStorage{Store: progress.NewRedisExportStore(rdb, progress.DefaultRedisExportPrefix)}, nil
	case exportStorageGCS, exportStorageGCSEmulator:
		// EXPORT_STORAGE wins over OBJECT_STORAGE_MODE; the bucket service
		// revalidates the rest of the config.
		bucketCfg, _ := resolveBucketConfig()
		bucketCfg.Mode = gcp.StorageMode(mode)
		bucketCfg.ModeInferred = false
		bucket, err := newBucketServiceWithConfig(log, bucketCfg)
		if err != nil {
			classified := classifyStorageProviderBootstrapError(mode, err)
			log.Error(
				"Export storage bootstrap failed",
				"mode", mode,
				"emulator_host", bucketCfg.EmulatorHost,
				"error_code", storageProviderBootstrapErrorCode(classified),
				"error", classified,
			)
			return ExportStorage{}, classified
		}
		return ExportStorage{Store: progress.NewGCSExportStore(bucket, cfg.ExportPrefix), Bucket: bucket}, nil
	default:
		err := &StorageProviderBootstrapError{
			Code:  StorageProviderBootstrapErrorInvalidMode,
			Mode:  mode,
			Cause: fmt.Errorf("unsupported export storage %q", mode),
		}
		log.Error("Export storage selection failed", "mode", mode, "error_code", err.Code, "error", err)
		return ExportStorage{}, err
	}
}

// autoExportStorage prefers a configured bucket, then Redis, then inline.
func autoExportStorage(rdb *goredis.Client) string {
	if bucketCfg, err := resolveBucketConfig(); err == nil {
		return string(bucketCfg.Mode)
	}
	if rdb != nil {
		return exportStorageRedis
	}
	return exportStorageInline
}

func classifyStorageProviderBootstrapError(mode string, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ConfigErrorMissingBucket:
			code = StorageProviderBootstrapErrorMissingBucket
		case gcp.ConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ConfigErrorInvalidURL:
			code = StorageProviderBootstrapErrorInvalidURL
		}
	}
	return &StorageProviderBootstrapError{Code: code, Mode: mode, Cause: err}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}

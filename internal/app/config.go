package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/taskmaster-backend/internal/data/db"
	"github.com/yungbote/taskmaster-backend/internal/modules/progress"
	"github.com/yungbote/taskmaster-backend/internal/platform/envutil"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

type HTTPConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
}

type AuthConfig struct {
	JWTSecretKey    string        `yaml:"jwt_secret_key"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	// RateLimitPerMinute caps register/login/refresh per client IP; 0 disables.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`
}

type DBConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	SQLitePath   string `yaml:"sqlite_path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	SSEChannel string `yaml:"sse_channel"`
}

type ProgressConfig struct {
	MaxContentBytes int `yaml:"max_content_bytes"`
	// ExportStorage is one of gcs, gcs_emulator, redis, inline. Empty picks
	// gcs when a bucket is configured, then redis, then inline.
	ExportStorage         string        `yaml:"export_storage"`
	ExportPrefix          string        `yaml:"export_prefix"`
	ExportTTL             time.Duration `yaml:"export_ttl"`
	ExportJanitorInterval time.Duration `yaml:"export_janitor_interval"`
}

type Config struct {
	Environment string         `yaml:"environment"`
	LogMode     string         `yaml:"log_mode"`
	ServiceName string         `yaml:"service_name"`
	Version     string         `yaml:"version"`
	HTTP        HTTPConfig     `yaml:"http"`
	Auth        AuthConfig     `yaml:"auth"`
	DB          DBConfig       `yaml:"db"`
	Redis       RedisConfig    `yaml:"redis"`
	Progress    ProgressConfig `yaml:"progress"`
}

const defaultJWTSecret = "defaultsecret"

func defaultConfig() Config {
	return Config{
		Environment: "development",
		LogMode:     "development",
		ServiceName: "taskmaster-backend",
		HTTP: HTTPConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecretKey:       defaultJWTSecret,
			AccessTokenTTL:     time.Hour,
			RefreshTokenTTL:    30 * 24 * time.Hour,
			RateLimitPerMinute: 30,
			RateLimitBurst:     10,
		},
		DB: DBConfig{
			Driver: "postgres",
			Host:   "localhost",
			Port:   "5432",
			User:   "postgres",
			Name:   "taskmaster",
		},
		Progress: ProgressConfig{
			MaxContentBytes:       progress.DefaultMaxContentBytes,
			ExportPrefix:          "progress-exports",
			ExportTTL:             progress.DefaultExportTTL,
			ExportJanitorInterval: 15 * time.Minute,
		},
	}
}

// LoadConfig starts from defaults, overlays the YAML file named by
// CONFIG_FILE when set, then applies environment variables.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
		log.Info("Loaded config file", "path", path)
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	if cfg.Auth.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Environment = envutil.String("ENVIRONMENT", cfg.Environment)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName)
	cfg.Version = envutil.String("SERVICE_VERSION", cfg.Version)

	cfg.HTTP.Port = envutil.String("PORT", cfg.HTTP.Port)
	cfg.HTTP.ShutdownTimeout = envutil.Seconds("SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)
	cfg.HTTP.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.HTTP.MetricsEnabled)
	if raw := envutil.String("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		cfg.HTTP.AllowedOrigins = splitList(raw)
	}

	cfg.Auth.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecretKey)
	cfg.Auth.AccessTokenTTL = envutil.Seconds("ACCESS_TOKEN_TTL", cfg.Auth.AccessTokenTTL)
	cfg.Auth.RefreshTokenTTL = envutil.Seconds("REFRESH_TOKEN_TTL", cfg.Auth.RefreshTokenTTL)
	cfg.Auth.RateLimitPerMinute = envutil.Int("AUTH_RATE_LIMIT_PER_MINUTE", cfg.Auth.RateLimitPerMinute)
	cfg.Auth.RateLimitBurst = envutil.Int("AUTH_RATE_LIMIT_BURST", cfg.Auth.RateLimitBurst)

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)
	cfg.DB.MaxOpenConns = envutil.Int("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.MaxIdleConns = envutil.Int("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.SSEChannel = envutil.String("REDIS_SSE_CHANNEL", cfg.Redis.SSEChannel)

	cfg.Progress.MaxContentBytes = envutil.Int("PROGRESS_MAX_CONTENT_BYTES", cfg.Progress.MaxContentBytes)
	cfg.Progress.ExportStorage = envutil.String("EXPORT_STORAGE", cfg.Progress.ExportStorage)
	cfg.Progress.ExportPrefix = envutil.String("EXPORT_PREFIX", cfg.Progress.ExportPrefix)
	cfg.Progress.ExportTTL = envutil.Seconds("EXPORT_TTL", cfg.Progress.ExportTTL)
	cfg.Progress.ExportJanitorInterval = envutil.Seconds("EXPORT_JANITOR_INTERVAL", cfg.Progress.ExportJanitorInterval)
}

func (cfg Config) validate() error {
	if strings.TrimSpace(cfg.Auth.JWTSecretKey) == "" {
		return errors.New("config: jwt secret key must not be empty")
	}
	if cfg.Progress.MaxContentBytes <= 0 {
		return fmt.Errorf("config: max content bytes must be positive, got %d", cfg.Progress.MaxContentBytes)
	}
	switch cfg.Progress.ExportStorage {
	case "", exportStorageGCS, exportStorageGCSEmulator, exportStorageRedis, exportStorageInline:
	default:
		return fmt.Errorf("config: unsupported export storage %q", cfg.Progress.ExportStorage)
	}
	return nil
}

func (cfg Config) dbOptions() db.Options {
	return db.Options{
		Driver:           cfg.DB.Driver,
		PostgresHost:     cfg.DB.Host,
		PostgresPort:     cfg.DB.Port,
		PostgresUser:     cfg.DB.User,
		PostgresPassword: cfg.DB.Password,
		PostgresName:     cfg.DB.Name,
		PostgresSSLMode:  cfg.DB.SSLMode,
		SQLitePath:       cfg.DB.SQLitePath,
		MaxOpenConns:     cfg.DB.MaxOpenConns,
		MaxIdleConns:     cfg.DB.MaxIdleConns,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

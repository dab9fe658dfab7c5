package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/taskmaster-backend/internal/clients/redis"
	"github.com/yungbote/taskmaster-backend/internal/data/db"
	httpH "github.com/yungbote/taskmaster-backend/internal/http/handlers"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
	"github.com/yungbote/taskmaster-backend/internal/realtime/bus"
)

type Clients struct {
	Redis  *goredis.Client
	SSEBus bus.Bus
	Export ExportStorage
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var (
		rdb    *goredis.Client
		sseBus bus.Bus
	)
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		c, err := redis.NewClient(log, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis client: %w", err)
		}
		rdb = c
		b, err := bus.NewRedisBus(log, rdb, cfg.Redis.SSEChannel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
	}

	// Export storage
	export, err := resolveExportStore(log, cfg.Progress, rdb)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return Clients{}, fmt.Errorf("init export storage: %w", err)
	}

	return Clients{Redis: rdb, SSEBus: sseBus, Export: export}, nil
}

// dependencyChecks lists the backends the readiness probe pings.
func (c *Clients) dependencyChecks(dbService *db.Service) []httpH.DependencyCheck {
	checks := []httpH.DependencyCheck{{Name: "db", Check: dbService.Ping}}
	if c.Redis != nil {
		rdb := c.Redis
		checks = append(checks, httpH.DependencyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	_ = c.Export.Close()
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

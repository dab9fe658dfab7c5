package app

import (
	"context"
	"time"

	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

const exportPurgeBatch = 200

type exportPurger interface {
	PurgeExpiredExports(ctx context.Context, limit int) (int, error)
}

// runExportJanitor purges expired exports every interval until ctx is done.
func runExportJanitor(ctx context.Context, log *logger.Logger, purger exportPurger, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log = log.With("component", "ExportJanitor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeExpiredExports(ctx, log, purger)
		}
	}
}

func purgeExpiredExports(ctx context.Context, log *logger.Logger, purger exportPurger) int {
	total := 0
	for ctx.Err() == nil {
		n, err := purger.PurgeExpiredExports(ctx, exportPurgeBatch)
		if err != nil {
			log.Warn("Export purge failed", "error", err)
			return total
		}
		total += n
		if n < exportPurgeBatch {
			break
		}
	}
	if total > 0 {
		log.Info("Purged expired exports", "count", total)
	}
	return total
}

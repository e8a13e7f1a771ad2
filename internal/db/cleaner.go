package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartQueueCleaner periodically removes offline-queue entries older than
// retention. Entries that old were superseded or will never be drained.
func StartQueueCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention).UnixMilli()
				res, err := db.ExecContext(ctx, `
                    DELETE FROM sync_queue
                     WHERE timestamp < ?
                `, cutoff)
				if err != nil {
					log.Error("failed to clean sync queue", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned sync queue", zap.Int64("removed", rows))
				}
			}
		}
	}()
}

package idempotency

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartJanitor evicts expired records on a fixed cadence. Eviction only
// removes dedup state; it never touches invoices that were already returned
// to callers.
func (g *Guard) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := g.store.DeleteExpiredIdempotencyRecords(ctx, now.UTC())
				if err != nil {
					log.Error().Err(err).Msg("evict idempotency records failed")
					continue
				}
				if n > 0 {
					metricRecordsEvicted.Add(n)
				}
			}
		}
	}()
}

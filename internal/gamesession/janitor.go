package gamesession

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartJanitor garbage-collects expired sessions and proofs on a fixed
// cadence until ctx is done.
func (v *Validator) StartJanitor(ctx context.Context, interval time.Duration) {
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
				n, err := v.store.ExpireGameSessions(ctx, now.UTC())
				if err != nil {
					log.Error().Err(err).Msg("expire game sessions failed")
					continue
				}
				if n > 0 {
					metricSessionsExpired.Add(n)
					log.Debug().Int64("count", n).Msg("expired game sessions")
				}
			}
		}
	}()
}

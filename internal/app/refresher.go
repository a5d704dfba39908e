package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
)

const maxBackoff = 30 * time.Second

// Loader reloads shared state from the backend.
type Loader interface {
	Load(ctx context.Context) error
}

// StartRefresher launches a background goroutine that reloads the store
// every interval. While the backend is unreachable the delay doubles up to
// maxBackoff. A non-positive interval disables refreshing. It returns
// immediately.
func StartRefresher(ctx context.Context, loader Loader, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		log.Debug().Msg("background refresh disabled")
		return
	}
	log = log.With().Str("component", "refresher").Logger()

	go func() {
		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			err := loader.Load(ctx)
			switch {
			case err == nil:
				if failures > 0 {
					log.Info().Int("failures", failures).Msg("backend reachable again")
				}
				failures = 0
			case ctx.Err() != nil:
				return
			case api.IsConnectionError(err):
				failures++
				log.Warn().Err(err).Int("failures", failures).Msg("refresh failed, backing off")
			default:
				failures = 0
				log.Warn().Err(err).Msg("refresh failed")
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// calculateBackoff doubles base once per consecutive failure, capped at
// maxBackoff. A base above the cap is never shortened.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	limit := maxBackoff
	if base > limit {
		limit = base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}

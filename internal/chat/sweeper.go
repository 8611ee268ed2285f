package chat

import (
	"context"
	"time"
)

// TranscriptPurger deletes transcript rows older than a cutoff.
type TranscriptPurger interface {
	DeleteTranscriptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EvictCallback is called for every conversation the sweeper evicts.
type EvictCallback func(key Key)

// SweeperConfig configures StartIdleSweeper.
type SweeperConfig struct {
	Interval  time.Duration
	IdleTTL   time.Duration
	Retention time.Duration // <= 0 disables transcript purging
	OnEvict   EvictCallback
}

// StartIdleSweeper runs a background goroutine that evicts idle
// conversations and purges old transcript rows until ctx is done. The
// returned channel is closed when the goroutine exits.
func StartIdleSweeper(ctx context.Context, reg *Registry, purger TranscriptPurger, cfg SweeperConfig) <-chan struct{} {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	done := make(chan struct{})
	ticker := time.NewTicker(cfg.Interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		log := reg.env.logger
		log.Info("Idle sweeper started", "interval", cfg.Interval, "ttl", cfg.IdleTTL, "retention", cfg.Retention)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, reg, purger, cfg)
			case <-ctx.Done():
				log.Info("Idle sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func sweep(ctx context.Context, reg *Registry, purger TranscriptPurger, cfg SweeperConfig) {
	log := reg.env.logger
	now := reg.env.now()

	evicted := reg.EvictIdle(now.Add(-cfg.IdleTTL))
	if len(evicted) > 0 {
		log.Info("Idle sweeper evicted conversations", "count", len(evicted))
	}
	if cfg.OnEvict != nil {
		for _, k := range evicted {
			cfg.OnEvict(k)
		}
	}

	if purger == nil || cfg.Retention <= 0 {
		return
	}
	deleted, err := purger.DeleteTranscriptsBefore(ctx, now.Add(-cfg.Retention))
	if err != nil {
		log.Error("Idle sweeper failed to purge transcripts", "error", err)
		return
	}
	if deleted > 0 {
		log.Info("Idle sweeper purged transcripts", "count", deleted)
	}
}

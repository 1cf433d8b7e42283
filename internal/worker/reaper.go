package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBatchSize = 500

// Reapable deletes expired SSO records and dead refresh families
type Reapable interface {
	Reap(ctx context.Context, retention time.Duration, batch int) (records, families int, err error)
}

// Reaper runs Reap on a fixed interval until its context is cancelled
type Reaper struct {
	target    Reapable
	interval  time.Duration
	retention time.Duration
	batch     int
}

type ReaperOption func(*Reaper)

// WithBatchSize caps how many families one pass deletes
func WithBatchSize(n int) ReaperOption {
	return func(r *Reaper) {
		if n > 0 {
			r.batch = n
		}
	}
}

func NewReaper(target Reapable, interval, retention time.Duration, options ...ReaperOption) *Reaper {
	r := &Reaper{
		target:    target,
		interval:  interval,
		retention: retention,
		batch:     defaultBatchSize,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Run performs one pass immediately, then one per interval. It returns when ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		log.Warn().Msg("Reaper disabled, interval is not positive")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass. Errors are logged and retried on the next tick.
func (r *Reaper) RunOnce(ctx context.Context) {
	records, families, err := r.target.Reap(ctx, r.retention, r.batch)
	if err != nil {
		if ctx.Err() == nil {
			log.Err(err).Msg("Reaper pass failed")
		}
		return
	}
	if records > 0 || families > 0 {
		log.Info().Int("ssoRecords", records).Int("refreshFamilies", families).Msg("Reaped expired state")
	}
}

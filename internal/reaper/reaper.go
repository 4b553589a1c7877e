// Package reaper runs the background task that hard-deletes secrets whose
// scheduled deletion instant has elapsed.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/bleepstore/bleepstore/internal/metrics"
	"github.com/bleepstore/bleepstore/internal/store"
)

// Interval is how often the reaper sweeps for expired secrets.
const Interval = 60 * time.Second

// Reaper periodically hard-deletes secrets past their scheduled deletion
// date (spec.md §4.3, DeleteSecret/RestoreSecret).
type Reaper struct {
	Store store.Store
	Now   func() time.Time
}

// New returns a Reaper backed by s, using time.Now as the clock.
func New(s store.Store) *Reaper {
	return &Reaper{Store: s, Now: time.Now}
}

func (r *Reaper) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run ticks every Interval until ctx is canceled, sweeping expired secrets
// on every tick (and once immediately on startup).
func (r *Reaper) Run(ctx context.Context) {
	r.sweep(ctx)

	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep reaps expired secrets inside a single WithTransaction call, which
// also reseals the encrypted container on a successful commit — ordinary
// SecretEngine writes get the same treatment, so the reaper needs no
// checkpoint step of its own beyond what WithTransaction already does.
func (r *Reaper) sweep(ctx context.Context) {
	reaped, err := store.WithTransaction(ctx, r.Store, func(q store.Querier) ([]string, error) {
		return r.Store.ReapExpired(ctx, q, r.now())
	})
	if err != nil {
		slog.Error("reaper sweep failed", "error", err)
		return
	}
	if len(reaped) == 0 {
		return
	}

	metrics.ReaperDeletionsTotal.Add(float64(len(reaped)))
	slog.Info("reaper hard-deleted expired secrets", "count", len(reaped), "arns", reaped)
}

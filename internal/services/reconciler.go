package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/assistec/wpp-os-gateway/internal/repo"
)

// Reconciler periodically deletes "pendente" records older than MaxAge.
// The saga compensates its own failures, but a failed compensating delete
// (or a crash between steps) can strand a pending record; this sweep is the
// backstop that keeps the "no record stays pendente forever" invariant.
type Reconciler struct {
	DB *gorm.DB
	// MaxAge is how old a pending record may grow before it is swept.
	MaxAge time.Duration
	// Every is the sweep interval.
	Every time.Duration
	// Now is a seam for tests; defaults to time.Now when nil.
	Now func() time.Time
}

// NewReconciler constructs a Reconciler.
func NewReconciler(db *gorm.DB, maxAge, every time.Duration) *Reconciler {
	return &Reconciler{DB: db, MaxAge: maxAge, Every: every, Now: time.Now}
}

// Run sweeps on a ticker until ctx is canceled. Intended to be launched as
// a goroutine owned by main.
func (r *Reconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.Every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := r.SweepOnce(ctx); err != nil {
				log.Error().Err(err).Msg("pending-order reconciliation failed")
			} else if n > 0 {
				log.Warn().Int("deleted", n).Msg("swept stale pending orders")
			}
		}
	}
}

// SweepOnce deletes every pending record older than MaxAge and returns how
// many were removed.
func (r *Reconciler) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	stale, err := repo.ListStalePending(ctx, r.DB, now.Add(-r.MaxAge))
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range stale {
		if err := repo.DeleteOrder(ctx, r.DB, stale[i].ID); err != nil {
			log.Error().Err(err).Uint("order_id", stale[i].ID).Msg("stale pending delete failed")
			continue
		}
		n++
	}
	return n, nil
}

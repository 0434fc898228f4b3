package worker

import (
	"context"
	"errors"
	"time"

	"github.com/carelens/carelens/pkg/domain/interfaces"
	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const reapBatchSize = 100

// StaleSearchReaper marks search records that stayed pending for too long as errored.
// A record is left pending only when the process running its generation died between stages.
//
// Architecture assumptions:
// - Several instances may run the reaper; the store's terminal-state check makes a lost race harmless
type StaleSearchReaper struct {
	repo       interfaces.Repository
	staleAfter time.Duration
	interval   time.Duration
	now        func() time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// ReaperOption is a functional option for StaleSearchReaper
type ReaperOption func(*StaleSearchReaper)

// WithReaperClock replaces the time source
func WithReaperClock(now func() time.Time) ReaperOption {
	return func(w *StaleSearchReaper) {
		w.now = now
	}
}

// NewStaleSearchReaper creates a reaper that runs every interval
func NewStaleSearchReaper(repo interfaces.Repository, staleAfter, interval time.Duration, opts ...ReaperOption) *StaleSearchReaper {
	w := &StaleSearchReaper{
		repo:       repo,
		staleAfter: staleAfter,
		interval:   interval,
		now:        time.Now,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background loop without blocking
func (w *StaleSearchReaper) Start(ctx context.Context) error {
	logging.Default().Info("stale search reaper starting",
		"interval", w.interval.String(),
		"stale_after", w.staleAfter.String())

	go w.run(ctx)

	return nil
}

// Stop signals the loop to stop and waits for it
func (w *StaleSearchReaper) Stop() {
	logging.Default().Info("stale search reaper stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("stale search reaper stopped")
}

func (w *StaleSearchReaper) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Reap(ctx); err != nil {
				logging.Default().Error("stale search reap failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("stale search reaper context cancelled")
			return
		}
	}
}

// Reap runs one cycle and returns how many records were finalized
func (w *StaleSearchReaper) Reap(ctx context.Context) (int, error) {
	now := w.now()
	cutoff := now.Add(-w.staleAfter)

	stale, err := w.repo.Search().ListPendingBefore(ctx, cutoff, reapBatchSize)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list stale searches", goerr.V("cutoff", cutoff))
	}

	reaped := 0
	for _, rec := range stale {
		msg := "generation did not finish within " + w.staleAfter.String()
		upd := model.ErroredUpdate(rec, msg, now.Sub(rec.CreatedAt))

		if _, err := w.repo.Search().Update(ctx, rec.ID, upd); err != nil {
			if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, model.ErrNotFound) {
				continue // finished or deleted since listed
			}
			return reaped, goerr.Wrap(err, "failed to finalize stale search", goerr.V("id", rec.ID))
		}
		reaped++
		logging.Default().Warn("stale search marked errored",
			"search_id", rec.ID,
			"age", now.Sub(rec.CreatedAt).String())
	}

	return reaped, nil
}

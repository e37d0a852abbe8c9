// internal/app/system/workers/invitecleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
)

// ExpiredInviteStore is the slice of the membership store the cleanup
// worker needs.
type ExpiredInviteStore interface {
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

// InviteCleanup is a background worker that declines pending invitations
// whose expiry has passed. Acceptance also re-checks expiry, so the worker
// is housekeeping rather than the enforcement point.
type InviteCleanup struct {
	memberships ExpiredInviteStore
	log         *zap.Logger
	interval    time.Duration
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewInviteCleanup creates a new invitation cleanup worker.
func NewInviteCleanup(memberships ExpiredInviteStore, logger *zap.Logger, interval time.Duration) *InviteCleanup {
	return &InviteCleanup{
		memberships: memberships,
		log:         logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *InviteCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("invite cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *InviteCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("invite cleanup worker stopped")
}

func (w *InviteCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *InviteCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	count, err := w.memberships.CleanupExpired(ctx, time.Now().UTC())
	if err != nil {
		w.log.Error("failed to clean up expired invitations", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("expired invitations cleaned up", zap.Int64("count", count))
	}
}

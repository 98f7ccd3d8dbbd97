package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trustedrelay/relayd/internal/service"
)

// Reconciler periodically scans orphaned relays and back-fills their deposit
// links once the missing deposit has been indexed. Deposit and relay events
// arrive from independent chain watchers in any order, so the orphan state is
// expected and repairable, not an error.
type Reconciler struct {
	engine   *service.ReconcileService
	interval time.Duration
	batch    int
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconciler creates a new orphan-relay reconciler
func NewReconciler(engine *service.ReconcileService, interval time.Duration, batch int, logger *zap.Logger) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		engine:   engine,
		interval: interval,
		batch:    batch,
		logger:   logger.Named("reconciler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the background repair loop
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go r.run()

	r.logger.Info("Reconciler started",
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batch))
}

func (r *Reconciler) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			resolved, err := r.engine.ResolveOrphans(r.ctx, r.batch)
			if err != nil {
				r.logger.Error("Orphan resolution pass failed", zap.Error(err))
				continue
			}
			if resolved > 0 {
				r.logger.Info("Orphan resolution pass complete",
					zap.Int("resolved", resolved))
			}
		}
	}
}

// Shutdown stops the repair loop, waiting up to timeout for the current pass
func (r *Reconciler) Shutdown(timeout time.Duration) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Reconciler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("reconciler shutdown timed out after %s", timeout)
	}
}

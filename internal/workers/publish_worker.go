package workers

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval  = 30 * time.Second
	defaultBatchSize = 15
)

// Publisher is what a tick drives; satisfied by publishapp.PublishService.
type Publisher interface {
	ExecutePosting(ctx context.Context, batchSize int) error
}

// PublishWorker fires the publish cycle on a fixed delay. Ticks never
// overlap within a process: a single atomic flag is taken at tick start and
// released on every exit path. A tick that finds the flag set is dropped,
// not queued — slow publish cycles shrink the effective polling rate
// instead of piling up batches. Replicas in other processes coordinate only
// through the claim query's skip-on-contention behavior.
type PublishWorker struct {
	Publisher Publisher
	Interval  time.Duration
	BatchSize int
	Logger    *zap.Logger

	running atomic.Bool
}

func NewPublishWorker(publisher Publisher, batchSize int, logger *zap.Logger) *PublishWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PublishWorker{
		Publisher: publisher,
		Interval:  defaultInterval,
		BatchSize: batchSize,
		Logger:    logger,
	}
}

// Run blocks until ctx is cancelled.
func (w *PublishWorker) Run(ctx context.Context) {
	w.Logger.Info("🚀 PublishWorker started",
		zap.Duration("interval", w.Interval),
		zap.Int("batchSize", w.BatchSize))

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("🛑 PublishWorker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one publish cycle unless one is already in flight.
func (w *PublishWorker) Tick(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.Logger.Info("Scheduler already running, skipping this tick")
		return
	}
	defer w.running.Store(false)

	if err := w.Publisher.ExecutePosting(ctx, w.BatchSize); err != nil {
		// Transient claim failures are logged only; the next tick retries.
		w.Logger.Error("❌ Publish cycle failed", zap.Error(err))
	}
}

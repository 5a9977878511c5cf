package worker

import (
	"context"
	"time"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

// UsageReporter periodically logs aggregate usage statistics. The
// numbers give operators a heartbeat without a metrics stack.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
type UsageReporter struct {
	repo     interfaces.Repository
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewUsageReporter creates a worker that reports usage statistics at
// the given interval.
func NewUsageReporter(repo interfaces.Repository, interval time.Duration) *UsageReporter {
	return &UsageReporter{
		repo:     repo,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background reporting loop. Does not block server
// startup.
func (w *UsageReporter) Start(ctx context.Context) error {
	logging.Default().Info("Usage reporter starting", "interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *UsageReporter) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Usage reporter stopped")
}

func (w *UsageReporter) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.report(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Usage reporter context cancelled")
			return
		}
	}
}

// report logs one usage snapshot. Failures are logged and the loop
// continues; stats are advisory.
func (w *UsageReporter) report(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		logging.Default().Error("Usage report failed (will retry next interval)",
			"error", err.Error())
		return
	}

	attrs := []any{
		"users", stats.TotalUsers,
		"interactions", stats.TotalInteractions,
		"memories", stats.TotalMemories,
		"memories_per_user", stats.AvgMemoriesPerUser(),
	}
	if stats.LastIngestAt != nil {
		attrs = append(attrs, "last_ingest", stats.LastIngestAt.UTC().Format(time.RFC3339))
	}
	logging.Default().Info("Usage report", attrs...)
}

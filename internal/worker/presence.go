package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cipher-arena/internal/config"
	"github.com/cipher-arena/internal/postgres"
)

// PresenceWorker sweeps player records that stopped heartbeating and
// marks them offline
type PresenceWorker struct {
	postgres *postgres.Repository
	config   *config.PresenceConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewPresenceWorker creates a new presence sweep worker
func NewPresenceWorker(pg *postgres.Repository, cfg *config.PresenceConfig, logger *slog.Logger) *PresenceWorker {
	return &PresenceWorker{
		postgres: pg,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (w *PresenceWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("presence worker started",
		"interval", w.config.Interval,
		"offline_after", w.config.OfflineAfter,
	)

	go w.run(ctx)
	return nil
}

// Stop stops the sweep loop
func (w *PresenceWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("presence worker stopped")
	return nil
}

func (w *PresenceWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep marks records idle past the cutoff as offline
func (w *PresenceWorker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.config.OfflineAfter)
	count, err := w.postgres.MarkStaleOffline(ctx, cutoff)
	if err != nil {
		w.logger.Error("presence sweep failed", "error", err)
		return
	}
	if count > 0 {
		w.logger.Info("marked stale players offline", "count", count)
	}
}

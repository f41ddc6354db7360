package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cipher-arena/internal/config"
	"github.com/cipher-arena/internal/domain"
	"github.com/cipher-arena/internal/postgres"
	"github.com/cipher-arena/internal/redis"
)

// LeaderboardBroadcaster pushes a ranked snapshot to live subscribers
type LeaderboardBroadcaster interface {
	BroadcastLeaderboard(sessionID string, players []domain.RankedPlayer)
}

// SyncWorker reconciles the Redis leaderboard cache from Postgres.
// Postgres is authoritative; the cache only accelerates ranked reads,
// so reconciliation always runs database to cache.
type SyncWorker struct {
	cache       *redis.LeaderboardCache
	postgres    *postgres.Repository
	config      *config.SyncConfig
	broadcaster LeaderboardBroadcaster
	logger      *slog.Logger
	stopCh      chan struct{}
	doneCh      chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(
	cache *redis.LeaderboardCache,
	pg *postgres.Repository,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		cache:    cache,
		postgres: pg,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetBroadcaster makes each reconciliation pass push the refreshed
// ranked snapshot to live subscribers
func (w *SyncWorker) SetBroadcaster(b LeaderboardBroadcaster) {
	w.broadcaster = b
}

// Start runs one full reconciliation immediately, then begins the
// periodic loop
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.SyncAll(ctx); err != nil {
		w.logger.Error("initial cache reconciliation failed", "error", err)
	}

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
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

	w.logger.Info("sync worker stopped")
	return nil
}

func (w *SyncWorker) run(ctx context.Context) {
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
			if err := w.SyncAll(ctx); err != nil {
				w.logger.Error("cache reconciliation failed", "error", err)
			}
		}
	}
}

// SyncAll rebuilds the cached score set for every active session
func (w *SyncWorker) SyncAll(ctx context.Context) error {
	startTime := time.Now()

	sessionIDs, err := w.postgres.ActiveSessionIDs(ctx)
	if err != nil {
		return err
	}

	syncedCount := 0
	errorCount := 0

	for _, sessionID := range sessionIDs {
		if err := w.syncSession(ctx, sessionID); err != nil {
			w.logger.Error("failed to sync session scores",
				"session_id", sessionID,
				"error", err,
			)
			errorCount++
		} else {
			syncedCount++
		}
	}

	w.logger.Info("cache reconciliation completed",
		"duration", time.Since(startTime),
		"synced", syncedCount,
		"errors", errorCount,
	)
	return nil
}

// syncSession replaces one session's cached scores with the
// authoritative totals
func (w *SyncWorker) syncSession(ctx context.Context, sessionID string) error {
	points, err := w.postgres.SessionPoints(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	if err := w.cache.ReplaceAll(ctx, sessionID, points); err != nil {
		return err
	}

	if w.broadcaster != nil {
		standings, err := w.postgres.SessionStandings(ctx, sessionID)
		if err != nil {
			return err
		}
		w.broadcaster.BroadcastLeaderboard(sessionID, domain.Rank(standings))
	}

	w.logger.Debug("synced session scores",
		"session_id", sessionID,
		"player_count", len(points),
	)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

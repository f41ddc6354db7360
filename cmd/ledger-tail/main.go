package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cipher-arena/internal/config"
	"github.com/cipher-arena/internal/domain"
	"github.com/cipher-arena/internal/kafka"
)

// tally accumulates per-session counters from the ledger feed
type tally struct {
	mu       sync.Mutex
	actions  map[string]map[domain.ActionKind]int
	points   map[string]int
	logger   *slog.Logger
	interval time.Duration
}

func newTally(logger *slog.Logger, interval time.Duration) *tally {
	return &tally{
		actions:  make(map[string]map[domain.ActionKind]int),
		points:   make(map[string]int),
		logger:   logger,
		interval: interval,
	}
}

// HandleEntry counts one ledger entry
func (t *tally) HandleEntry(_ context.Context, entry domain.ActionLogEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.actions[entry.SessionID]; !ok {
		t.actions[entry.SessionID] = make(map[domain.ActionKind]int)
	}
	t.actions[entry.SessionID][entry.Kind]++
	t.points[entry.SessionID] += entry.PointsDelta
	return nil
}

// report logs the accumulated counters and resets them
func (t *tally) report() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for sessionID, kinds := range t.actions {
		t.logger.Info("ledger activity",
			"session_id", sessionID,
			"submitted", kinds[domain.ActionSubmittedAnswer],
			"completed", kinds[domain.ActionCompletedChallenge],
			"hints", kinds[domain.ActionUsedHint],
			"lifelines", kinds[domain.ActionUsedLifeline],
			"points_delta", t.points[sessionID],
		)
	}
	t.actions = make(map[string]map[domain.ActionKind]int)
	t.points = make(map[string]int)
}

func (t *tally) run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.report()
			return
		case <-ticker.C:
			t.report()
		}
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	reportInterval := flag.Duration("report-interval", 30*time.Second, "How often to log activity summaries")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := newTally(logger, *reportInterval)
	go t.run(ctx)

	consumer, err := kafka.NewConsumer(&cfg.Kafka, t, logger)
	if err != nil {
		logger.Error("failed to create ledger feed consumer", "error", err)
		os.Exit(1)
	}
	if err := consumer.Start(); err != nil {
		logger.Error("failed to start ledger feed consumer", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down ledger tail")
	cancel()
	if err := consumer.Stop(); err != nil {
		logger.Error("failed to stop consumer", "error", err)
	}
	logger.Info("ledger tail stopped")
}

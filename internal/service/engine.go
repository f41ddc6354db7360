package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cipher-arena/internal/config"
	"github.com/cipher-arena/internal/domain"
)

// Store is the durable storage the engine runs on. Implementations
// must make each mutating method an atomic unit: conditional updates
// either fully apply together with their ledger rows or not at all.
type Store interface {
	// Players
	GetOrCreatePlayer(ctx context.Context, externalID, email string) (*domain.Player, error)
	GetPlayer(ctx context.Context, playerID string) (*domain.Player, error)
	SetHandle(ctx context.Context, playerID, handle string) error

	// Sessions
	CurrentSession(ctx context.Context) (*domain.GameSession, error)
	GetSession(ctx context.Context, sessionID string) (*domain.GameSession, error)
	ListSessions(ctx context.Context) ([]domain.GameSession, error)
	CreateSession(ctx context.Context, name string) (*domain.GameSession, error)
	SetRound(ctx context.Context, sessionID string, round domain.Round) error
	DeactivateSession(ctx context.Context, sessionID string) error

	// Challenges
	GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error)
	ListChallenges(ctx context.Context, sessionID string, round domain.Round) ([]domain.Challenge, error)
	CreateChallenge(ctx context.Context, c *domain.Challenge) error
	UnsolvedHintChallenge(ctx context.Context, playerID, sessionID string) (*domain.Challenge, error)

	// Records
	EnsureRecord(ctx context.Context, playerID, sessionID string, inventory domain.Inventory) (*domain.PlayerRecord, error)
	GetRecord(ctx context.Context, playerID, sessionID string) (*domain.PlayerRecord, error)
	GrantCharges(ctx context.Context, playerID, sessionID string, kind domain.LifelineKind, count, max int) (int, error)
	ArmBoost(ctx context.Context, playerID, sessionID string) error
	Touch(ctx context.Context, playerID, sessionID string, status domain.PlayerStatus) error
	SessionStandings(ctx context.Context, sessionID string) ([]domain.Standing, error)

	// Atomic mutation + audit composites
	ApplySubmission(ctx context.Context, rec *domain.PlayerRecord, entry *domain.ActionLogEntry) error
	ApplyHintDebit(ctx context.Context, playerID, sessionID string, cost int, entry *domain.ActionLogEntry) (int, error)
	ApplyLifelineCharge(ctx context.Context, usage *domain.LifelineUsage, entry *domain.ActionLogEntry) (int, error)
	ApplySabotageEffect(ctx context.Context, targetID, sessionID string, percent int, entry *domain.ActionLogEntry) (lost, newPoints int, err error)

	// Ledger reads
	HasCompleted(ctx context.Context, playerID, challengeID string) (bool, error)
	RecentActions(ctx context.Context, playerID, sessionID string, limit int) ([]domain.ActionLogEntry, error)
}

// Cache mirrors session scores for cheap ranked reads. All methods are
// best-effort from the engine's point of view: the store stays
// authoritative.
type Cache interface {
	SetScore(ctx context.Context, sessionID, playerID string, points int) error
	TopN(ctx context.Context, sessionID string, n int) ([]domain.Standing, error)
	Clear(ctx context.Context, sessionID string) error
}

// Publisher streams ledger entries to downstream analytics consumers
type Publisher interface {
	Publish(entry domain.ActionLogEntry)
}

// Notifier pushes live updates to connected spectators
type Notifier interface {
	ScoreChanged(sessionID, playerID string, points int)
	LifelineUsed(sessionID string, kind domain.LifelineKind, actorID string)
}

// Engine is the scoring engine facade: the only surface external
// callers invoke. It resolves actors, routes operations, and owns no
// business state of its own.
type Engine struct {
	store     Store
	cache     Cache
	publisher Publisher
	notifier  Notifier
	game      *config.GameConfig
	logger    *slog.Logger
}

// NewEngine creates the scoring engine facade. Cache, publisher, and
// notifier may be nil; the engine degrades to store-only operation.
func NewEngine(store Store, cache Cache, game *config.GameConfig, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		cache:  cache,
		game:   game,
		logger: logger,
	}
}

// SetPublisher attaches the ledger event publisher
func (e *Engine) SetPublisher(p Publisher) {
	e.publisher = p
}

// SetNotifier attaches the live update notifier
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// resolveActor maps an external identity to a player and the player's
// record for the session, creating both on first contact
func (e *Engine) resolveActor(ctx context.Context, actor Actor, sessionID string) (*domain.Player, *domain.PlayerRecord, error) {
	if actor.ExternalID == "" {
		return nil, nil, domain.ErrUnauthorized
	}
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !session.IsActive {
		return nil, nil, domain.ErrSessionNotFound
	}
	player, err := e.store.GetOrCreatePlayer(ctx, actor.ExternalID, actor.Email)
	if err != nil {
		return nil, nil, err
	}
	rec, err := e.store.EnsureRecord(ctx, player.ID, sessionID, domain.DefaultInventory())
	if err != nil {
		return nil, nil, err
	}
	return player, rec, nil
}

// Actor is the resolved caller identity handed in by the transport
// layer after token verification
type Actor struct {
	ExternalID string
	Email      string
	Gamemaster bool
}

// GetCurrentSession returns the newest active session, or nil when no
// session is running
func (e *Engine) GetCurrentSession(ctx context.Context) (*domain.GameSession, error) {
	session, err := e.store.CurrentSession(ctx)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// Onboard assigns the player's permanent handle. Handles are unique
// and immutable once set.
func (e *Engine) Onboard(ctx context.Context, actor Actor, handle string) (*domain.Player, error) {
	if actor.ExternalID == "" {
		return nil, domain.ErrUnauthorized
	}
	if len(handle) < 3 || len(handle) > 50 {
		return nil, domain.ErrInvalidRequest
	}
	player, err := e.store.GetOrCreatePlayer(ctx, actor.ExternalID, actor.Email)
	if err != nil {
		return nil, err
	}
	if err := e.store.SetHandle(ctx, player.ID, handle); err != nil {
		return nil, err
	}
	player.Handle = handle
	return player, nil
}

// GetPlayerStats returns the calling player's record for a session,
// creating it with the default inventory on first contact
func (e *Engine) GetPlayerStats(ctx context.Context, actor Actor, sessionID string) (*domain.PlayerRecord, error) {
	_, rec, err := e.resolveActor(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetLeaderboard derives the tie-aware ranked list from the current
// session snapshot. Read-only; safe to call at arbitrary frequency.
func (e *Engine) GetLeaderboard(ctx context.Context, sessionID string) ([]domain.RankedPlayer, error) {
	if _, err := e.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	standings, err := e.store.SessionStandings(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading standings: %w", err)
	}
	if max := e.game.LeaderboardMax; len(standings) > max {
		standings = standings[:max]
	}
	return domain.Rank(standings), nil
}

// GetRecentActions returns the calling player's newest ledger entries
func (e *Engine) GetRecentActions(ctx context.Context, actor Actor, sessionID string, limit int) ([]domain.ActionLogEntry, error) {
	player, _, err := e.resolveActor(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = e.game.RecentActions
	}
	return e.store.RecentActions(ctx, player.ID, sessionID, limit)
}

// ListChallenges returns the session's active challenges, optionally
// filtered by round. Solutions and hints never serialize outward.
func (e *Engine) ListChallenges(ctx context.Context, sessionID string, round domain.Round) ([]domain.Challenge, error) {
	if round != "" && !round.Valid() {
		return nil, domain.ErrInvalidRequest
	}
	if _, err := e.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return e.store.ListChallenges(ctx, sessionID, round)
}

// Heartbeat refreshes the caller's presence status
func (e *Engine) Heartbeat(ctx context.Context, actor Actor, sessionID string, status domain.PlayerStatus) error {
	switch status {
	case domain.StatusOnline, domain.StatusAway, domain.StatusOffline:
	default:
		return domain.ErrInvalidRequest
	}
	player, _, err := e.resolveActor(ctx, actor, sessionID)
	if err != nil {
		return err
	}
	return e.store.Touch(ctx, player.ID, sessionID, status)
}

// PlayerDetails bundles a player's profile, record, and ledger tail
type PlayerDetails struct {
	Player        *domain.Player          `json:"player"`
	Record        *domain.PlayerRecord    `json:"record,omitempty"`
	RecentActions []domain.ActionLogEntry `json:"recent_actions"`
}

// GetPlayerDetails returns another player's profile, stats, and recent
// ledger entries
func (e *Engine) GetPlayerDetails(ctx context.Context, sessionID, targetPlayerID string, recentLimit int) (*PlayerDetails, error) {
	if _, err := e.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	player, err := e.store.GetPlayer(ctx, targetPlayerID)
	if err != nil {
		return nil, err
	}
	if recentLimit <= 0 {
		recentLimit = e.game.RecentActions
	}
	details := &PlayerDetails{Player: player}

	rec, err := e.store.GetRecord(ctx, targetPlayerID, sessionID)
	if err == nil {
		details.Record = rec
	} else if !domain.IsNotFoundError(err) {
		return nil, err
	}

	actions, err := e.store.RecentActions(ctx, targetPlayerID, sessionID, recentLimit)
	if err != nil {
		return nil, err
	}
	details.RecentActions = actions
	return details, nil
}

// topRanked serves the ranked top-N from the score cache when it is
// warm, falling back to the authoritative store. Cached standings
// carry IDs and points only; callers needing handles resolve them
// through the player profile.
func (e *Engine) topRanked(ctx context.Context, sessionID string, n int) ([]domain.RankedPlayer, error) {
	if _, err := e.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if e.cache != nil {
		standings, err := e.cache.TopN(ctx, sessionID, n)
		if err != nil {
			e.logger.Warn("leaderboard cache read failed, falling back to store", "session_id", sessionID, "error", err)
		} else if len(standings) > 0 {
			return domain.Rank(standings), nil
		}
	}
	standings, err := e.store.SessionStandings(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading standings: %w", err)
	}
	if len(standings) > n {
		standings = standings[:n]
	}
	return domain.Rank(standings), nil
}

// GetTopPlayersDetails returns detailed stats for the top-N ranked
// players. Backs the snitch lifeline and the spectator view.
func (e *Engine) GetTopPlayersDetails(ctx context.Context, sessionID string, topN, recentLimit int) ([]PlayerDetails, error) {
	if topN <= 0 {
		topN = e.game.TopPlayersLimit
	}
	ranked, err := e.topRanked(ctx, sessionID, topN)
	if err != nil {
		return nil, err
	}

	details := make([]PlayerDetails, 0, len(ranked))
	for _, entry := range ranked {
		d, err := e.GetPlayerDetails(ctx, sessionID, entry.PlayerID, recentLimit)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

// afterScoreChange fans a committed point change out to the cache,
// the live update hub, and the ledger stream. All best-effort: the
// durable write already happened.
func (e *Engine) afterScoreChange(ctx context.Context, sessionID, playerID string, points int, entries ...domain.ActionLogEntry) {
	if e.cache != nil {
		if err := e.cache.SetScore(ctx, sessionID, playerID, points); err != nil {
			e.logger.Warn("failed to update leaderboard cache", "player_id", playerID, "error", err)
		}
	}
	if e.notifier != nil {
		e.notifier.ScoreChanged(sessionID, playerID, points)
	}
	if e.publisher != nil {
		for _, entry := range entries {
			e.publisher.Publish(entry)
		}
	}
}

// touchPresence marks the actor active without failing the request
func (e *Engine) touchPresence(ctx context.Context, playerID, sessionID string) {
	if err := e.store.Touch(ctx, playerID, sessionID, domain.StatusOnline); err != nil {
		e.logger.Debug("failed to refresh presence", "player_id", playerID, "error", err)
	}
}

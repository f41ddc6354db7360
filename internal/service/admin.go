package service

import (
	"context"

	"github.com/cipher-arena/internal/domain"
)

// CreateSession opens a new game session starting at round one.
// Gamemaster only.
func (e *Engine) CreateSession(ctx context.Context, actor Actor, name string) (*domain.GameSession, error) {
	if !actor.Gamemaster {
		return nil, domain.ErrForbidden
	}
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}
	session, err := e.store.CreateSession(ctx, name)
	if err != nil {
		return nil, err
	}
	e.logger.Info("session created", "session_id", session.ID, "name", name)
	return session, nil
}

// AdvanceRound moves the session to the next round. Advancing past
// the final round is rejected. Gamemaster only.
func (e *Engine) AdvanceRound(ctx context.Context, actor Actor, sessionID string) (*domain.GameSession, error) {
	if !actor.Gamemaster {
		return nil, domain.ErrForbidden
	}
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next := session.CurrentRound.Next()
	if next == session.CurrentRound {
		return nil, domain.ErrInvalidRequest
	}
	if err := e.store.SetRound(ctx, sessionID, next); err != nil {
		return nil, err
	}
	session.CurrentRound = next
	e.logger.Info("round advanced", "session_id", sessionID, "round", next)
	return session, nil
}

// ListSessions returns every session, newest first. Gamemaster only.
func (e *Engine) ListSessions(ctx context.Context, actor Actor) ([]domain.GameSession, error) {
	if !actor.Gamemaster {
		return nil, domain.ErrForbidden
	}
	return e.store.ListSessions(ctx)
}

// DeactivateSession ends a session. Scores and the ledger survive in
// the store; further mutations against the session are rejected by
// lookups and the cached score set is dropped. Gamemaster only.
func (e *Engine) DeactivateSession(ctx context.Context, actor Actor, sessionID string) error {
	if !actor.Gamemaster {
		return domain.ErrForbidden
	}
	if err := e.store.DeactivateSession(ctx, sessionID); err != nil {
		return err
	}
	if e.cache != nil {
		if err := e.cache.Clear(ctx, sessionID); err != nil {
			e.logger.Warn("failed to drop cached scores", "session_id", sessionID, "error", err)
		}
	}
	e.logger.Info("session deactivated", "session_id", sessionID)
	return nil
}

// CreateChallenge registers a new challenge in a session. Gamemaster
// only.
func (e *Engine) CreateChallenge(ctx context.Context, actor Actor, c *domain.Challenge) (*domain.Challenge, error) {
	if !actor.Gamemaster {
		return nil, domain.ErrForbidden
	}
	if c.Title == "" || c.Solution == "" || c.Points <= 0 || !c.Round.Valid() {
		return nil, domain.ErrInvalidRequest
	}
	if _, err := e.store.GetSession(ctx, c.SessionID); err != nil {
		return nil, err
	}
	c.IsActive = true
	if err := e.store.CreateChallenge(ctx, c); err != nil {
		return nil, err
	}
	e.logger.Info("challenge created", "challenge_id", c.ID, "session_id", c.SessionID, "round", c.Round)
	return c, nil
}

// GrantLifelines tops up a player's charges for one lifeline kind,
// capped at the kind's ceiling. Used to hand catch-up charges to
// trailing players. Gamemaster only.
func (e *Engine) GrantLifelines(ctx context.Context, actor Actor, sessionID, playerID string, kind domain.LifelineKind, count int) (int, error) {
	if !actor.Gamemaster {
		return 0, domain.ErrForbidden
	}
	if !kind.Valid() || count <= 0 {
		return 0, domain.ErrInvalidRequest
	}
	remaining, err := e.store.GrantCharges(ctx, playerID, sessionID, kind, count, kind.MaxCharges())
	if err != nil {
		return 0, err
	}
	e.logger.Info("lifeline charges granted",
		"player_id", playerID,
		"kind", kind,
		"count", count,
		"remaining", remaining,
	)
	return remaining, nil
}

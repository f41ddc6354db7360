package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cipher-arena/internal/domain"
)

const sessionColumns = `id, name, current_round, COALESCE(current_phase, ''), is_active, started_at, ended_at, created_at, updated_at`

// CurrentSession returns the newest active game session
func (r *Repository) CurrentSession(ctx context.Context) (*domain.GameSession, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM game_sessions
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionColumns)
	return r.scanSession(r.pool.QueryRow(ctx, query))
}

// GetSession retrieves a game session by ID
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*domain.GameSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM game_sessions WHERE id = $1`, sessionColumns)
	return r.scanSession(r.pool.QueryRow(ctx, query, sessionID))
}

func (r *Repository) scanSession(row pgx.Row) (*domain.GameSession, error) {
	var s domain.GameSession
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.CurrentRound,
		&s.CurrentPhase,
		&s.IsActive,
		&s.StartedAt,
		&s.EndedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &s, nil
}

// CreateSession creates a new game session starting at round 1
func (r *Repository) CreateSession(ctx context.Context, name string) (*domain.GameSession, error) {
	now := time.Now()
	session := &domain.GameSession{
		ID:           uuid.New().String(),
		Name:         name,
		CurrentRound: domain.Round1,
		IsActive:     true,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	query := `
		INSERT INTO game_sessions (id, name, current_round, is_active, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4, $4)
	`
	if _, err := r.pool.Exec(ctx, query, session.ID, session.Name, string(session.CurrentRound), now); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

// SetRound moves a session to the given round
func (r *Repository) SetRound(ctx context.Context, sessionID string, round domain.Round) error {
	query := `UPDATE game_sessions SET current_round = $2, updated_at = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, sessionID, string(round), time.Now())
	if err != nil {
		return fmt.Errorf("setting round: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeactivateSession ends a session. Sessions are never deleted.
func (r *Repository) DeactivateSession(ctx context.Context, sessionID string) error {
	now := time.Now()
	query := `
		UPDATE game_sessions SET is_active = FALSE, ended_at = $2, updated_at = $2
		WHERE id = $1 AND is_active = TRUE
	`
	result, err := r.pool.Exec(ctx, query, sessionID, now)
	if err != nil {
		return fmt.Errorf("deactivating session: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetSession(ctx, sessionID); err != nil {
			return err
		}
		// Already inactive; deactivation is idempotent
	}
	return nil
}

// ListSessions retrieves all game sessions, newest first
func (r *Repository) ListSessions(ctx context.Context) ([]domain.GameSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM game_sessions ORDER BY created_at DESC`, sessionColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.GameSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ActiveSessionIDs returns the IDs of all active sessions
func (r *Repository) ActiveSessionIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM game_sessions WHERE is_active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

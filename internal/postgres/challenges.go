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

const challengeColumns = `id, session_id, title, COALESCE(description, ''), round, points, solution, COALESCE(hint, ''), is_active, created_at, updated_at`

// GetChallenge retrieves a challenge by ID
func (r *Repository) GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	query := fmt.Sprintf(`SELECT %s FROM challenges WHERE id = $1`, challengeColumns)
	return r.scanChallenge(r.pool.QueryRow(ctx, query, challengeID))
}

func (r *Repository) scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	err := row.Scan(
		&c.ID,
		&c.SessionID,
		&c.Title,
		&c.Description,
		&c.Round,
		&c.Points,
		&c.Solution,
		&c.Hint,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("getting challenge: %w", err)
	}
	return &c, nil
}

// ListChallenges retrieves active challenges for a session, optionally
// filtered by round
func (r *Repository) ListChallenges(ctx context.Context, sessionID string, round domain.Round) ([]domain.Challenge, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM challenges
		WHERE session_id = $1 AND is_active = TRUE AND ($2 = '' OR round = $2)
		ORDER BY created_at ASC
	`, challengeColumns)
	rows, err := r.pool.Query(ctx, query, sessionID, string(round))
	if err != nil {
		return nil, fmt.Errorf("listing challenges: %w", err)
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		c, err := r.scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// CreateChallenge stores a new challenge
func (r *Repository) CreateChallenge(ctx context.Context, c *domain.Challenge) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.IsActive = true

	query := `
		INSERT INTO challenges (id, session_id, title, description, round, points, solution, hint, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.SessionID,
		c.Title,
		c.Description,
		string(c.Round),
		c.Points,
		c.Solution,
		c.Hint,
		now,
	)
	if err != nil {
		return fmt.Errorf("creating challenge: %w", err)
	}
	return nil
}

// UnsolvedHintChallenge picks an active challenge with a hint that the
// player has not completed yet. Used by the intel lifeline.
func (r *Repository) UnsolvedHintChallenge(ctx context.Context, playerID, sessionID string) (*domain.Challenge, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM challenges c
		WHERE c.session_id = $2 AND c.is_active = TRUE AND COALESCE(c.hint, '') <> ''
		AND NOT EXISTS (
			SELECT 1 FROM action_log a
			WHERE a.player_id = $1 AND a.target = c.id
			AND a.kind = 'completed_challenge' AND a.result = 'success'
		)
		ORDER BY c.created_at ASC
		LIMIT 1
	`, challengeColumns)
	return r.scanChallenge(r.pool.QueryRow(ctx, query, playerID, sessionID))
}

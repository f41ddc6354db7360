package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cipher-arena/internal/domain"
)

const uniqueViolation = "23505"

// GetOrCreatePlayer resolves an external identity to a player,
// creating the player on first contact. Safe under concurrent first
// contact: the insert is a no-op when another request won the race.
func (r *Repository) GetOrCreatePlayer(ctx context.Context, externalID, email string) (*domain.Player, error) {
	query := `
		INSERT INTO players (id, external_id, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (external_id) DO NOTHING
	`
	now := time.Now()
	if _, err := r.pool.Exec(ctx, query, uuid.New().String(), externalID, email, now); err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	return r.GetPlayerByExternalID(ctx, externalID)
}

// GetPlayerByExternalID retrieves a player by identity-provider subject
func (r *Repository) GetPlayerByExternalID(ctx context.Context, externalID string) (*domain.Player, error) {
	return r.scanPlayer(ctx, `
		SELECT id, external_id, COALESCE(handle, ''), COALESCE(email, ''), COALESCE(avatar_url, ''), created_at, updated_at
		FROM players WHERE external_id = $1
	`, externalID)
}

// GetPlayer retrieves a player by ID
func (r *Repository) GetPlayer(ctx context.Context, playerID string) (*domain.Player, error) {
	return r.scanPlayer(ctx, `
		SELECT id, external_id, COALESCE(handle, ''), COALESCE(email, ''), COALESCE(avatar_url, ''), created_at, updated_at
		FROM players WHERE id = $1
	`, playerID)
}

func (r *Repository) scanPlayer(ctx context.Context, query string, arg any) (*domain.Player, error) {
	var p domain.Player
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.ExternalID,
		&p.Handle,
		&p.Email,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return &p, nil
}

// SetHandle assigns a handle exactly once. The conditional update
// enforces immutability, the unique index enforces uniqueness.
func (r *Repository) SetHandle(ctx context.Context, playerID, handle string) error {
	query := `
		UPDATE players SET handle = $2, updated_at = $3
		WHERE id = $1 AND handle IS NULL
	`
	result, err := r.pool.Exec(ctx, query, playerID, handle, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrHandleTaken
		}
		return fmt.Errorf("setting handle: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetPlayer(ctx, playerID); err != nil {
			return err
		}
		return domain.ErrHandleAlreadySet
	}
	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cipher-arena/internal/domain"
)

// appendAction appends an entry to the score ledger. Entries are
// immutable; nothing in the engine updates or deletes them.
func appendAction(ctx context.Context, q queryer, entry *domain.ActionLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
	}

	query := `
		INSERT INTO action_log (id, player_id, session_id, kind, result, target, points_delta, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.Exec(ctx, query,
		entry.ID,
		entry.PlayerID,
		entry.SessionID,
		string(entry.Kind),
		string(entry.Result),
		entry.Target,
		entry.PointsDelta,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending ledger entry: %w", err)
	}
	return nil
}

// HasCompleted reports whether the ledger holds a successful
// completion of the challenge by the player. The ledger, not the
// record, is the source of truth for submission idempotence.
func (r *Repository) HasCompleted(ctx context.Context, playerID, challengeID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM action_log
			WHERE player_id = $1 AND target = $2
			AND kind = 'completed_challenge' AND result = 'success'
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, playerID, challengeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking completion: %w", err)
	}
	return exists, nil
}

// RecentActions retrieves a player's newest ledger entries for a session
func (r *Repository) RecentActions(ctx context.Context, playerID, sessionID string, limit int) ([]domain.ActionLogEntry, error) {
	query := `
		SELECT id, player_id, session_id, kind, result, COALESCE(target, ''), points_delta, metadata, created_at
		FROM action_log
		WHERE player_id = $1 AND session_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, playerID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting recent actions: %w", err)
	}
	defer rows.Close()

	var entries []domain.ActionLogEntry
	for rows.Next() {
		var entry domain.ActionLogEntry
		var metadata []byte
		err := rows.Scan(
			&entry.ID,
			&entry.PlayerID,
			&entry.SessionID,
			&entry.Kind,
			&entry.Result,
			&entry.Target,
			&entry.PointsDelta,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// recordLifelineUsage stores the immutable record of one lifeline invocation
func recordLifelineUsage(ctx context.Context, q queryer, usage *domain.LifelineUsage) error {
	if usage.ID == "" {
		usage.ID = uuid.New().String()
	}
	if usage.UsedAt.IsZero() {
		usage.UsedAt = time.Now()
	}

	var metadata []byte
	if usage.Metadata != nil {
		var err error
		metadata, err = json.Marshal(usage.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
	}

	var target *string
	if usage.TargetPlayerID != "" {
		target = &usage.TargetPlayerID
	}

	query := `
		INSERT INTO lifeline_usage (id, player_id, session_id, kind, target_player_id, metadata, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.Exec(ctx, query,
		usage.ID,
		usage.PlayerID,
		usage.SessionID,
		string(usage.Kind),
		target,
		metadata,
		usage.UsedAt,
	)
	if err != nil {
		return fmt.Errorf("recording lifeline usage: %w", err)
	}
	return nil
}

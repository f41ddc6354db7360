package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cipher-arena/internal/domain"
)

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx so record
// primitives can run standalone or inside a transaction
type queryer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnsureRecord creates the player's record for a session if it does
// not exist yet and returns the current row. Creation is idempotent
// under concurrent first contact.
func (r *Repository) EnsureRecord(ctx context.Context, playerID, sessionID string, inventory domain.Inventory) (*domain.PlayerRecord, error) {
	lifelines, err := json.Marshal(inventory)
	if err != nil {
		return nil, fmt.Errorf("marshaling inventory: %w", err)
	}

	query := `
		INSERT INTO player_records (player_id, session_id, lifelines, status, last_active_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'online', $4, $4, $4)
		ON CONFLICT (player_id, session_id) DO NOTHING
	`
	now := time.Now()
	if _, err := r.pool.Exec(ctx, query, playerID, sessionID, lifelines, now); err != nil {
		return nil, fmt.Errorf("creating player record: %w", err)
	}
	return r.GetRecord(ctx, playerID, sessionID)
}

const recordColumns = `player_id, session_id, points, lifelines, streak,
	round_1_points, round_2_points, round_3_points,
	boost_armed, status, last_active_at, version, created_at, updated_at`

// GetRecord retrieves a player's record for a session
func (r *Repository) GetRecord(ctx context.Context, playerID, sessionID string) (*domain.PlayerRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM player_records WHERE player_id = $1 AND session_id = $2
	`, recordColumns)
	return scanRecord(r.pool.QueryRow(ctx, query, playerID, sessionID))
}

func scanRecord(row pgx.Row) (*domain.PlayerRecord, error) {
	var rec domain.PlayerRecord
	var lifelines []byte
	err := row.Scan(
		&rec.PlayerID,
		&rec.SessionID,
		&rec.Points,
		&lifelines,
		&rec.Streak,
		&rec.RoundPoints.Round1,
		&rec.RoundPoints.Round2,
		&rec.RoundPoints.Round3,
		&rec.BoostArmed,
		&rec.Status,
		&rec.LastActiveAt,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting player record: %w", err)
	}
	if err := json.Unmarshal(lifelines, &rec.Lifelines); err != nil {
		return nil, fmt.Errorf("unmarshaling inventory: %w", err)
	}
	return &rec, nil
}

// updateRecord writes a record back conditioned on its version not
// having changed since the read. On success the in-memory version is
// bumped to match the row; a conflicting concurrent write yields
// ErrConcurrentModification and no mutation.
func updateRecord(ctx context.Context, q queryer, rec *domain.PlayerRecord) error {
	lifelines, err := json.Marshal(rec.Lifelines)
	if err != nil {
		return fmt.Errorf("marshaling inventory: %w", err)
	}

	query := `
		UPDATE player_records
		SET points = $3, lifelines = $4, streak = $5,
			round_1_points = $6, round_2_points = $7, round_3_points = $8,
			boost_armed = $9, status = $10, last_active_at = $11,
			version = version + 1, updated_at = $12
		WHERE player_id = $1 AND session_id = $2 AND version = $13
	`
	now := time.Now()
	result, err := q.Exec(ctx, query,
		rec.PlayerID,
		rec.SessionID,
		rec.Points,
		lifelines,
		rec.Streak,
		rec.RoundPoints.Round1,
		rec.RoundPoints.Round2,
		rec.RoundPoints.Round3,
		rec.BoostArmed,
		string(rec.Status),
		rec.LastActiveAt,
		now,
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("updating player record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	rec.Version++
	rec.UpdatedAt = now
	return nil
}

// consumeCharge atomically decrements one lifeline charge. The guard
// in the WHERE clause makes check-then-decrement a single statement:
// under concurrent use with one charge left, exactly one caller gets
// the row and the other gets ErrNoChargesRemaining.
func consumeCharge(ctx context.Context, q queryer, playerID, sessionID string, kind domain.LifelineKind) (int, error) {
	query := `
		UPDATE player_records
		SET lifelines = jsonb_set(lifelines, ARRAY[$3], to_jsonb((lifelines->>$3)::int - 1)),
			version = version + 1, last_active_at = $4, updated_at = $4
		WHERE player_id = $1 AND session_id = $2
		AND COALESCE((lifelines->>$3)::int, 0) > 0
		RETURNING (lifelines->>$3)::int
	`
	var remaining int
	err := q.QueryRow(ctx, query, playerID, sessionID, string(kind), time.Now()).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNoChargesRemaining
		}
		return 0, fmt.Errorf("consuming lifeline charge: %w", err)
	}
	return remaining, nil
}

// debitPoints atomically removes points from a record, failing with
// ErrInsufficientPoints when the balance cannot cover the cost
func debitPoints(ctx context.Context, q queryer, playerID, sessionID string, cost int) (int, error) {
	query := `
		UPDATE player_records
		SET points = points - $3, version = version + 1, last_active_at = $4, updated_at = $4
		WHERE player_id = $1 AND session_id = $2 AND points >= $3
		RETURNING points
	`
	var balance int
	err := q.QueryRow(ctx, query, playerID, sessionID, cost, time.Now()).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientPoints
		}
		return 0, fmt.Errorf("debiting points: %w", err)
	}
	return balance, nil
}

// applySabotage removes floor(points * percent / 100) from the target
// record in one atomic statement and returns the loss and new balance.
// A zero-point target loses nothing but the row still commits.
func applySabotage(ctx context.Context, q queryer, playerID, sessionID string, percent int) (lost, newPoints int, err error) {
	query := `
		WITH prior AS (
			SELECT player_id, session_id, points FROM player_records
			WHERE player_id = $1 AND session_id = $2
			FOR UPDATE
		), updated AS (
			UPDATE player_records pr
			SET points = GREATEST(prior.points - prior.points * $3 / 100, 0),
				version = pr.version + 1, updated_at = $4
			FROM prior
			WHERE pr.player_id = prior.player_id AND pr.session_id = prior.session_id
			RETURNING pr.points
		)
		SELECT prior.points - updated.points, updated.points FROM prior, updated
	`
	err = q.QueryRow(ctx, query, playerID, sessionID, percent, time.Now()).Scan(&lost, &newPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, domain.ErrRecordNotFound
		}
		return 0, 0, fmt.Errorf("applying sabotage: %w", err)
	}
	return lost, newPoints, nil
}

// GrantCharges adds lifeline charges up to the kind's ceiling and
// returns the new count
func (r *Repository) GrantCharges(ctx context.Context, playerID, sessionID string, kind domain.LifelineKind, count, max int) (int, error) {
	query := `
		UPDATE player_records
		SET lifelines = jsonb_set(lifelines, ARRAY[$3], to_jsonb(LEAST($5, COALESCE((lifelines->>$3)::int, 0) + $4))),
			version = version + 1, updated_at = $6
		WHERE player_id = $1 AND session_id = $2
		RETURNING (lifelines->>$3)::int
	`
	var remaining int
	err := r.pool.QueryRow(ctx, query, playerID, sessionID, string(kind), count, max, time.Now()).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrRecordNotFound
		}
		return 0, fmt.Errorf("granting lifeline charges: %w", err)
	}
	return remaining, nil
}

// ArmBoost flags the record so the next successful submission awards
// double points. Bumps the version: arming must serialize with
// concurrent score writes.
func (r *Repository) ArmBoost(ctx context.Context, playerID, sessionID string) error {
	query := `
		UPDATE player_records
		SET boost_armed = TRUE, version = version + 1, updated_at = $3
		WHERE player_id = $1 AND session_id = $2
	`
	result, err := r.pool.Exec(ctx, query, playerID, sessionID, time.Now())
	if err != nil {
		return fmt.Errorf("arming boost: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// Touch refreshes a record's presence status and activity timestamp
func (r *Repository) Touch(ctx context.Context, playerID, sessionID string, status domain.PlayerStatus) error {
	// presence columns are not version-guarded; heartbeats must not
	// conflict with in-flight score writes
	query := `
		UPDATE player_records
		SET status = $3, last_active_at = $4, updated_at = $4
		WHERE player_id = $1 AND session_id = $2
	`
	result, err := r.pool.Exec(ctx, query, playerID, sessionID, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("touching player record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// MarkStaleOffline flips records inactive since the cutoff to offline
// and returns how many were swept
func (r *Repository) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE player_records
		SET status = 'offline', version = version + 1, updated_at = $2
		WHERE status <> 'offline' AND last_active_at < $1
	`
	result, err := r.pool.Exec(ctx, query, cutoff, time.Now())
	if err != nil {
		return 0, fmt.Errorf("sweeping stale records: %w", err)
	}
	return result.RowsAffected(), nil
}

// SessionStandings returns the session score snapshot ordered by
// points descending. Players without a record yet are included at
// zero points; rank numbers are assigned by the caller.
func (r *Repository) SessionStandings(ctx context.Context, sessionID string) ([]domain.Standing, error) {
	query := `
		SELECT p.id, COALESCE(p.handle, ''), COALESCE(r.points, 0), COALESCE(r.status, 'offline')
		FROM players p
		LEFT JOIN player_records r ON r.player_id = p.id AND r.session_id = $1
		ORDER BY COALESCE(r.points, 0) DESC, p.created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session standings: %w", err)
	}
	defer rows.Close()

	var standings []domain.Standing
	for rows.Next() {
		var s domain.Standing
		if err := rows.Scan(&s.PlayerID, &s.Handle, &s.Points, &s.Status); err != nil {
			return nil, fmt.Errorf("scanning standing: %w", err)
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

// SessionPoints returns every recorded player's points for a session
// keyed by player ID (used for cache reconciliation)
func (r *Repository) SessionPoints(ctx context.Context, sessionID string) (map[string]int, error) {
	query := `SELECT player_id, points FROM player_records WHERE session_id = $1`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session points: %w", err)
	}
	defer rows.Close()

	points := make(map[string]int)
	for rows.Next() {
		var playerID string
		var p int
		if err := rows.Scan(&playerID, &p); err != nil {
			return nil, fmt.Errorf("scanning points: %w", err)
		}
		points[playerID] = p
	}
	return points, rows.Err()
}

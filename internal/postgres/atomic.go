package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cipher-arena/internal/domain"
)

// withTx runs fn inside a transaction, rolling back on error
func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ApplySubmission commits a submission outcome: the record write
// (points, streak, round breakdown, boost flag) conditioned on the
// record's version, and the ledger entry, in one transaction. A
// version conflict rolls everything back and surfaces
// ErrConcurrentModification, leaving no partial state.
func (r *Repository) ApplySubmission(ctx context.Context, rec *domain.PlayerRecord, entry *domain.ActionLogEntry) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := updateRecord(ctx, tx, rec); err != nil {
			return err
		}
		return appendAction(ctx, tx, entry)
	})
}

// ApplyHintDebit atomically debits the hint cost and appends the
// neutral ledger entry. ErrInsufficientPoints rolls both back.
func (r *Repository) ApplyHintDebit(ctx context.Context, playerID, sessionID string, cost int, entry *domain.ActionLogEntry) (int, error) {
	var balance int
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = debitPoints(ctx, tx, playerID, sessionID, cost)
		if err != nil {
			return err
		}
		return appendAction(ctx, tx, entry)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ApplyLifelineCharge consumes one charge and writes both audit rows
// (usage record and ledger entry) in a single transaction, so a spent
// charge is always accounted for even when the downstream effect is a
// pure read or fails afterwards.
func (r *Repository) ApplyLifelineCharge(ctx context.Context, usage *domain.LifelineUsage, entry *domain.ActionLogEntry) (int, error) {
	var remaining int
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		remaining, err = consumeCharge(ctx, tx, usage.PlayerID, usage.SessionID, usage.Kind)
		if err != nil {
			return err
		}
		if err := recordLifelineUsage(ctx, tx, usage); err != nil {
			return err
		}
		return appendAction(ctx, tx, entry)
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// ApplySabotageEffect removes the percentage point loss from the
// target record and appends the target-side ledger entry in one
// transaction. The entry's points delta and points_lost
// metadata are filled in from the computed loss before the insert.
func (r *Repository) ApplySabotageEffect(ctx context.Context, targetID, sessionID string, percent int, entry *domain.ActionLogEntry) (lost, newPoints int, err error) {
	err = r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		lost, newPoints, err = applySabotage(ctx, tx, targetID, sessionID, percent)
		if err != nil {
			return err
		}
		entry.PointsDelta = -lost
		if entry.Metadata == nil {
			entry.Metadata = domain.Metadata{}
		}
		entry.Metadata["points_lost"] = lost
		entry.Metadata["target_new_points"] = newPoints
		return appendAction(ctx, tx, entry)
	})
	if err != nil {
		return 0, 0, err
	}
	return lost, newPoints, nil
}

package service

import (
	"context"

	"github.com/cipher-arena/internal/domain"
)

// SabotageOutcome reports the target-side effect of a sabotage
type SabotageOutcome struct {
	TargetPlayerID string `json:"target_player_id"`
	PointsLost     int    `json:"points_lost"`
	TargetPoints   int    `json:"target_points"`
}

// IntelResult is the free hint surfaced by the intel lifeline
type IntelResult struct {
	ChallengeID string `json:"challenge_id"`
	Title       string `json:"title"`
	Hint        string `json:"hint"`
}

// LifelineResult reports a lifeline invocation: the remaining charge
// count plus the kind-specific effect payload
type LifelineResult struct {
	Kind       domain.LifelineKind `json:"kind"`
	Remaining  int                 `json:"remaining"`
	Snitch     []PlayerDetails     `json:"snitch,omitempty"`
	Intel      *IntelResult        `json:"intel,omitempty"`
	Sabotage   *SabotageOutcome    `json:"sabotage,omitempty"`
	BoostArmed bool                `json:"boost_armed,omitempty"`
}

// UseLifeline spends one charge of the given kind and applies its
// effect. The charge decrement, the usage record, and the ledger entry
// commit as one unit before the effect runs, so a spent charge is
// auditable even when the effect itself fails afterwards.
func (e *Engine) UseLifeline(ctx context.Context, actor Actor, sessionID string, kind domain.LifelineKind, targetPlayerID string) (*LifelineResult, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidRequest
	}
	player, _, err := e.resolveActor(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	if kind.RequiresTarget() {
		if targetPlayerID == "" || targetPlayerID == player.ID {
			return nil, domain.ErrInvalidTarget
		}
		if _, err := e.store.GetRecord(ctx, targetPlayerID, sessionID); err != nil {
			if domain.IsNotFoundError(err) {
				return nil, domain.ErrInvalidTarget
			}
			return nil, err
		}
	} else {
		targetPlayerID = ""
	}

	usage := domain.LifelineUsage{
		PlayerID:       player.ID,
		SessionID:      sessionID,
		Kind:           kind,
		TargetPlayerID: targetPlayerID,
	}
	entryTarget := string(kind)
	if targetPlayerID != "" {
		entryTarget = targetPlayerID
	}
	entry := domain.ActionLogEntry{
		PlayerID:  player.ID,
		SessionID: sessionID,
		Kind:      domain.ActionUsedLifeline,
		Result:    domain.ResultSuccess,
		Target:    entryTarget,
		Metadata:  domain.Metadata{"lifeline": string(kind)},
	}
	remaining, err := e.store.ApplyLifelineCharge(ctx, &usage, &entry)
	if err != nil {
		return nil, err
	}

	e.logger.Info("lifeline used",
		"player_id", player.ID,
		"kind", kind,
		"target_player_id", targetPlayerID,
		"remaining", remaining,
	)
	if e.publisher != nil {
		e.publisher.Publish(entry)
	}
	if e.notifier != nil {
		e.notifier.LifelineUsed(sessionID, kind, player.ID)
	}
	e.touchPresence(ctx, player.ID, sessionID)

	result := &LifelineResult{Kind: kind, Remaining: remaining}
	switch kind {
	case domain.LifelineSnitch:
		details, err := e.GetTopPlayersDetails(ctx, sessionID, e.game.TopPlayersLimit, e.game.RecentActions)
		if err != nil {
			return nil, err
		}
		result.Snitch = details
	case domain.LifelineSabotage:
		outcome, err := e.applySabotage(ctx, player.ID, targetPlayerID, sessionID)
		if err != nil {
			return nil, err
		}
		result.Sabotage = outcome
	case domain.LifelineBoost:
		if err := e.store.ArmBoost(ctx, player.ID, sessionID); err != nil {
			return nil, err
		}
		result.BoostArmed = true
	case domain.LifelineIntel:
		challenge, err := e.store.UnsolvedHintChallenge(ctx, player.ID, sessionID)
		if err != nil {
			return nil, err
		}
		result.Intel = &IntelResult{
			ChallengeID: challenge.ID,
			Title:       challenge.Title,
			Hint:        challenge.Hint,
		}
	}
	return result, nil
}

// SabotagePlayer is the targeted form of UseLifeline for the sabotage
// kind
func (e *Engine) SabotagePlayer(ctx context.Context, actor Actor, sessionID, targetPlayerID string) (*LifelineResult, error) {
	return e.UseLifeline(ctx, actor, sessionID, domain.LifelineSabotage, targetPlayerID)
}

// applySabotage deducts a configured percentage of the target's
// points, floored at zero. A zero-point target yields a logged no-op.
func (e *Engine) applySabotage(ctx context.Context, actorID, targetPlayerID, sessionID string) (*SabotageOutcome, error) {
	entry := domain.ActionLogEntry{
		PlayerID:  targetPlayerID,
		SessionID: sessionID,
		Kind:      domain.ActionUsedLifeline,
		Result:    domain.ResultNeutral,
		Target:    actorID,
		Metadata:  domain.Metadata{"lifeline": string(domain.LifelineSabotage), "sabotaged_by": actorID},
	}
	lost, newPoints, err := e.store.ApplySabotageEffect(ctx, targetPlayerID, sessionID, e.game.SabotagePercent, &entry)
	if err != nil {
		return nil, err
	}

	e.afterScoreChange(ctx, sessionID, targetPlayerID, newPoints, entry)
	return &SabotageOutcome{
		TargetPlayerID: targetPlayerID,
		PointsLost:     lost,
		TargetPoints:   newPoints,
	}, nil
}

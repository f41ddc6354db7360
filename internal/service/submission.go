package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cipher-arena/internal/domain"
)

// SubmissionResult reports the outcome of a challenge submission
type SubmissionResult struct {
	Correct          bool `json:"correct"`
	AlreadyCompleted bool `json:"already_completed"`
	PointsAwarded    int  `json:"points_awarded"`
	TotalPoints      int  `json:"total_points"`
	Streak           int  `json:"streak"`
	BoostConsumed    bool `json:"boost_consumed"`
}

// SubmitChallenge verifies an answer against the challenge solution
// and credits points on first success. Completion is idempotent: a
// repeat submission of an already-solved challenge is a read-only
// no-op regardless of the answer given. A write conflict surfaces as
// ErrConcurrentModification; the caller decides whether to resubmit.
func (e *Engine) SubmitChallenge(ctx context.Context, actor Actor, sessionID, challengeID, answer string) (*SubmissionResult, error) {
	player, rec, err := e.resolveActor(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	challenge, err := e.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.SessionID != sessionID || !challenge.IsActive {
		return nil, domain.ErrChallengeNotFound
	}

	completed, err := e.store.HasCompleted(ctx, player.ID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("checking completion: %w", err)
	}
	if completed {
		return &SubmissionResult{
			Correct:          true,
			AlreadyCompleted: true,
			TotalPoints:      rec.Points,
			Streak:           rec.Streak,
		}, nil
	}

	if !challenge.CheckAnswer(answer) {
		rec.Streak = 0
		entry := domain.ActionLogEntry{
			PlayerID:  player.ID,
			SessionID: sessionID,
			Kind:      domain.ActionSubmittedAnswer,
			Result:    domain.ResultFailed,
			Target:    challengeID,
			Metadata:  domain.Metadata{"challenge_title": challenge.Title},
		}
		if err := e.store.ApplySubmission(ctx, rec, &entry); err != nil {
			return nil, err
		}
		if e.publisher != nil {
			e.publisher.Publish(entry)
		}
		return &SubmissionResult{TotalPoints: rec.Points}, nil
	}

	award := challenge.Points
	boosted := rec.BoostArmed
	if boosted {
		award *= 2
		rec.BoostArmed = false
	}
	rec.Points += award
	rec.RoundPoints.Add(challenge.Round, award)
	rec.Streak++
	rec.LastActiveAt = time.Now()

	entry := domain.ActionLogEntry{
		PlayerID:    player.ID,
		SessionID:   sessionID,
		Kind:        domain.ActionCompletedChallenge,
		Result:      domain.ResultSuccess,
		Target:      challengeID,
		PointsDelta: award,
		Metadata: domain.Metadata{
			"challenge_title": challenge.Title,
			"round":           string(challenge.Round),
			"streak":          rec.Streak,
			"boost_applied":   boosted,
		},
	}
	if err := e.store.ApplySubmission(ctx, rec, &entry); err != nil {
		return nil, err
	}

	e.logger.Info("challenge completed",
		"player_id", player.ID,
		"challenge_id", challengeID,
		"points_awarded", award,
		"boosted", boosted,
	)
	e.afterScoreChange(ctx, sessionID, player.ID, rec.Points, entry)

	return &SubmissionResult{
		Correct:       true,
		PointsAwarded: award,
		TotalPoints:   rec.Points,
		Streak:        rec.Streak,
		BoostConsumed: boosted,
	}, nil
}

// HintResult carries the purchased hint and the post-debit balance
type HintResult struct {
	ChallengeID string `json:"challenge_id"`
	Hint        string `json:"hint"`
	Cost        int    `json:"cost"`
	Balance     int    `json:"balance"`
}

// GetHint sells the player a hint for a fixed point cost. With no
// challenge given, the oldest unsolved challenge carrying a hint is
// chosen. The debit only commits when the balance covers the cost.
func (e *Engine) GetHint(ctx context.Context, actor Actor, sessionID, challengeID string) (*HintResult, error) {
	player, _, err := e.resolveActor(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}

	var challenge *domain.Challenge
	if challengeID != "" {
		challenge, err = e.store.GetChallenge(ctx, challengeID)
		if err != nil {
			return nil, err
		}
		if challenge.SessionID != sessionID || !challenge.IsActive || challenge.Hint == "" {
			return nil, domain.ErrChallengeNotFound
		}
	} else {
		challenge, err = e.store.UnsolvedHintChallenge(ctx, player.ID, sessionID)
		if err != nil {
			return nil, err
		}
	}

	cost := e.game.HintCost
	entry := domain.ActionLogEntry{
		PlayerID:    player.ID,
		SessionID:   sessionID,
		Kind:        domain.ActionUsedHint,
		Result:      domain.ResultNeutral,
		Target:      challenge.ID,
		PointsDelta: -cost,
		Metadata:    domain.Metadata{"challenge_title": challenge.Title, "cost": cost},
	}
	balance, err := e.store.ApplyHintDebit(ctx, player.ID, sessionID, cost, &entry)
	if err != nil {
		return nil, err
	}

	e.afterScoreChange(ctx, sessionID, player.ID, balance, entry)
	e.touchPresence(ctx, player.ID, sessionID)

	return &HintResult{
		ChallengeID: challenge.ID,
		Hint:        challenge.Hint,
		Cost:        cost,
		Balance:     balance,
	}, nil
}

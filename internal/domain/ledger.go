package domain

import "time"

// ActionKind categorizes ledger entries
type ActionKind string

const (
	ActionSubmittedAnswer    ActionKind = "submitted_answer"
	ActionCompletedChallenge ActionKind = "completed_challenge"
	ActionUsedHint           ActionKind = "used_hint"
	ActionUsedLifeline       ActionKind = "used_lifeline"
)

// ActionResult is the outcome recorded with a ledger entry
type ActionResult string

const (
	ResultSuccess ActionResult = "success"
	ResultFailed  ActionResult = "failed"
	ResultNeutral ActionResult = "neutral"
)

// Metadata is the open key/value bag attached to ledger and usage
// records. Values are restricted to JSON primitives by convention so
// the audit trail stays machine-checkable.
type Metadata map[string]any

// ActionLogEntry is one immutable row of the append-only score ledger.
// The ledger is the sole source of truth for completion idempotence
// and the audit trail for reconciling points.
type ActionLogEntry struct {
	ID          string       `json:"id"`
	PlayerID    string       `json:"player_id"`
	SessionID   string       `json:"session_id"`
	Kind        ActionKind   `json:"kind"`
	Result      ActionResult `json:"result"`
	Target      string       `json:"target,omitempty"`
	PointsDelta int          `json:"points_delta"`
	Metadata    Metadata     `json:"metadata,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

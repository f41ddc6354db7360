package domain

import "time"

// PlayerStatus represents a player's presence state
type PlayerStatus string

const (
	StatusOnline  PlayerStatus = "online"
	StatusAway    PlayerStatus = "away"
	StatusOffline PlayerStatus = "offline"
)

// Player represents a registered competitor. The external ID is the
// stable subject supplied by the identity provider; the handle is
// assigned once during onboarding and is immutable afterwards.
type Player struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"-"`
	Handle     string    `json:"handle,omitempty"`
	Email      string    `json:"email,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PlayerRecord holds a player's score state for one game session.
// Version increments on every write; updates are conditioned on it.
type PlayerRecord struct {
	PlayerID     string       `json:"player_id"`
	SessionID    string       `json:"session_id"`
	Points       int          `json:"points"`
	Lifelines    Inventory    `json:"lifelines"`
	Streak       int          `json:"streak"`
	RoundPoints  RoundPoints  `json:"round_points"`
	BoostArmed   bool         `json:"boost_armed"`
	Status       PlayerStatus `json:"status"`
	LastActiveAt time.Time    `json:"last_active_at"`
	Version      int64        `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// RoundPoints is the per-round breakdown of a player's total
type RoundPoints struct {
	Round1 int `json:"round_1"`
	Round2 int `json:"round_2"`
	Round3 int `json:"round_3"`
}

// Total sums the per-round breakdown
func (rp RoundPoints) Total() int {
	return rp.Round1 + rp.Round2 + rp.Round3
}

// Add credits points to the breakdown slot for the given round
func (rp *RoundPoints) Add(round Round, points int) {
	switch round {
	case Round1:
		rp.Round1 += points
	case Round2:
		rp.Round2 += points
	case Round3:
		rp.Round3 += points
	}
}

// NewPlayerRecord returns a record with the default lifeline inventory
func NewPlayerRecord(playerID, sessionID string, inventory Inventory) *PlayerRecord {
	now := time.Now()
	return &PlayerRecord{
		PlayerID:     playerID,
		SessionID:    sessionID,
		Lifelines:    inventory.Clone(),
		Status:       StatusOnline,
		LastActiveAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

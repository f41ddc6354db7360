package domain

import "time"

// Round is one of the fixed ordered competition phases within a session
type Round string

const (
	Round1 Round = "round_1"
	Round2 Round = "round_2"
	Round3 Round = "round_3"
)

// Valid reports whether r is a known round
func (r Round) Valid() bool {
	switch r {
	case Round1, Round2, Round3:
		return true
	}
	return false
}

// Next returns the round following r. The last round returns itself.
func (r Round) Next() Round {
	switch r {
	case Round1:
		return Round2
	case Round2:
		return Round3
	}
	return Round3
}

// GameSession is one bounded competition instance. Sessions are never
// deleted, only deactivated; at most one is treated as current.
type GameSession struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CurrentRound Round      `json:"current_round"`
	CurrentPhase string     `json:"current_phase,omitempty"`
	IsActive     bool       `json:"is_active"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

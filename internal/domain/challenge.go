package domain

import (
	"strings"
	"time"
)

// Challenge is a puzzle worth a fixed number of points. The canonical
// solution is compared case-insensitively after trimming; there is no
// partial credit.
type Challenge struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Round       Round     `json:"round"`
	Points      int       `json:"points"`
	Solution    string    `json:"-"`
	Hint        string    `json:"-"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeAnswer trims surrounding whitespace and case-folds an answer
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// CheckAnswer reports whether the submitted answer matches the solution
func (c *Challenge) CheckAnswer(answer string) bool {
	return NormalizeAnswer(answer) == NormalizeAnswer(c.Solution)
}

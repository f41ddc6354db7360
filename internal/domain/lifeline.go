package domain

import "time"

// LifelineKind identifies one of the limited-use special actions
type LifelineKind string

const (
	LifelineSnitch   LifelineKind = "snitch"
	LifelineSabotage LifelineKind = "sabotage"
	LifelineBoost    LifelineKind = "boost"
	LifelineIntel    LifelineKind = "intel"
)

// maxCharges is the per-kind charge ceiling. Inventories never exceed
// these and never drop below zero.
var maxCharges = map[LifelineKind]int{
	LifelineSnitch:   2,
	LifelineSabotage: 1,
	LifelineBoost:    1,
	LifelineIntel:    3,
}

// Valid reports whether k is a known lifeline kind
func (k LifelineKind) Valid() bool {
	_, ok := maxCharges[k]
	return ok
}

// MaxCharges returns the charge ceiling for a lifeline kind
func (k LifelineKind) MaxCharges() int {
	return maxCharges[k]
}

// RequiresTarget reports whether the kind acts on another player
func (k LifelineKind) RequiresTarget() bool {
	return k == LifelineSabotage
}

// Inventory maps lifeline kinds to remaining-use counts
type Inventory map[LifelineKind]int

// DefaultInventory is the inventory every record starts with
func DefaultInventory() Inventory {
	inv := make(Inventory, len(maxCharges))
	for kind, max := range maxCharges {
		inv[kind] = max
	}
	return inv
}

// Remaining returns the charge count for a kind, zero if absent
func (inv Inventory) Remaining(kind LifelineKind) int {
	return inv[kind]
}

// Clone returns an independent copy of the inventory
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for kind, count := range inv {
		out[kind] = count
	}
	return out
}

// LifelineUsage is the immutable record of one lifeline invocation
type LifelineUsage struct {
	ID             string       `json:"id"`
	PlayerID       string       `json:"player_id"`
	SessionID      string       `json:"session_id"`
	Kind           LifelineKind `json:"kind"`
	TargetPlayerID string       `json:"target_player_id,omitempty"`
	Metadata       Metadata     `json:"metadata,omitempty"`
	UsedAt         time.Time    `json:"used_at"`
}

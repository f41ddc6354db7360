package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifelineKinds(t *testing.T) {
	tests := []struct {
		kind           LifelineKind
		maxCharges     int
		requiresTarget bool
	}{
		{LifelineSnitch, 2, false},
		{LifelineSabotage, 1, true},
		{LifelineBoost, 1, false},
		{LifelineIntel, 3, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.True(t, tt.kind.Valid())
			assert.Equal(t, tt.maxCharges, tt.kind.MaxCharges())
			assert.Equal(t, tt.requiresTarget, tt.kind.RequiresTarget())
		})
	}
}

func TestLifelineKindInvalid(t *testing.T) {
	assert.False(t, LifelineKind("teleport").Valid())
	assert.False(t, LifelineKind("").Valid())
}

func TestDefaultInventory(t *testing.T) {
	inv := DefaultInventory()

	assert.Equal(t, 2, inv.Remaining(LifelineSnitch))
	assert.Equal(t, 1, inv.Remaining(LifelineSabotage))
	assert.Equal(t, 1, inv.Remaining(LifelineBoost))
	assert.Equal(t, 3, inv.Remaining(LifelineIntel))
	assert.Equal(t, 0, inv.Remaining(LifelineKind("teleport")))
}

func TestInventoryClone(t *testing.T) {
	inv := DefaultInventory()
	clone := inv.Clone()

	clone[LifelineIntel] = 0

	assert.Equal(t, 3, inv.Remaining(LifelineIntel))
	assert.Equal(t, 0, clone.Remaining(LifelineIntel))
}

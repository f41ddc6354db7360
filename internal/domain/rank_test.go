package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standingsFor(points ...int) []Standing {
	out := make([]Standing, len(points))
	for i, p := range points {
		out[i] = Standing{PlayerID: string(rune('a' + i)), Points: p}
	}
	return out
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
	assert.Empty(t, Rank([]Standing{}))
}

func TestRankDistinctPoints(t *testing.T) {
	ranked := Rank(standingsFor(100, 80, 50))

	require.Len(t, ranked, 3)
	for i, want := range []int{1, 2, 3} {
		assert.Equal(t, want, ranked[i].Rank)
		assert.False(t, ranked[i].Tied)
	}
}

func TestRankTiesSkipFollowingRanks(t *testing.T) {
	ranked := Rank(standingsFor(100, 100, 80, 80, 50))

	require.Len(t, ranked, 5)
	wantRanks := []int{1, 1, 3, 3, 5}
	wantTied := []bool{true, true, true, true, false}
	for i := range ranked {
		assert.Equal(t, wantRanks[i], ranked[i].Rank, "position %d", i)
		assert.Equal(t, wantTied[i], ranked[i].Tied, "position %d", i)
	}
}

func TestRankAllTied(t *testing.T) {
	ranked := Rank(standingsFor(10, 10, 10))

	for _, r := range ranked {
		assert.Equal(t, 1, r.Rank)
		assert.True(t, r.Tied)
	}
}

func TestRankThreeWayTieThenNext(t *testing.T) {
	ranked := Rank(standingsFor(50, 50, 50, 20))

	require.Len(t, ranked, 4)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1, ranked[2].Rank)
	assert.Equal(t, 4, ranked[3].Rank)
	assert.False(t, ranked[3].Tied)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	standings := standingsFor(30, 20)
	_ = Rank(standings)

	assert.Equal(t, 30, standings[0].Points)
	assert.Equal(t, 20, standings[1].Points)
}

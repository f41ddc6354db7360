package domain

// Standing is one unranked row of a session's score snapshot
type Standing struct {
	PlayerID string       `json:"player_id"`
	Handle   string       `json:"handle,omitempty"`
	Points   int          `json:"points"`
	Status   PlayerStatus `json:"status"`
}

// RankedPlayer is a standing with its competition rank assigned
type RankedPlayer struct {
	Standing
	Rank int  `json:"rank"`
	Tied bool `json:"tied"`
}

// Rank assigns competition ("1224") ranks to standings sorted by
// points descending: tied players share a rank number and the next
// distinct point value skips by the size of the tie group. Standings
// must already be ordered by points descending; the input is not
// mutated.
func Rank(standings []Standing) []RankedPlayer {
	ranked := make([]RankedPlayer, 0, len(standings))

	currentRank := 1
	atCurrentRank := 0
	for i, s := range standings {
		if i > 0 && s.Points < standings[i-1].Points {
			currentRank += atCurrentRank
			atCurrentRank = 0
		}
		atCurrentRank++
		ranked = append(ranked, RankedPlayer{Standing: s, Rank: currentRank})
	}

	markTies(ranked)
	return ranked
}

// markTies flags every player whose point value is shared by at least
// one other player
func markTies(ranked []RankedPlayer) {
	counts := make(map[int]int, len(ranked))
	for _, r := range ranked {
		counts[r.Points]++
	}
	for i := range ranked {
		ranked[i].Tied = counts[ranked[i].Points] > 1
	}
}

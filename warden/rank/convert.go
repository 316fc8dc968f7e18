package rank

import (
	"slices"

	"github.com/samber/lo"
)

// rolesToRanks maps external role IDs to in-game ranks. It is rebuilt by InitializeRanks.
var rolesToRanks = make(map[string]Rank)

// RolesToRanks converts a slice of external role IDs into a sorted slice of in-game ranks. Player is always
// included.
func RolesToRanks(roles []string) []Rank {
	ranks := lo.Uniq(append(lo.FilterMap(roles, func(role string, _ int) (Rank, bool) {
		r, ok := rolesToRanks[role]
		return r, ok
	}), Player))
	slices.Sort(ranks)
	return ranks
}

// HighestRank returns the highest rank of a player based on their roles.
func HighestRank(roles []string) Rank {
	return lo.Max(RolesToRanks(roles))
}

// Package session holds per-player state that outlives a single world transaction, such as the ranks
// fetched from the role API.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/df-mc/atomic"

	"github.com/smell-of-curry/warden/warden/rank"
)

// Ranks represents a struct to manage player ranks and rank fetching times.
type Ranks struct {
	rankMu sync.Mutex
	ranks  []rank.Rank

	lastRankFetch atomic.Value[time.Time]
}

// NewRanks returns Ranks holding only the Player rank.
func NewRanks() *Ranks {
	r := &Ranks{
		ranks: []rank.Rank{rank.Player},
	}
	r.lastRankFetch.Store(time.Time{})
	return r
}

// SetRanks updates the player's ranks and sorts them in ascending order, so that the highest rank is always
// last.
func (r *Ranks) SetRanks(ranks []rank.Rank) {
	sorted := slices.Clone(ranks)
	slices.Sort(sorted)

	r.rankMu.Lock()
	r.ranks = sorted
	r.rankMu.Unlock()
}

// HighestRank returns the players highest rank.
func (r *Ranks) HighestRank() rank.Rank {
	r.rankMu.Lock()
	defer r.rankMu.Unlock()
	if len(r.ranks) == 0 {
		return rank.Player
	}
	return r.ranks[len(r.ranks)-1]
}

// Ranks returns a copy of the players ranks.
func (r *Ranks) Ranks() []rank.Rank {
	r.rankMu.Lock()
	defer r.rankMu.Unlock()
	return slices.Clone(r.ranks)
}

// HasRankOrHigher checks if the player has the specified rank or a higher one.
func (r *Ranks) HasRankOrHigher(ra rank.Rank) bool {
	return r.HighestRank() >= ra
}

// LastRankFetch returns the last time the rank was fetched.
func (r *Ranks) LastRankFetch() time.Time {
	return r.lastRankFetch.Load()
}

// SetLastRankFetch sets the last time the rank was fetched.
func (r *Ranks) SetLastRankFetch(t time.Time) {
	r.lastRankFetch.Store(t)
}

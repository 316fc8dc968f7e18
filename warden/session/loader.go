package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/rank"
)

// RoleSource returns the external roles of a player.
type RoleSource interface {
	RolesOfXUID(ctx context.Context, xuid string) ([]string, error)
}

// Loader fetches the ranks of players on a bounded number of goroutines.
type Loader struct {
	log   *slog.Logger
	host  game.Host
	roles RoleSource

	pool *pool.Pool
	// minInterval is the minimum time between two fetches for the same Ranks.
	minInterval time.Duration
	now         func() time.Time
}

// NewLoader returns a Loader running at most concurrency fetches at once. roles may be nil, in which case
// every player keeps the Player rank.
func NewLoader(log *slog.Logger, host game.Host, roles RoleSource, concurrency int, minInterval time.Duration) *Loader {
	return &Loader{
		log:         log,
		host:        host,
		roles:       roles,
		pool:        pool.New().WithMaxGoroutines(max(concurrency, 1)),
		minInterval: minInterval,
		now:         time.Now,
	}
}

// Load fetches the roles of the player and stores the resulting ranks in r. Once stored, apply is called
// on the world goroutine if the player is still connected. Load blocks while the maximum number of fetches
// is in flight and must therefore not be called on the world goroutine.
func (l *Loader) Load(id uuid.UUID, xuid string, r *Ranks, apply func(v game.View, s game.Session, highest rank.Rank)) {
	if l.roles == nil {
		return
	}
	now := l.now()
	if last := r.LastRankFetch(); !last.IsZero() && now.Sub(last) < l.minInterval {
		return
	}
	r.SetLastRankFetch(now)

	l.pool.Go(func() {
		roles, err := l.roles.RolesOfXUID(context.Background(), xuid)
		if err != nil {
			l.log.Debug("failed to fetch roles", "xuid", xuid, "error", err)
			r.SetRanks([]rank.Rank{rank.Player})
			<-l.host.Exec(func(v game.View) {
				if s, ok := v.Session(id); ok {
					s.Message(rank.RolesError(err))
				}
			})
			return
		}

		r.SetRanks(rank.RolesToRanks(roles))
		highest := r.HighestRank()
		<-l.host.Exec(func(v game.View) {
			s, ok := v.Session(id)
			if !ok {
				return
			}
			s.Message(locale.Translate("rank.synced", "rank", highest.Name()))
			if apply != nil {
				apply(v, s, highest)
			}
		})
	})
}

// Close waits for every fetch in flight.
func (l *Loader) Close() {
	l.pool.Wait()
}

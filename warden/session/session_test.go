package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/game/gametest"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/rank"
)

func TestMain(m *testing.M) {
	if err := locale.Load(language.English, strings.NewReader(`
rank.synced=synced {rank}
rank.error.unlinked=not linked
rank.error.unknown=failed: {error}
`)); err != nil {
		panic(err)
	}
	rank.InitializeRanks(&rank.Config{ModeratorRoleID: "mod", AdminRoleID: "admin"})
	m.Run()
}

type roles map[string][]string

func (r roles) RolesOfXUID(_ context.Context, xuid string) ([]string, error) {
	if v, ok := r[xuid]; ok {
		return v, nil
	}
	return nil, rank.ErrUserNotFound
}

func TestRanks(t *testing.T) {
	r := NewRanks()
	assert.Equal(t, rank.Player, r.HighestRank())

	r.SetRanks([]rank.Rank{rank.Admin, rank.Player, rank.Helper})
	assert.Equal(t, []rank.Rank{rank.Player, rank.Helper, rank.Admin}, r.Ranks())
	assert.True(t, r.HasRankOrHigher(rank.Moderator))
	assert.False(t, r.HasRankOrHigher(rank.Owner))

	r.SetRanks(nil)
	assert.Equal(t, rank.Player, r.HighestRank())
}

func TestLoader(t *testing.T) {
	host := gametest.NewHost()
	steve := host.Join("Steve", "10.0.0.1")
	alex := host.Join("Alex", "10.0.0.2")
	l := NewLoader(slog.Default(), host, roles{"1": {"mod", "admin"}}, 2, time.Minute)

	var (
		mu      sync.Mutex
		applied []rank.Rank
	)
	apply := func(_ game.View, s game.Session, highest rank.Rank) {
		mu.Lock()
		applied = append(applied, highest)
		mu.Unlock()
	}

	steveRanks, alexRanks := NewRanks(), NewRanks()
	l.Load(steve.UUID(), "1", steveRanks, apply)
	l.Load(alex.UUID(), "2", alexRanks, apply)
	l.Close()

	assert.Equal(t, rank.Admin, steveRanks.HighestRank())
	assert.Equal(t, []string{"synced Admin"}, steve.Lines())
	assert.Equal(t, rank.Player, alexRanks.HighestRank())
	assert.Equal(t, []string{"not linked"}, alex.Lines())
	assert.Equal(t, []rank.Rank{rank.Admin}, applied)
	assert.False(t, steveRanks.LastRankFetch().IsZero())
}

type counting struct {
	mu    sync.Mutex
	calls int
}

func (c *counting) RolesOfXUID(context.Context, string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, errors.New("unavailable")
}

func TestLoaderMinInterval(t *testing.T) {
	host := gametest.NewHost()
	steve := host.Join("Steve", "10.0.0.1")
	src := &counting{}
	l := NewLoader(slog.Default(), host, src, 1, time.Minute)

	r := NewRanks()
	l.Load(steve.UUID(), "1", r, nil)
	l.Load(steve.UUID(), "1", r, nil)
	l.Close()

	assert.Equal(t, 1, src.calls, "fetches within the interval are skipped")
	require.Len(t, steve.Messages(), 1)
	assert.Equal(t, "failed: unavailable", steve.Lines()[0])
}

func TestLoaderWithoutSource(t *testing.T) {
	l := NewLoader(slog.Default(), gametest.NewHost(), nil, 1, 0)
	r := NewRanks()
	l.Load(game.Profile{}.UUID, "1", r, nil)
	l.Close()
	assert.True(t, r.LastRankFetch().IsZero())
}

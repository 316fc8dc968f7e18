package command

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/smell-of-curry/warden/warden/banlist"
	"github.com/smell-of-curry/warden/warden/cache"
	"github.com/smell-of-curry/warden/warden/freeze"
	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/game/gametest"
	"github.com/smell-of-curry/warden/warden/hook"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/report"
	"github.com/smell-of-curry/warden/warden/store"
)

func TestMain(m *testing.M) {
	if err := locale.Load(language.English, strings.NewReader(`
command.unknown_player={target} has never played here
command.lookup_failed=could not look up {target}
punishment.mute.confirm=muted {target} [{id}]
punishment.ban.confirm=banned {target} [{id}]
punishment.mute.notice=muted for {time}: {reason}
punishment.mute.lifted=unmuted by {actor}
punishment.lift.confirm=lifted {kind} of {target}
report.submitted=report {id} submitted
`)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type presenter struct{}

func (presenter) Present(game.Session, report.Page) {}

type fixture struct {
	deps  *Deps
	host  *gametest.Host
	db    *store.SQLite
	cache *cache.Manager
	bans  *banlist.List
	orch  *punishment.Orchestrator
}

func newFixture(t *testing.T) fixture {
	dir := t.TempDir()
	db, err := store.OpenSQLite(filepath.Join(dir, "warden.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	bans, err := banlist.New(filepath.Join(dir, "bans.json"))
	require.NoError(t, err)

	f := fixture{host: gametest.NewHost(), db: db, cache: cache.NewManager(), bans: bans}
	hooks := hook.NewRunner(slog.Default())
	registry := NewRegistry()
	f.orch = punishment.NewOrchestrator(slog.Default(), punishment.Config{}, punishment.Deps{
		Host:      f.host,
		Store:     db,
		Cache:     f.cache,
		Freezer:   freeze.NewManager(slog.Default(), f.host, hooks, freeze.Config{}),
		Bans:      bans,
		Hooks:     hooks,
		Commands:  registry,
		Durations: punishment.NewDurations(punishment.DefaultUnits()),
	})
	f.deps = &Deps{
		Log:         slog.Default(),
		Host:        f.host,
		Punishments: f.orch,
		Reports:     report.NewEngine(slog.Default(), f.host, db, db, presenter{}, report.Config{}),
		Players:     db,
	}
	t.Cleanup(f.wait)
	return f
}

// wait waits for lookups first, as they may start issuances.
func (f fixture) wait() {
	f.deps.Close()
	f.orch.Close()
	f.deps.Reports.Close()
}

func (f fixture) do(fn func(v game.View)) {
	<-f.host.Exec(fn)
}

func TestPunishOnlineAndOffline(t *testing.T) {
	f := newFixture(t)
	mod := f.host.Join("Mod", "10.0.0.1")
	steve := f.host.Join("Steve", "10.0.0.2")
	alex := game.Profile{UUID: uuid.New(), Name: "Alex"}
	require.NoError(t, f.db.RecordPlayer(t.Context(), alex, "10.0.0.9"))

	mute := punisher{kind: punishment.Mute, deps: f.deps}
	ban := punisher{kind: punishment.Ban, deps: f.deps}
	f.do(func(v game.View) {
		mute.request(v, mod, "steve", "10m", "", nil)
		ban.request(v, mod, "ALEX", "permanent", "griefing", nil)
		ban.request(v, mod, "Nobody", "1d", "", nil)
	})
	f.wait()

	assert.True(t, f.cache.Active(cache.Mute, steve.UUID()))
	assert.Contains(t, steve.Lines(), "muted for 10m: No reason provided")

	e, ok := f.bans.Lookup(alex.UUID, "Alex", "")
	require.True(t, ok, "offline players are resolved through the directory")
	assert.Equal(t, "griefing", e.Reason)

	assert.Contains(t, mod.Lines(), "Nobody has never played here")
}

func TestLift(t *testing.T) {
	f := newFixture(t)
	mod := f.host.Join("Mod", "10.0.0.1")
	steve := f.host.Join("Steve", "10.0.0.2")
	f.cache.Set(cache.Mute, steve.UUID(), punishment.Forever)

	f.do(func(v game.View) {
		Lift{Target: "Steve", kind: punishment.Mute, deps: f.deps}.lift(v, mod)
	})
	f.wait()
	assert.False(t, f.cache.Active(cache.Mute, steve.UUID()))
	assert.Contains(t, steve.Lines(), "unmuted by Mod")
	assert.Contains(t, mod.Lines(), "lifted mute of Steve")
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	alex := f.host.Join("Alex", "10.0.0.1")
	f.host.Join("Steve", "10.0.0.2")
	r := Report{deps: f.deps}

	f.do(func(v game.View) { r.report(v, alex, "", "") })
	d, ok := f.deps.Reports.Draft(alex.UUID())
	require.True(t, ok)
	assert.Equal(t, report.StateBrowsing, d.State)

	f.do(func(v game.View) { r.report(v, alex, "Steve", "") })
	d, ok = f.deps.Reports.Draft(alex.UUID())
	require.True(t, ok)
	assert.Equal(t, report.StateChoosingCategory, d.State)
	assert.Equal(t, "Steve", d.TargetName)

	f.deps.Reports.Cancel(alex.UUID())
	f.do(func(v game.View) { r.report(v, alex, "steve", " flying ") })
	f.wait()

	pending, err := f.db.Reports(t.Context(), report.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "flying", pending[0].Reason)
	assert.Equal(t, "Direct", pending[0].Category)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Add("ban", "b")
	assert.True(t, r.Owns("BAN"))
	assert.True(t, r.Owns("/b"))
	assert.False(t, r.Owns("tempban"))
}

package punishment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/warden/warden/cache"
	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/game/gametest"
)

func TestIssueLocalMute(t *testing.T) {
	f := newFixture(t, Config{})
	mod := f.host.Join("Mod", "10.0.0.1")
	x := f.host.Join("X", "10.0.0.2")

	res := f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Mute, Duration: "10m", Reason: "spam"})
	require.NoError(t, res.Err)
	require.NotEmpty(t, res.ID)

	recs := f.store.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, f.now.UnixMilli()+600_000, recs[0].EndTime)
	assert.Equal(t, "10m", recs[0].DurationLabel)
	assert.Equal(t, "Mod", recs[0].Actor)
	assert.False(t, recs[0].ByIP)

	until, ok := f.cache.Until(cache.Mute, x.UUID())
	require.True(t, ok)
	assert.Equal(t, recs[0].EndTime, until)
	assert.True(t, f.cache.Active(cache.Mute, x.UUID()))

	assert.True(t, contains(x.Messages(), "spam"))
	assert.True(t, contains(mod.Messages(), "muted X ["+res.ID+"]"))
	assert.Equal(t, 1, mod.Confirms())
}

func TestIssuePersistenceFailureLeavesNoState(t *testing.T) {
	for _, k := range []Kind{Ban, Mute, Kick, Softban, Freeze} {
		t.Run(k.String(), func(t *testing.T) {
			f := newFixture(t, Config{})
			f.store.fail = true
			mod := f.host.Join("Mod", "10.0.0.1")
			x := f.host.Join("X", "10.0.0.2")

			res := f.issue(Request{Actor: mod, Target: x.Profile(), Kind: k, Duration: "1h", Reason: "r"})
			assert.ErrorIs(t, res.Err, ErrPersistence)
			assert.Empty(t, res.ID)

			for _, ck := range cache.Kinds() {
				assert.False(t, f.cache.Active(ck, x.UUID()))
			}
			assert.Empty(t, x.Messages())
			assert.Empty(t, x.Disconnects())
			assert.False(t, x.Immobile())
			assert.Empty(t, f.bans.bans)
			assert.True(t, contains(mod.Messages(), "persistence"))
		})
	}
}

func TestIssueValidation(t *testing.T) {
	t.Run("offline local kick", func(t *testing.T) {
		f := newFixture(t, Config{})
		mod := f.host.Join("Mod", "10.0.0.1")
		res := f.issue(Request{Actor: mod, Target: game.Profile{Name: "Gone"}, Kind: Kick})
		assert.ErrorIs(t, res.Err, ErrTargetOffline)
		assert.Empty(t, f.store.Records())
		assert.True(t, contains(mod.Messages(), "offline Gone"))
	})
	t.Run("bypass", func(t *testing.T) {
		f := newFixture(t, Config{})
		mod := f.host.Join("Mod", "10.0.0.1")
		admin := f.host.Join("Admin", "10.0.0.2", Ban.BypassPermission())

		res := f.issue(Request{Actor: mod, Target: admin.Profile(), Kind: Ban})
		assert.ErrorIs(t, res.Err, ErrBypass)
		assert.Empty(t, f.store.Records())

		res = f.issue(Request{Actor: mod, Target: admin.Profile(), Kind: Mute, Duration: "1m"})
		assert.NoError(t, res.Err, "bypass is per kind")
	})
	t.Run("command loop", func(t *testing.T) {
		f := newFixture(t, Config{Kinds: map[Kind]KindConfig{
			Mute: {Command: "/mute {target} {time} {reason}"},
		}})
		mod := f.host.Join("Mod", "10.0.0.1")
		x := f.host.Join("X", "10.0.0.2")

		res := f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Mute, Duration: "1m"})
		assert.ErrorIs(t, res.Err, ErrCommandLoop)
		assert.Empty(t, f.store.Records())
		assert.Empty(t, mod.Commands())
	})
	t.Run("no command", func(t *testing.T) {
		f := newFixture(t, Config{Kinds: map[Kind]KindConfig{Ban: {Command: "  "}}})
		mod := f.host.Join("Mod", "10.0.0.1")
		res := f.issue(Request{Actor: mod, Target: game.Profile{Name: "X"}, Kind: Ban})
		assert.ErrorIs(t, res.Err, ErrNoCommand)
	})
	t.Run("unresolved address", func(t *testing.T) {
		f := newFixture(t, Config{})
		mod := f.host.Join("Mod", "10.0.0.1")
		byIP := true
		offline := game.Profile{Name: "Gone"}

		res := f.issue(Request{Actor: mod, Target: offline, Kind: Ban, ByIP: &byIP})
		assert.ErrorIs(t, res.Err, ErrAddressUnresolved)
		assert.Empty(t, f.store.Records())
		assert.True(t, contains(mod.Messages(), "no address Gone"))
	})
}

func TestIssueDelegated(t *testing.T) {
	f := newFixture(t, Config{Kinds: map[Kind]KindConfig{
		Ban: {Command: "tempban {target} {time} {reason}", OnPunish: []string{"broadcast:{target} was banned"}},
	}})
	mod := f.host.Join("Mod", "10.0.0.1")
	x := f.host.Join("X", "10.0.0.2")

	res := f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Ban, Duration: "1d", Reason: "grief"})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"/tempban X 1d grief"}, mod.Commands())
	assert.Empty(t, f.bans.bans, "delegated punishments are applied by the command")
	assert.Empty(t, x.Disconnects())
	assert.True(t, contains(x.Messages(), "X was banned"))
}

func TestIssueDelegatedFromConsole(t *testing.T) {
	f := newFixture(t, Config{Kinds: map[Kind]KindConfig{
		Ban: {Command: "tempban {target} {time} {reason}", OnPunish: []string{"broadcast:{target} was banned"}},
	}})
	console := gametest.NewActor("CONSOLE")
	x := f.host.Join("X", "10.0.0.2")

	res := f.issue(Request{Actor: console, Target: x.Profile(), Kind: Ban, Duration: "1d", Reason: "grief"})
	assert.ErrorIs(t, res.Err, ErrConsoleDelegation)
	assert.Empty(t, f.store.Records(), "nothing is stored for a command that cannot run")
	assert.Empty(t, x.Messages(), "no hooks run")
	assert.True(t, contains(console.Lines(), "console ban tempban"))

	res = f.issue(Request{Actor: console, Target: x.Profile(), Kind: Mute, Duration: "1m"})
	assert.NoError(t, res.Err, "internal punishments may still be issued from the console")
}

func TestIssueIPBanPropagates(t *testing.T) {
	f := newFixture(t, Config{Kinds: map[Kind]KindConfig{Ban: {Internal: true, ByIP: true}}})
	mod := f.host.Join("Mod", "10.0.0.1")
	x := f.host.Join("X", "10.0.0.9")
	alt := f.host.Join("Alt", "10.0.0.9")
	other := f.host.Join("Other", "10.0.0.10")
	broken := f.host.Join("Broken", "not-an-ip")

	res := f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Ban, Reason: "alts"})
	require.NoError(t, res.Err)

	require.Len(t, f.bans.bans, 1, "the ban is registered once, for the target")
	assert.Equal(t, ban{target: x.UUID(), addr: "10.0.0.9", until: Forever}, f.bans.bans[0])
	assert.Equal(t, "10.0.0.9", f.store.info[res.ID])

	assert.Len(t, x.Disconnects(), 1, "the target is never affected twice")
	assert.Len(t, alt.Disconnects(), 1)
	assert.Empty(t, other.Disconnects())
	assert.Empty(t, broken.Disconnects())
	assert.Empty(t, mod.Disconnects())
	assert.Len(t, f.store.Records(), 1, "propagation does not persist")
}

func TestIssueIPMuteUsesLastKnownAddress(t *testing.T) {
	f := newFixture(t, Config{Kinds: map[Kind]KindConfig{Mute: {Internal: true, ByIP: true}}})
	mod := f.host.Join("Mod", "10.0.0.1")
	alt := f.host.Join("Alt", "10.0.0.9")
	offline := game.Profile{UUID: uuid.New(), Name: "X"}
	f.store.ips[offline.UUID] = "10.0.0.9"

	res := f.issue(Request{Actor: mod, Target: offline, Kind: Mute, Duration: "5m", Reason: "spam"})
	require.NoError(t, res.Err)

	assert.True(t, f.cache.Active(cache.Mute, offline.UUID))
	assert.True(t, f.cache.Active(cache.Mute, alt.UUID()))
	assert.False(t, f.cache.Active(cache.Mute, mod.UUID()))
	assert.True(t, contains(alt.Messages(), "spam"))
}

func TestIssueLocalScopeOverride(t *testing.T) {
	f := newFixture(t, Config{Kinds: map[Kind]KindConfig{Mute: {Internal: true, ByIP: true}}})
	mod := f.host.Join("Mod", "10.0.0.1")
	x := f.host.Join("X", "10.0.0.9")
	alt := f.host.Join("Alt", "10.0.0.9")
	local := false

	res := f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Mute, Duration: "5m", ByIP: &local})
	require.NoError(t, res.Err)
	assert.True(t, f.cache.Active(cache.Mute, x.UUID()))
	assert.False(t, f.cache.Active(cache.Mute, alt.UUID()))
}

func TestIssueSoftbanSnapshotsCommands(t *testing.T) {
	conf := Config{SoftbanCommands: []string{"tpa", "home"}}
	f := newFixture(t, conf)
	mod := f.host.Join("Mod", "10.0.0.1")
	x := f.host.Join("X", "10.0.0.2")

	require.NoError(t, f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Softban, Duration: "1h"}).Err)
	f.o.conf.SoftbanCommands[0] = "changed"
	assert.Equal(t, []string{"tpa", "home"}, f.cache.BlockedCommands(x.UUID()))
}

func TestIssueFreeze(t *testing.T) {
	f := newFixture(t, Config{Kinds: map[Kind]KindConfig{Freeze: {Internal: true, ByIP: true}}})
	mod := f.host.Join("Mod", "10.0.0.1")
	x := f.host.Join("X", "10.0.0.9")
	alt := f.host.Join("Alt", "10.0.0.9")

	require.NoError(t, f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Freeze, Reason: "check"}).Err)

	assert.True(t, f.cache.Active(cache.Freeze, x.UUID()))
	assert.True(t, f.cache.Active(cache.Freeze, alt.UUID()))
	assert.True(t, x.Immobile())
	assert.True(t, alt.Immobile())
	assert.True(t, f.freezer.frozen[x.UUID()], "the target chats with the actor")
	assert.False(t, f.freezer.frozen[alt.UUID()], "propagated sessions get no chat")
	assert.True(t, contains(x.Messages(), "frozen: check"))
}

func TestIssueKick(t *testing.T) {
	f := newFixture(t, Config{})
	console := gametest.NewActor("CONSOLE")
	x := f.host.Join("X", "10.0.0.2")

	res := f.issue(Request{Actor: console, Target: x.Profile(), Kind: Kick, Duration: "1h", Reason: "afk"})
	require.NoError(t, res.Err)
	assert.Equal(t, Forever, f.store.Records()[0].EndTime)
	require.Len(t, x.Disconnects(), 1)
	assert.Contains(t, x.Disconnects()[0], "kicked: afk")
	assert.False(t, f.host.Online(x.UUID()))
	assert.True(t, contains(console.Messages(), "kicked X"))
}

func TestLiftAndRestore(t *testing.T) {
	f := newFixture(t, Config{})
	mod := f.host.Join("Mod", "10.0.0.1")
	x := f.host.Join("X", "10.0.0.2")

	require.NoError(t, f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Mute, Duration: "1h"}).Err)
	require.NoError(t, f.issue(Request{Actor: mod, Target: x.Profile(), Kind: Freeze}).Err)

	f.cache.Reset()
	f.o.Restore(x.UUID())
	f.o.Close()
	assert.True(t, f.cache.Active(cache.Mute, x.UUID()))
	assert.True(t, f.cache.Active(cache.Freeze, x.UUID()))

	var c <-chan Result
	<-f.host.Exec(func(v game.View) {
		c = f.o.Lift(v, mod, Mute, x.Profile())
	})
	require.NoError(t, (<-c).Err)
	assert.False(t, f.cache.Active(cache.Mute, x.UUID()))
	assert.True(t, contains(x.Messages(), "unmuted by Mod"))
	assert.True(t, contains(mod.Messages(), "lifted mute of X"))

	<-f.host.Exec(func(v game.View) {
		c = f.o.Lift(v, mod, Kick, x.Profile())
	})
	assert.ErrorIs(t, (<-c).Err, ErrNotLiftable)

	f.cache.Reset()
	f.o.Restore(x.UUID())
	f.o.Close()
	assert.False(t, f.cache.Active(cache.Mute, x.UUID()), "revoked punishments are not restored")
}

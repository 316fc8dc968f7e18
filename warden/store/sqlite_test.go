package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/report"
)

func openTestSQLite(t *testing.T) *SQLite {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "warden.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLitePunishments(t *testing.T) {
	s := openTestSQLite(t)
	ctx := t.Context()
	now := time.Now()
	target := uuid.New()

	mute := punishment.Record{
		Target: target, TargetName: "Steve", Kind: punishment.Mute, Reason: "spam", Actor: "Mod",
		Created: now.UnixMilli(), EndTime: now.Add(10 * time.Minute).UnixMilli(), DurationLabel: "10m",
	}
	id, err := s.Execute(ctx, mute)
	require.NoError(t, err)
	assert.Len(t, id, 8)

	_, err = s.Execute(ctx, punishment.Record{
		Target: target, TargetName: "Steve", Kind: punishment.Kick, Reason: "bye", Actor: "Mod",
		Created: now.UnixMilli(), EndTime: now.Add(-time.Second).UnixMilli(),
	})
	require.NoError(t, err)
	ban, err := s.Execute(ctx, punishment.Record{
		Target: target, TargetName: "Steve", Kind: punishment.Ban, Reason: "grief", Actor: "Mod", ByIP: true,
		Created: now.UnixMilli(), EndTime: punishment.Forever, DurationLabel: "Permanent",
	})
	require.NoError(t, err)

	active, err := s.ActivePunishments(ctx, target, now)
	require.NoError(t, err)
	require.Len(t, active, 2)
	mute.ID = id
	assert.Equal(t, mute, active[0])
	assert.Equal(t, ban, active[1].ID)
	assert.True(t, active[1].ByIP)
	assert.True(t, active[1].Permanent())

	require.NoError(t, s.Revoke(ctx, target, punishment.Mute, "Admin", now))
	active, err = s.ActivePunishments(ctx, target, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, punishment.Ban, active[0].Kind)
}

func TestSQLiteWarnings(t *testing.T) {
	s := openTestSQLite(t)
	ctx := t.Context()
	now := time.Now()
	target := uuid.New()

	_, ok, err := s.LatestActiveWarning(ctx, target)
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := s.Execute(ctx, punishment.Record{Target: target, TargetName: "Steve", Kind: punishment.Warn, WarnLevel: 1, EndTime: punishment.Forever})
	require.NoError(t, err)
	require.NoError(t, s.AddActiveWarning(ctx, punishment.ActiveWarning{Target: target, PunishmentID: first, Level: 1, EndTime: now.Add(time.Hour).UnixMilli()}))

	second, err := s.Execute(ctx, punishment.Record{Target: target, TargetName: "Steve", Kind: punishment.Warn, WarnLevel: 2, EndTime: punishment.Forever})
	require.NoError(t, err)
	require.NoError(t, s.AddActiveWarning(ctx, punishment.ActiveWarning{Target: target, PunishmentID: second, Level: 2, EndTime: now.Add(time.Hour).UnixMilli()}))

	w, ok, err := s.LatestActiveWarning(ctx, target)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, w.Level, "the first warning was superseded")
	assert.Equal(t, second, w.PunishmentID)

	expired, err := s.ExpireWarnings(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = s.ExpireWarnings(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1, "superseded warnings never expire")
	assert.Equal(t, 2, expired[0].Level)
	assert.Equal(t, "Steve", expired[0].TargetName)

	_, ok, err = s.LatestActiveWarning(ctx, target)
	require.NoError(t, err)
	assert.False(t, ok)

	expired, err = s.ExpireWarnings(ctx, now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, expired, "warnings expire once")
}

func TestSQLitePlayers(t *testing.T) {
	s := openTestSQLite(t)
	ctx := t.Context()
	steve := game.Profile{UUID: uuid.New(), Name: "Steve"}

	_, ok, err := s.PlayerByName(ctx, "steve")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RecordPlayer(ctx, steve, "10.0.0.1"))
	require.NoError(t, s.RecordPlayer(ctx, steve, ""))

	p, ok, err := s.PlayerByName(ctx, "STEVE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, steve, p)

	ip, ok, err := s.LastKnownIP(ctx, steve.UUID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", ip, "an empty address keeps the last known one")

	alex := uuid.New()
	_, ok, err = s.LastKnownIP(ctx, alex)
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := s.Execute(ctx, punishment.Record{Target: alex, TargetName: "Alex", Kind: punishment.Ban, EndTime: punishment.Forever})
	require.NoError(t, err)
	require.NoError(t, s.LogPlayerInfo(ctx, id, alex, "10.0.0.7"))
	ip, ok, err = s.LastKnownIP(ctx, alex)
	require.NoError(t, err)
	require.True(t, ok, "punishment addresses are used for players never recorded")
	assert.Equal(t, "10.0.0.7", ip)
}

func TestSQLiteReports(t *testing.T) {
	s := openTestSQLite(t)
	ctx := t.Context()

	rec := report.Record{
		Requester: uuid.New(), RequesterName: "Alex", Target: uuid.New(), TargetName: "Steve",
		Kind: report.TargetPlayer, Category: "Disruptive", Reason: "Killaura", Details: "saw through walls",
		Snapshot: "HP:20.0, HUNGER:20, XP:0, LOC:Overworld 0,64,0", Created: time.UnixMilli(time.Now().UnixMilli()),
	}
	id, err := s.CreateReport(ctx, rec)
	require.NoError(t, err)
	_, err = s.CreateReport(ctx, report.Record{Requester: uuid.New(), RequesterName: "Bob", Kind: report.TargetServer, Category: "Bug", Created: time.Now()})
	require.NoError(t, err)

	pending, err := s.Reports(ctx, report.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	rec.ID = id
	assert.Equal(t, rec, pending[0])
	assert.Equal(t, uuid.Nil, pending[1].Target)

	require.NoError(t, s.SetReportStatus(ctx, id, report.StatusPending.Next(), "Mod"))
	taken, err := s.Reports(ctx, report.StatusTaken)
	require.NoError(t, err)
	require.Len(t, taken, 1)
	assert.Equal(t, "Mod", taken[0].Moderator)

	assert.Error(t, s.SetReportStatus(ctx, "missing", report.StatusTaken, "Mod"))
}

func TestOpenDriver(t *testing.T) {
	s, err := Open(nil, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "w.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(nil, Config{Driver: "mongo"})
	assert.Error(t, err)
}

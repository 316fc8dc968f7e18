package warden

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/rank"
	"github.com/smell-of-curry/warden/warden/report"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	pc, err := c.PunishmentConfig()
	require.NoError(t, err)
	assert.Len(t, pc.Kinds, len(punishment.Kinds()))
	assert.True(t, pc.Of(punishment.Ban).Internal)
	assert.NotEmpty(t, pc.Of(punishment.Ban).OnPunish)
	require.Contains(t, pc.WarnLevels, 3)
	assert.Equal(t, "30d", pc.WarnLevels[3].Expiration)

	perms, err := c.Permissions()
	require.NoError(t, err)
	assert.Equal(t, rank.DefaultPermissions(), perms)

	assert.Equal(t, 5*time.Second, c.FreezeConfig().Interval)
	rc := c.ReportConfig()
	assert.Equal(t, time.Minute, rc.Cooldown)
	assert.Equal(t, time.Hour, rc.RatePeriod)
	for _, cat := range rc.Categories {
		_, ok := report.ParseTargetKind(cat.Target)
		assert.True(t, ok, cat.Name)
	}

	_, err = ParseLogLevel(c.Warden.LogLevel)
	assert.NoError(t, err)
}

func TestConfigErrors(t *testing.T) {
	c := DefaultConfig()
	c.Punishments["jail"] = punishment.KindConfig{}
	_, err := c.PunishmentConfig()
	assert.Error(t, err)

	c = DefaultConfig()
	c.Warns["first"] = punishment.WarnLevel{}
	_, err = c.PunishmentConfig()
	assert.Error(t, err)

	c = DefaultConfig()
	c.Ranks.Permissions["warden.command.ban"] = "emperor"
	_, err = c.Permissions()
	assert.Error(t, err)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestPermissionOverrides(t *testing.T) {
	c := DefaultConfig()
	c.Ranks.Permissions = map[string]string{"warden.command.ban": "admin"}
	perms, err := c.Permissions()
	require.NoError(t, err)
	assert.False(t, perms.Allows(rank.Moderator, "warden.command.ban"))
	assert.True(t, perms.Allows(rank.Helper, "warden.command.kick"), "defaults are kept")
}

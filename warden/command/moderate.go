package command

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/smell-of-curry/warden/warden/form"
)

// Moderate opens the moderation menu for a player.
type Moderate struct {
	Target string `name:"target"`

	permissionAllower
}

// NewModerate ...
func NewModerate() cmd.Command {
	return cmd.New("moderate", "Open the moderation menu for a player", []string{"mod"}, Moderate{
		permissionAllower: permissionAllower{perm: "warden.command.moderate"},
	})
}

// Allow ...
func (m Moderate) Allow(src cmd.Source) bool {
	_, ok := src.(*player.Player)
	return ok && m.permissionAllower.Allow(src)
}

// Run ...
func (m Moderate) Run(src cmd.Source, _ *cmd.Output, _ *world.Tx) {
	src.(*player.Player).SendForm(form.NewModerate(m.Target))
}

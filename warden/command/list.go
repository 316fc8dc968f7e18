package command

import (
	"strconv"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/warden/warden/rank"
)

// List represents a command that displays all online players with their ranks, and the staff among them.
type List struct {
	permissionAllower
}

// NewList creates a new list command.
func NewList() cmd.Command {
	return cmd.New("list", "Lists all online players", []string{"ls"}, List{permissionAllower: permissionAllower{perm: "warden.command.list"}})
}

// Run executes the list command.
func (l List) Run(_ cmd.Source, o *cmd.Output, tx *world.Tx) {
	var lines []string
	staff := 0
	for ent := range tx.Players() {
		p, ok := ent.(*player.Player)
		if !ok {
			continue
		}
		r := rank.Player
		if h, ok := p.Handler().(rankHandler); ok {
			r = h.HighestRank()
		}
		if r >= rank.Helper {
			staff++
		}
		lines = append(lines, text.Colourf(" - %s", r.FormatName(p.Name())))
	}

	switch len(lines) {
	case 0:
		o.Print("There are 0 players online")
		return
	case 1:
		o.Print("There is 1 player online:")
	default:
		o.Print("There are " + strconv.Itoa(len(lines)) + " players online (" + strconv.Itoa(staff) + " staff):")
	}
	for _, line := range lines {
		o.Print(line)
	}
}

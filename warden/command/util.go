package command

import (
	"context"
	"log/slog"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/sourcegraph/conc"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/rank"
	"github.com/smell-of-curry/warden/warden/report"
)

// rankHandler ...
type rankHandler interface {
	HighestRank() rank.Rank
}

// permissionAllower allows players holding a permission and every non-player source, such as the console.
type permissionAllower struct {
	perm string
}

// Allow ...
func (a permissionAllower) Allow(s cmd.Source) bool {
	p, ok := s.(*player.Player)
	if !ok {
		return true
	}
	h, ok := p.Handler().(game.PermissionHolder)
	return ok && h.HasPermission(a.perm)
}

// Deps holds the services that commands act upon.
type Deps struct {
	Log         *slog.Logger
	Host        game.Host
	Punishments *punishment.Orchestrator
	Reports     *report.Engine
	Players     game.Directory

	wg conc.WaitGroup
}

// Close waits for every player lookup in flight.
func (d *Deps) Close() {
	d.wg.Wait()
}

// actorOf returns the Actor behind a command source.
func (d *Deps) actorOf(src cmd.Source) game.Actor {
	if p, ok := src.(*player.Player); ok {
		return game.PlayerSession(p)
	}
	return game.Console{Log: d.Log}
}

// resolve looks up the player with the name passed, connected or not, and calls then with its profile. If
// the player is offline, the directory is queried on a worker goroutine and then runs in a later
// transaction with the actor rebound to it.
func (d *Deps) resolve(v game.View, actor game.Actor, name string, then func(v game.View, actor game.Actor, p game.Profile)) {
	name = strings.TrimSpace(name)
	if s, ok := v.SessionByName(name); ok {
		then(v, actor, game.ProfileOf(s))
		return
	}
	d.wg.Go(func() {
		p, found, err := d.Players.PlayerByName(context.Background(), name)
		<-d.Host.Exec(func(v game.View) {
			actor := game.Rebind(v, actor)
			switch {
			case err != nil:
				d.Log.Error("failed to look up player", "name", name, "error", err)
				actor.Message(locale.Translate("command.lookup_failed", "target", name))
			case !found:
				actor.Message(locale.Translate("command.unknown_player", "target", name))
			default:
				then(v, actor, p)
			}
		})
	})
}

package handler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"

	"github.com/smell-of-curry/warden/warden/cache"
	"github.com/smell-of-curry/warden/warden/freeze"
	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/rank"
	"github.com/smell-of-curry/warden/warden/report"
)

// Restorer restores the enforcement state of players that join.
type Restorer interface {
	Restore(id uuid.UUID)
}

// Services holds the moderation services consulted by player handlers.
type Services struct {
	Log         *slog.Logger
	Punishments Restorer
	Durations   *punishment.Durations
	Cache       cache.Reader
	Freeze      *freeze.Manager
	Reports     *report.Engine
	Players     game.Directory
	Permissions rank.Permissions
	// MuteCommands are the commands muted players may not run.
	MuteCommands []string
}

// Guard enforces the moderation state of players on their actions. Every method except Join and Close must
// be called on the world goroutine.
type Guard struct {
	svc Services

	wg  conc.WaitGroup
	now func() time.Time
}

// NewGuard ...
func NewGuard(svc Services) *Guard {
	return &Guard{svc: svc, now: time.Now}
}

// Join records the player in the directory and restores its enforcement state.
func (g *Guard) Join(p game.Profile, addr string) {
	g.wg.Go(func() {
		if err := g.svc.Players.RecordPlayer(context.Background(), p, addr); err != nil {
			g.svc.Log.Error("failed to record player", "player", p.Name, "error", err)
		}
	})
	g.svc.Punishments.Restore(p.UUID)
}

// Chat routes a chat message through the report conversation and the freeze chat, and enforces mutes. It
// returns true if the message may be broadcast.
func (g *Guard) Chat(v game.View, s game.Session, msg string) bool {
	if g.svc.Reports.HandleChat(v, s, msg) {
		return false
	}
	if g.svc.Freeze.Chat(v, s, msg) {
		return false
	}
	if g.svc.Cache.Active(cache.Mute, s.UUID()) {
		until, _ := g.svc.Cache.Until(cache.Mute, s.UUID())
		s.Message(locale.Translate("punishment.mute.blocked", "time", g.svc.Durations.Remaining(until, g.now())))
		return false
	}
	return true
}

// Command reports whether the session may run the command with the name and aliases passed.
func (g *Guard) Command(s game.Session, name string, aliases ...string) bool {
	names := lo.Map(append([]string{name}, aliases...), func(n string, _ int) string {
		return strings.ToLower(strings.TrimPrefix(n, "/"))
	})
	blocks := func(list []string) bool {
		return lo.SomeBy(list, func(c string) bool {
			return lo.Contains(names, strings.ToLower(strings.TrimPrefix(c, "/")))
		})
	}

	id := s.UUID()
	switch {
	case g.Frozen(id) && !lo.SomeBy(names, g.svc.Freeze.AllowsCommand):
		s.Message(locale.Translate("freeze.command_blocked", "command", names[0]))
	case g.svc.Cache.Active(cache.Mute, id) && blocks(g.svc.MuteCommands):
		s.Message(locale.Translate("punishment.mute.command_blocked", "command", names[0]))
	case blocks(g.svc.Cache.BlockedCommands(id)):
		s.Message(locale.Translate("punishment.softban.command_blocked", "command", names[0]))
	default:
		return true
	}
	return false
}

// Frozen reports whether the player may not move or interact with the world.
func (g *Guard) Frozen(id uuid.UUID) bool {
	return g.svc.Freeze.Frozen(id) || g.svc.Cache.Active(cache.Freeze, id)
}

// HasPermission reports whether a player of rank r holds perm.
func (g *Guard) HasPermission(r rank.Rank, perm string) bool {
	return g.svc.Permissions.Allows(r, perm)
}

// Quit cancels the report draft of the session and runs the freeze disconnect actions.
func (g *Guard) Quit(v game.View, s game.Session) {
	g.svc.Reports.Cancel(s.UUID())
	g.svc.Freeze.Quit(v, s)
}

// Close waits for pending directory writes.
func (g *Guard) Close() {
	g.wg.Wait()
}

package game

import (
	"iter"
	"log/slog"
	"strings"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/sound"
	"github.com/google/uuid"
)

// PermissionHolder is implemented by player handlers that can answer permission checks.
type PermissionHolder interface {
	HasPermission(perm string) bool
}

// WorldHost is a Host backed by a single Dragonfly world. Views passed by it only hold the players in
// that world, so players in other dimensions are treated as offline.
type WorldHost struct {
	w *world.World
}

// NewWorldHost ...
func NewWorldHost(w *world.World) WorldHost {
	return WorldHost{w: w}
}

// Exec ...
func (h WorldHost) Exec(f func(v View)) <-chan struct{} {
	return h.w.Exec(func(tx *world.Tx) {
		f(TxView(tx))
	})
}

// TxView returns a View over the players of a world transaction.
func TxView(tx *world.Tx) View {
	return txView{tx: tx}
}

// txView ...
type txView struct {
	tx *world.Tx
}

// Session ...
func (v txView) Session(id uuid.UUID) (Session, bool) {
	for s := range v.Sessions() {
		if s.UUID() == id {
			return s, true
		}
	}
	return nil, false
}

// SessionByName ...
func (v txView) SessionByName(name string) (Session, bool) {
	for s := range v.Sessions() {
		if strings.EqualFold(s.Name(), name) {
			return s, true
		}
	}
	return nil, false
}

// Sessions ...
func (v txView) Sessions() iter.Seq[Session] {
	return func(yield func(Session) bool) {
		for ent := range v.tx.Players() {
			p, ok := ent.(*player.Player)
			if !ok {
				continue
			}
			if !yield(PlayerSession(p)) {
				return
			}
		}
	}
}

// PlayerSession wraps a Dragonfly player in a Session.
func PlayerSession(p *player.Player) Session {
	return playerSession{p: p}
}

// PlayerOf returns the Dragonfly player behind a Session, if there is one.
func PlayerOf(s Session) (*player.Player, bool) {
	ps, ok := s.(playerSession)
	if !ok {
		return nil, false
	}
	return ps.p, true
}

// playerSession ...
type playerSession struct {
	p *player.Player
}

// Name ...
func (s playerSession) Name() string { return s.p.Name() }

// UUID ...
func (s playerSession) UUID() uuid.UUID { return s.p.UUID() }

// Message ...
func (s playerSession) Message(msg string) { s.p.Message(msg) }

// Disconnect ...
func (s playerSession) Disconnect(msg string) { s.p.Disconnect(msg) }

// Confirm ...
func (s playerSession) Confirm() { s.p.PlaySound(sound.Click{}) }

// ExecuteCommand ...
func (s playerSession) ExecuteCommand(line string) { s.p.ExecuteCommand(line) }

// Addr ...
func (s playerSession) Addr() string {
	addr := s.p.Addr().String()
	host, err := HostOf(addr)
	if err != nil {
		return addr
	}
	return host
}

// HasPermission ...
func (s playerSession) HasPermission(perm string) bool {
	h, ok := s.p.Handler().(PermissionHolder)
	return ok && h.HasPermission(perm)
}

// SetImmobile ...
func (s playerSession) SetImmobile(immobile bool) {
	if immobile {
		s.p.SetImmobile()
		return
	}
	s.p.SetMobile()
}

// Snapshot ...
func (s playerSession) Snapshot() Snapshot {
	return Snapshot{
		Health: s.p.Health(),
		Food:   s.p.Food(),
		Level:  s.p.ExperienceLevel(),
		World:  s.p.Tx().World().Name(),
		Pos:    cube.PosFromVec3(s.p.Position()),
	}
}

// Console is the Actor used for actions issued from outside the game.
type Console struct {
	Log *slog.Logger
}

// Name ...
func (Console) Name() string { return "CONSOLE" }

// Message ...
func (c Console) Message(msg string) {
	c.Log.Info(msg)
}

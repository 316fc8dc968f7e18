package punishment

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/smell-of-curry/warden/warden/game"
)

// Propagation describes a punishment whose live effect is extended to every session sharing an address.
type Propagation struct {
	Record  Record
	ID      string
	Actor   game.Actor
	Address string
}

// Propagator applies the effect of IP-scoped punishments to the other sessions connected from the same
// address. It never persists anything.
type Propagator struct {
	log   *slog.Logger
	apply func(v game.View, s game.Session, p Propagation)
}

// NewPropagator returns a Propagator that calls apply for every matching session.
func NewPropagator(log *slog.Logger, apply func(v game.View, s game.Session, p Propagation)) *Propagator {
	return &Propagator{log: log, apply: apply}
}

// Propagate applies p to every connected session other than its target whose address equals p.Address.
// It returns the identities the effect was applied to. Propagate must be called on the world goroutine.
func (pr *Propagator) Propagate(v game.View, p Propagation) []uuid.UUID {
	addr, err := game.HostOf(p.Address)
	if err != nil {
		pr.log.Warn("cannot propagate punishment", "id", p.ID, "address", p.Address, "error", err)
		return nil
	}

	var matched []game.Session
	for s := range v.Sessions() {
		if s.UUID() == p.Record.Target {
			continue
		}
		ip, err := game.HostOf(s.Addr())
		if err != nil {
			pr.log.Warn("skipping session with malformed address", "player", s.Name(), "address", s.Addr(), "error", err)
			continue
		}
		if ip == addr {
			matched = append(matched, s)
		}
	}

	ids := make([]uuid.UUID, 0, len(matched))
	for _, s := range matched {
		pr.apply(v, s, p)
		ids = append(ids, s.UUID())
	}
	if len(ids) > 0 {
		pr.log.Info("propagated punishment", "id", p.ID, "kind", p.Record.Kind.String(), "sessions", len(ids))
	}
	return ids
}

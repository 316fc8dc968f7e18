package punishment

import (
	"github.com/google/uuid"

	"github.com/smell-of-curry/warden/warden/cache"
	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
)

// Freezer runs the live side of freezes: immobility, the periodic reminders and the supervised chat.
type Freezer interface {
	// Freeze freezes the session. The chat with the actor is only opened if chat is true.
	Freeze(v game.View, s game.Session, actor game.Actor, chat bool)
	Unfreeze(v game.View, id uuid.UUID)
}

// Banner registers the bans that the server consults when players log in.
type Banner interface {
	BanProfile(p game.Profile, id, reason, actor string, until int64) error
	BanAddress(target uuid.UUID, addr, id, reason, actor string, until int64) error
	Pardon(target uuid.UUID) error
}

// application is a persisted punishment being applied to one session.
type application struct {
	rec   Record
	id    string
	actor game.Actor
	addr  string
	// primary is false for sessions reached through propagation.
	primary bool
}

// effect applies a punishment to a session. s is nil if online is false.
type effect func(o *Orchestrator, v game.View, a application, s game.Session, online bool)

// effects holds the effect of every Kind.
var effects = map[Kind]effect{
	Ban:     (*Orchestrator).applyBan,
	Mute:    (*Orchestrator).applyMute,
	Kick:    (*Orchestrator).applyKick,
	Warn:    (*Orchestrator).applyWarn,
	Softban: (*Orchestrator).applySoftban,
	Freeze:  (*Orchestrator).applyFreeze,
}

// applyBan ...
func (o *Orchestrator) applyBan(_ game.View, a application, s game.Session, online bool) {
	if a.primary {
		var err error
		if a.rec.ByIP {
			err = o.bans.BanAddress(a.rec.Target, a.addr, a.id, a.rec.Reason, a.rec.Actor, a.rec.EndTime)
		} else {
			err = o.bans.BanProfile(game.Profile{UUID: a.rec.Target, Name: a.rec.TargetName}, a.id, a.rec.Reason, a.rec.Actor, a.rec.EndTime)
		}
		if err != nil {
			o.log.Error("failed to register ban", "target", a.rec.TargetName, "id", a.id, "error", err)
		}
	}
	if online {
		s.Disconnect(locale.Translate("punishment.ban.screen", o.vars(a, s)...))
	}
}

// applyMute ...
func (o *Orchestrator) applyMute(_ game.View, a application, s game.Session, online bool) {
	o.cache.Set(cache.Mute, identity(a, s), a.rec.EndTime)
	if online {
		s.Message(locale.Translate("punishment.mute.notice", o.vars(a, s)...))
	}
}

// applySoftban ...
func (o *Orchestrator) applySoftban(_ game.View, a application, s game.Session, online bool) {
	o.cache.Set(cache.Softban, identity(a, s), a.rec.EndTime, o.conf.SoftbanCommands...)
	if online {
		s.Message(locale.Translate("punishment.softban.notice", o.vars(a, s)...))
	}
}

// applyKick ...
func (o *Orchestrator) applyKick(_ game.View, a application, s game.Session, online bool) {
	if online {
		s.Disconnect(locale.Translate("punishment.kick.screen", o.vars(a, s)...))
	}
}

// applyFreeze ...
func (o *Orchestrator) applyFreeze(v game.View, a application, s game.Session, online bool) {
	o.cache.Set(cache.Freeze, identity(a, s), a.rec.EndTime)
	if online {
		o.freezer.Freeze(v, s, a.actor, a.primary)
		s.Message(locale.Translate("punishment.freeze.notice", o.vars(a, s)...))
	}
}

// applyWarn ...
func (o *Orchestrator) applyWarn(_ game.View, a application, s game.Session, online bool) {
	if online {
		s.Message(locale.Translate("punishment.warn.notice", o.vars(a, s)...))
	}
}

// identity returns the identity an application affects.
func identity(a application, s game.Session) uuid.UUID {
	if s != nil {
		return s.UUID()
	}
	return a.rec.Target
}

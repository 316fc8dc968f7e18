package warden

import (
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/protocol/login"

	"github.com/smell-of-curry/warden/warden/banlist"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/punishment"
)

// Allower refuses connections of banned profiles and addresses.
type Allower struct {
	log       *slog.Logger
	bans      *banlist.List
	durations *punishment.Durations
}

// Allow ...
func (a *Allower) Allow(addr net.Addr, d login.IdentityData, _ login.ClientData) (string, bool) {
	id, err := uuid.Parse(d.Identity)
	if err != nil {
		a.log.Warn("refusing login with malformed identity", "name", d.DisplayName, "identity", d.Identity)
		return "", false
	}
	var address string
	if addr != nil {
		address = addr.String()
	}
	e, banned := a.bans.Lookup(id, d.DisplayName, address)
	if !banned {
		return "", true
	}
	a.log.Info("refused banned player", "name", d.DisplayName, "id", e.ID, "address", e.Address != "")
	return locale.Translate("allower.banned",
		"reason", e.Reason,
		"time", a.durations.Remaining(e.Until, time.Now()),
		"id", e.ID,
	), false
}

package rank

import (
	"fmt"
	"strings"
)

// Permissions maps permissions to the lowest rank that holds them. A key ending in ".*" grants every
// permission below it, so "warden.bypass.*" covers "warden.bypass.ban".
type Permissions map[string]Rank

// DefaultPermissions ...
func DefaultPermissions() Permissions {
	return Permissions{
		"warden.report.view":     Helper,
		"warden.report.bypass":   Moderator,
		"warden.freeze.chat":     Helper,
		"warden.command.kick":    Helper,
		"warden.command.warn":    Helper,
		"warden.command.mute":    Helper,
		"warden.command.freeze":  Moderator,
		"warden.command.unmute":  Moderator,
		"warden.command.ban":     Moderator,
		"warden.command.softban": Moderator,
		"warden.command.*":       SeniorModerator,
		"warden.bypass.*":        Admin,
	}
}

// ParsePermissions parses a map of permissions to rank names, as found in the configuration.
func ParsePermissions(m map[string]string) (Permissions, error) {
	p := make(Permissions, len(m))
	for perm, name := range m {
		r, ok := ParseRank(name)
		if !ok {
			return nil, fmt.Errorf("permission %q: unknown rank %q", perm, name)
		}
		p[strings.ToLower(perm)] = r
	}
	return p, nil
}

// Allows reports whether a player of rank r holds perm. The owner holds every permission.
func (p Permissions) Allows(r Rank, perm string) bool {
	if r >= Owner {
		return true
	}
	required, ok := p.Required(perm)
	return ok && r >= required
}

// Required returns the lowest rank holding perm. The exact permission takes precedence over wildcards, and
// more specific wildcards over broader ones.
func (p Permissions) Required(perm string) (Rank, bool) {
	perm = strings.ToLower(perm)
	if r, ok := p[perm]; ok {
		return r, true
	}
	for {
		i := strings.LastIndexByte(perm, '.')
		if i < 0 {
			break
		}
		perm = perm[:i]
		if r, ok := p[perm+".*"]; ok {
			return r, true
		}
	}
	r, ok := p["*"]
	return r, ok
}

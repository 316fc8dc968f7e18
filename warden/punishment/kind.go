package punishment

import (
	"strings"

	"github.com/samber/lo"

	"github.com/smell-of-curry/warden/warden/cache"
)

// Kind is the kind of a punishment.
type Kind uint8

const (
	Ban Kind = iota
	Mute
	Kick
	Warn
	Softban
	Freeze
)

// Kinds returns every Kind.
func Kinds() []Kind {
	return []Kind{Ban, Mute, Kick, Warn, Softban, Freeze}
}

// String ...
func (k Kind) String() string {
	switch k {
	case Ban:
		return "ban"
	case Mute:
		return "mute"
	case Kick:
		return "kick"
	case Warn:
		return "warn"
	case Softban:
		return "softban"
	case Freeze:
		return "freeze"
	}
	panic("should never happen")
}

// ParseKind parses the name of a Kind, ignoring case.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return lo.Find(Kinds(), func(k Kind) bool { return k.String() == s })
}

// Timed reports whether a duration input is parsed for the Kind. Kicks and warns always resolve to
// Forever at the record level.
func (k Kind) Timed() bool {
	return k != Kick && k != Warn
}

// BypassPermission returns the permission that makes a player immune to the Kind.
func (k Kind) BypassPermission() string {
	return "warden.bypass." + k.String()
}

// Cached returns the cache.Kind holding the enforcement state of the Kind, if it has any.
func (k Kind) Cached() (cache.Kind, bool) {
	switch k {
	case Mute:
		return cache.Mute, true
	case Softban:
		return cache.Softban, true
	case Freeze:
		return cache.Freeze, true
	}
	return 0, false
}

// Package cache holds the in-memory enforcement state that listeners consult on every player action.
package cache

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
)

// Kind is a kind of punishment with an enforcement state that outlives its application.
type Kind uint8

const (
	Mute Kind = iota
	Softban
	Freeze
	kindCount
)

// Kinds returns every cached Kind.
func Kinds() []Kind {
	return []Kind{Mute, Softban, Freeze}
}

// String ...
func (k Kind) String() string {
	switch k {
	case Mute:
		return "mute"
	case Softban:
		return "softban"
	case Freeze:
		return "freeze"
	}
	panic("should never happen")
}

// ParseKind ...
func ParseKind(s string) (Kind, bool) {
	return lo.Find(Kinds(), func(k Kind) bool { return k.String() == s })
}

// Entry is the enforcement state of one identity for one Kind.
type Entry struct {
	// Until is the unix millisecond timestamp at which the effect ends.
	Until int64
	// Commands is the snapshot of blocked commands taken when a softban was issued.
	Commands []string
}

// Reader is the read side of a Manager, used by enforcement listeners.
type Reader interface {
	Active(k Kind, id uuid.UUID) bool
	Until(k Kind, id uuid.UUID) (int64, bool)
	BlockedCommands(id uuid.UUID) []string
}

// Expired is an entry removed by Sweep.
type Expired struct {
	Kind Kind
	ID   uuid.UUID
}

// Manager ...
type Manager struct {
	entries [kindCount]*xsync.MapOf[uuid.UUID, Entry]
	now     func() time.Time
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	m := &Manager{now: time.Now}
	for i := range m.entries {
		m.entries[i] = xsync.NewMapOf[uuid.UUID, Entry]()
	}
	return m
}

// Active returns whether the identity has a Kind entry that has not yet ended. Freeze entries are a
// presence flag and stay active until cleared.
func (m *Manager) Active(k Kind, id uuid.UUID) bool {
	e, ok := m.entries[k].Load(id)
	if k == Freeze {
		return ok
	}
	return ok && e.Until > m.now().UnixMilli()
}

// Until returns the end of the identity's Kind entry, if one is present.
func (m *Manager) Until(k Kind, id uuid.UUID) (int64, bool) {
	e, ok := m.entries[k].Load(id)
	return e.Until, ok
}

// Set replaces the identity's Kind entry. Commands are only kept for softbans.
func (m *Manager) Set(k Kind, id uuid.UUID, until int64, commands ...string) {
	e := Entry{Until: until}
	if k == Softban {
		e.Commands = slices.Clone(commands)
	}
	m.entries[k].Store(id, e)
}

// Clear removes the identity's Kind entry.
func (m *Manager) Clear(k Kind, id uuid.UUID) {
	m.entries[k].Delete(id)
}

// BlockedCommands returns the commands the identity may not run while softbanned.
func (m *Manager) BlockedCommands(id uuid.UUID) []string {
	if !m.Active(Softban, id) {
		return nil
	}
	e, _ := m.entries[Softban].Load(id)
	return e.Commands
}

// Sweep removes every Mute and Softban entry that ended at or before now and returns what it removed.
// Freeze entries are only removed by Clear.
func (m *Manager) Sweep(now time.Time) []Expired {
	ms := now.UnixMilli()

	var expired []Expired
	for _, k := range []Kind{Mute, Softban} {
		m.entries[k].Range(func(id uuid.UUID, e Entry) bool {
			if e.Until <= ms {
				m.entries[k].Delete(id)
				expired = append(expired, Expired{Kind: k, ID: id})
			}
			return true
		})
	}
	return expired
}

// Reset drops every entry.
func (m *Manager) Reset() {
	for _, e := range m.entries {
		e.Clear()
	}
}

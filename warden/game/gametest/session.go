package gametest

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/warden/warden/game"
)

// Session is a fake connected player that records everything sent to it.
type Session struct {
	host  *Host
	id    uuid.UUID
	name  string
	addr  string
	perms map[string]struct{}

	// Snap is returned from Snapshot.
	Snap game.Snapshot

	mu           sync.Mutex
	messages     []string
	commands     []string
	disconnected []string
	confirms     int
	immobile     bool
}

// Name ...
func (s *Session) Name() string { return s.name }

// UUID ...
func (s *Session) UUID() uuid.UUID { return s.id }

// Addr ...
func (s *Session) Addr() string { return s.addr }

// Profile ...
func (s *Session) Profile() game.Profile { return game.ProfileOf(s) }

// HasPermission ...
func (s *Session) HasPermission(perm string) bool {
	_, ok := s.perms[perm]
	return ok
}

// Message ...
func (s *Session) Message(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Disconnect records the disconnection and removes the session from its host.
func (s *Session) Disconnect(msg string) {
	s.mu.Lock()
	s.disconnected = append(s.disconnected, msg)
	s.mu.Unlock()
	s.host.remove(s)
}

// Confirm ...
func (s *Session) Confirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirms++
}

// ExecuteCommand ...
func (s *Session) ExecuteCommand(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, line)
}

// SetImmobile ...
func (s *Session) SetImmobile(immobile bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.immobile = immobile
}

// Snapshot ...
func (s *Session) Snapshot() game.Snapshot { return s.Snap }

// Messages returns every message sent to the session.
func (s *Session) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Lines returns every message sent to the session with its formatting codes removed.
func (s *Session) Lines() []string {
	return clean(s.Messages())
}

// Commands returns every command line executed by the session.
func (s *Session) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.commands)
}

// Disconnects returns the messages of every disconnection of the session.
func (s *Session) Disconnects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.disconnected)
}

// Confirms ...
func (s *Session) Confirms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirms
}

// Immobile ...
func (s *Session) Immobile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.immobile
}

// Actor is a fake non-player actor, such as the console.
type Actor struct {
	mu       sync.Mutex
	name     string
	messages []string
}

// NewActor ...
func NewActor(name string) *Actor {
	return &Actor{name: name}
}

// Name ...
func (a *Actor) Name() string { return a.name }

// Message ...
func (a *Actor) Message(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, msg)
}

// Messages ...
func (a *Actor) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.messages)
}

// Lines returns every message sent to the actor with its formatting codes removed.
func (a *Actor) Lines() []string {
	return clean(a.Messages())
}

// clean ...
func clean(messages []string) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = text.Clean(m)
	}
	return out
}

// Package game describes the live server state that moderation services act upon. Everything
// that reads or mutates sessions goes through a Host so that it runs on the world goroutine.
package game

import (
	"context"
	"fmt"
	"iter"
	"net"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
)

// Host runs functions on the world goroutine. Functions passed to Exec are serialised with every
// other world mutation, and the returned channel is closed once f has returned.
type Host interface {
	Exec(f func(v View)) <-chan struct{}
}

// View is a view of the connected sessions. A View is only valid inside the function it was
// passed to and must never be retained.
type View interface {
	// Session returns the connected session with the UUID passed.
	Session(id uuid.UUID) (Session, bool)
	// SessionByName returns the connected session whose name matches, ignoring case.
	SessionByName(name string) (Session, bool)
	// Sessions iterates over every connected session.
	Sessions() iter.Seq[Session]
}

// Actor is the issuer of a moderation action: a player or the console.
type Actor interface {
	Name() string
	Message(msg string)
}

// Session is a connected player.
type Session interface {
	Actor

	UUID() uuid.UUID
	// Addr returns the host part of the remote address of the session.
	Addr() string
	HasPermission(perm string) bool
	Disconnect(msg string)
	// Confirm plays the confirmation sound to the session.
	Confirm()
	ExecuteCommand(line string)
	SetImmobile(immobile bool)
	Snapshot() Snapshot
}

// Profile identifies a player who may or may not be connected.
type Profile struct {
	UUID uuid.UUID
	Name string
}

// ProfileOf returns the Profile of a connected session.
func ProfileOf(s Session) Profile {
	return Profile{UUID: s.UUID(), Name: s.Name()}
}

// Directory records every player that has joined so that offline players can be resolved.
type Directory interface {
	RecordPlayer(ctx context.Context, p Profile, ip string) error
	PlayerByName(ctx context.Context, name string) (Profile, bool, error)
	LastKnownIP(ctx context.Context, id uuid.UUID) (string, bool, error)
}

// Snapshot is the state of a player captured at a moment in time.
type Snapshot struct {
	Health float64
	Food   int
	Level  int
	World  string
	Pos    cube.Pos
}

// String ...
func (s Snapshot) String() string {
	return fmt.Sprintf("HP:%.1f, HUNGER:%d, XP:%d, LOC:%s %d,%d,%d",
		s.Health, s.Food, s.Level, s.World, s.Pos.X(), s.Pos.Y(), s.Pos.Z())
}

// HostOf returns the IP part of an address in either host:port or bare host form. An error is
// returned if no valid IP can be found.
func HostOf(addr string) (string, error) {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return "", fmt.Errorf("malformed address %q", addr)
	}
	return ip.String(), nil
}

// Package gametest provides in-memory implementations of the game package interfaces for tests.
package gametest

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/smell-of-curry/warden/warden/game"
)

// Host is a game.Host that runs functions synchronously under a lock.
type Host struct {
	exec sync.Mutex

	mu       sync.Mutex
	sessions []*Session
	execs    int
}

// NewHost ...
func NewHost() *Host {
	return &Host{}
}

// Join connects a new session with the name, address and permissions passed.
func (h *Host) Join(name, addr string, perms ...string) *Session {
	s := &Session{
		host:  h,
		id:    uuid.New(),
		name:  name,
		addr:  addr,
		perms: make(map[string]struct{}, len(perms)),
		Snap:  game.Snapshot{Health: 20, Food: 20, World: "Overworld"},
	}
	for _, p := range perms {
		s.perms[p] = struct{}{}
	}
	h.mu.Lock()
	h.sessions = append(h.sessions, s)
	h.mu.Unlock()
	return s
}

// Exec ...
func (h *Host) Exec(f func(v game.View)) <-chan struct{} {
	h.exec.Lock()
	defer h.exec.Unlock()

	h.mu.Lock()
	h.execs++
	h.mu.Unlock()

	f(view{h: h})
	c := make(chan struct{})
	close(c)
	return c
}

// Execs returns the number of times Exec has been called.
func (h *Host) Execs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.execs
}

// Online reports if the session with the UUID passed is still connected.
func (h *Host) Online(id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.ContainsFunc(h.sessions, func(s *Session) bool { return s.id == id })
}

// remove ...
func (h *Host) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = slices.DeleteFunc(h.sessions, func(o *Session) bool { return o == s })
}

// snapshot ...
func (h *Host) snapshot() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.sessions)
}

// view ...
type view struct {
	h *Host
}

// Session ...
func (v view) Session(id uuid.UUID) (game.Session, bool) {
	for _, s := range v.h.snapshot() {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// SessionByName ...
func (v view) SessionByName(name string) (game.Session, bool) {
	for _, s := range v.h.snapshot() {
		if strings.EqualFold(s.name, name) {
			return s, true
		}
	}
	return nil, false
}

// Sessions ...
func (v view) Sessions() iter.Seq[game.Session] {
	return func(yield func(game.Session) bool) {
		for _, s := range v.h.snapshot() {
			if !yield(s) {
				return
			}
		}
	}
}

// Directory is an in-memory game.Directory.
type Directory struct {
	mu      sync.Mutex
	players map[uuid.UUID]game.Profile
	ips     map[uuid.UUID]string
	Err     error
}

// NewDirectory ...
func NewDirectory() *Directory {
	return &Directory{players: make(map[uuid.UUID]game.Profile), ips: make(map[uuid.UUID]string)}
}

// RecordPlayer ...
func (d *Directory) RecordPlayer(_ context.Context, p game.Profile, ip string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.players[p.UUID] = p
	if ip != "" {
		d.ips[p.UUID] = ip
	}
	return nil
}

// PlayerByName ...
func (d *Directory) PlayerByName(_ context.Context, name string) (game.Profile, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return game.Profile{}, false, d.Err
	}
	for _, p := range d.players {
		if strings.EqualFold(p.Name, name) {
			return p, true, nil
		}
	}
	return game.Profile{}, false, nil
}

// LastKnownIP ...
func (d *Directory) LastKnownIP(_ context.Context, id uuid.UUID) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return "", false, d.Err
	}
	ip, ok := d.ips[id]
	return ip, ok, nil
}

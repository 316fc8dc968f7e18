// Package banlist holds the profile and address bans consulted when players log in.
package banlist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/smell-of-curry/warden/warden/game"
)

// Entry is a single ban. Address bans have a non-empty Address.
type Entry struct {
	ID      string    `json:"id"`
	Target  uuid.UUID `json:"target"`
	Name    string    `json:"name,omitempty"`
	Address string    `json:"address,omitempty"`
	Reason  string    `json:"reason"`
	Actor   string    `json:"actor"`
	Until   int64     `json:"until"`
}

// Active ...
func (e Entry) Active(now time.Time) bool {
	return e.Until > now.UnixMilli()
}

// List is a ban list persisted to a JSON file.
type List struct {
	mu sync.RWMutex
	// wmu serialises updates so that snapshots reach the file in the order they were taken.
	wmu     sync.Mutex
	path    string
	entries []Entry
	now     func() time.Time
}

// New returns a List backed by the file at path. If the file exists it is loaded, otherwise it is created.
// An empty path keeps the list in memory only.
func New(path string) (*List, error) {
	l := &List{path: path, now: time.Now}
	if path == "" {
		return l, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			return l, writeJSONFile(path, l.entries)
		}
		return nil, err
	}
	defer f.Close()

	if err = json.NewDecoder(f).Decode(&l.entries); err != nil {
		return nil, err
	}
	return l, nil
}

// BanProfile bans the player with the profile passed.
func (l *List) BanProfile(p game.Profile, id, reason, actor string, until int64) error {
	return l.add(Entry{ID: id, Target: p.UUID, Name: p.Name, Reason: reason, Actor: actor, Until: until})
}

// BanAddress bans every player connecting from addr.
func (l *List) BanAddress(target uuid.UUID, addr, id, reason, actor string, until int64) error {
	host, err := game.HostOf(addr)
	if err != nil {
		return err
	}
	return l.add(Entry{ID: id, Target: target, Address: host, Reason: reason, Actor: actor, Until: until})
}

// Pardon removes every ban issued against the target, including address bans.
func (l *List) Pardon(target uuid.UUID) error {
	return l.update(func(entries []Entry) []Entry {
		return slices.DeleteFunc(entries, func(e Entry) bool { return e.Target == target })
	})
}

// Lookup returns an active ban matching the identity, name or address of a connecting player.
func (l *List) Lookup(id uuid.UUID, name, addr string) (Entry, bool) {
	host, _ := game.HostOf(addr)
	now := l.now()

	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Find(l.entries, func(e Entry) bool {
		if !e.Active(now) {
			return false
		}
		if e.Address != "" {
			return host != "" && e.Address == host
		}
		return e.Target == id || (e.Name != "" && strings.EqualFold(e.Name, name))
	})
}

// Entries returns a copy of every entry.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Prune removes the bans that ended at or before now and returns how many were removed.
func (l *List) Prune(now time.Time) (int, error) {
	var n int
	err := l.update(func(entries []Entry) []Entry {
		before := len(entries)
		entries = slices.DeleteFunc(entries, func(e Entry) bool { return !e.Active(now) })
		n = before - len(entries)
		return entries
	})
	return n, err
}

// add ...
func (l *List) add(e Entry) error {
	return l.update(func(entries []Entry) []Entry {
		return append(entries, e)
	})
}

// update applies f to the entries and persists the result.
func (l *List) update(f func([]Entry) []Entry) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()

	l.mu.Lock()
	l.entries = f(l.entries)
	snapshot := slices.Clone(l.entries)
	l.mu.Unlock()

	if l.path == "" {
		return nil
	}
	return writeJSONFile(l.path, snapshot)
}

// writeJSONFile writes v to a temporary file which then replaces the file at path.
func writeJSONFile(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(v)
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

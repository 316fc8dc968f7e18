package command

import (
	"strings"
	"sync"

	"github.com/df-mc/dragonfly/server/cmd"
)

// Registry registers commands and remembers their names, so that delegated punishments never run a
// command handled by this server.
type Registry struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewRegistry ...
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register registers the command with the server and records its name and aliases.
func (r *Registry) Register(c cmd.Command) {
	cmd.Register(c)
	r.Add(append([]string{c.Name()}, c.Aliases()...)...)
}

// Add records command names without registering anything.
func (r *Registry) Add(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.names[strings.ToLower(n)] = struct{}{}
	}
}

// Owns ...
func (r *Registry) Owns(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[strings.ToLower(strings.TrimPrefix(name, "/"))]
	return ok
}

// Package hook runs the configured actions that follow punishments and warn levels.
package hook

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
)

// Type is the type of an Action, written before the first ':' of a configured action.
type Type string

const (
	// Message sends the payload to the target, if connected.
	Message Type = "message"
	// Broadcast sends the payload to every connected session.
	Broadcast Type = "broadcast"
	// Command runs the payload as a command of the actor.
	Command Type = "command"
)

// Action is a parsed configured action.
type Action struct {
	Type    Type
	Payload string
}

// Parse parses an action of the form "<type>:<payload>".
func Parse(s string) (Action, bool) {
	typ, payload, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Action{}, false
	}
	t := Type(strings.ToLower(strings.TrimSpace(typ)))
	if !lo.Contains([]Type{Message, Broadcast, Command}, t) {
		return Action{}, false
	}
	return Action{Type: t, Payload: strings.TrimSpace(payload)}, true
}

// Runner ...
type Runner struct {
	log *slog.Logger
}

// NewRunner ...
func NewRunner(log *slog.Logger) *Runner {
	return &Runner{log: log}
}

// Run executes actions in order. Placeholders in payloads are replaced with the name/value pairs in vars.
// The actor may be nil, in which case command actions are skipped.
func (r *Runner) Run(v game.View, actions []string, target uuid.UUID, actor game.Actor, vars ...any) {
	for _, raw := range actions {
		a, ok := Parse(raw)
		if !ok {
			r.log.Warn("invalid hook action", "action", raw)
			continue
		}
		payload := locale.Format(a.Payload, vars...)

		switch a.Type {
		case Message:
			if s, ok := v.Session(target); ok {
				s.Message(locale.Colour(payload))
			}
		case Broadcast:
			msg := locale.Colour(payload)
			for s := range v.Sessions() {
				s.Message(msg)
			}
		case Command:
			s, ok := actor.(game.Session)
			if !ok {
				r.log.Info("skipping hook command without player actor", "command", payload)
				continue
			}
			s.ExecuteCommand("/" + strings.TrimPrefix(payload, "/"))
		}
	}
}

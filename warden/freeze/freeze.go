// Package freeze runs the live side of frozen players: immobility, periodic reminders, a supervised chat
// with staff and the actions run when a frozen player leaves.
package freeze

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/hook"
	"github.com/smell-of-curry/warden/warden/locale"
)

// ChatPermission is held by staff who can read the chat of frozen players.
const ChatPermission = "warden.freeze.chat"

// Config ...
type Config struct {
	// Interval is the time between two reminders. Reminders are disabled if it is zero.
	Interval time.Duration
	// Messages are sent to frozen players every Interval.
	Messages []string
	// AllowedCommands may still be run by frozen players.
	AllowedCommands []string
	// OnDisconnect holds hook actions run when a frozen player leaves.
	OnDisconnect []string
}

// frozen is the state of one frozen player.
type frozen struct {
	partner uuid.UUID
	stop    chan struct{}
}

// Manager ...
type Manager struct {
	log   *slog.Logger
	host  game.Host
	hooks *hook.Runner
	conf  Config

	mu     sync.Mutex
	frozen map[uuid.UUID]*frozen
	wg     conc.WaitGroup
}

// NewManager ...
func NewManager(log *slog.Logger, host game.Host, hooks *hook.Runner, conf Config) *Manager {
	return &Manager{
		log:    log,
		host:   host,
		hooks:  hooks,
		conf:   conf,
		frozen: make(map[uuid.UUID]*frozen),
	}
}

// Freeze immobilises the session and starts its reminders. If chat is true and the actor is a player, the
// actor becomes the chat partner of the session. Freezing a frozen player restarts its state.
func (m *Manager) Freeze(_ game.View, s game.Session, actor game.Actor, chat bool) {
	f := &frozen{stop: make(chan struct{})}
	partner, isPlayer := actor.(game.Session)
	if chat && isPlayer {
		f.partner = partner.UUID()
	}

	m.mu.Lock()
	if old, ok := m.frozen[s.UUID()]; ok {
		close(old.stop)
	}
	m.frozen[s.UUID()] = f
	m.mu.Unlock()

	s.SetImmobile(true)
	if f.partner != uuid.Nil {
		partner.Message(locale.Translate("freeze.chat.opened", "target", s.Name()))
	}
	if m.conf.Interval > 0 && len(m.conf.Messages) > 0 {
		id := s.UUID()
		m.wg.Go(func() {
			m.remind(id, f.stop)
		})
	}
}

// remind sends the reminder messages to a frozen player until stop is closed.
func (m *Manager) remind(id uuid.UUID, stop <-chan struct{}) {
	t := time.NewTicker(m.conf.Interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			m.host.Exec(func(v game.View) {
				s, ok := v.Session(id)
				if !ok || !m.Frozen(id) {
					return
				}
				for _, msg := range m.conf.Messages {
					s.Message(locale.Colour(msg))
				}
			})
		}
	}
}

// Unfreeze releases a frozen player.
func (m *Manager) Unfreeze(v game.View, id uuid.UUID) {
	f, ok := m.remove(id)
	if !ok {
		return
	}
	if s, ok := v.Session(id); ok {
		s.SetImmobile(false)
		s.Message(locale.Translate("freeze.lifted"))
	}
	if p, ok := v.Session(f.partner); ok && f.partner != uuid.Nil {
		p.Message(locale.Translate("freeze.chat.closed"))
	}
}

// Frozen ...
func (m *Manager) Frozen(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.frozen[id]
	return ok
}

// Partner returns the chat partner of a frozen player.
func (m *Manager) Partner(id uuid.UUID) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frozen[id]
	if !ok || f.partner == uuid.Nil {
		return uuid.Nil, false
	}
	return f.partner, true
}

// AllowsCommand reports whether frozen players may run the command passed.
func (m *Manager) AllowsCommand(name string) bool {
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	return lo.ContainsBy(m.conf.AllowedCommands, func(c string) bool { return strings.EqualFold(c, name) })
}

// Chat routes a chat message of a frozen player to itself, its chat partner and staff. It returns false if
// the sender is not frozen, in which case the message is left alone.
func (m *Manager) Chat(v game.View, from game.Session, msg string) bool {
	m.mu.Lock()
	f, ok := m.frozen[from.UUID()]
	m.mu.Unlock()
	if !ok {
		return false
	}

	line := locale.Translate("freeze.chat.format", "player", from.Name(), "message", msg)
	from.Message(line)
	for s := range v.Sessions() {
		if s.UUID() == from.UUID() {
			continue
		}
		if s.UUID() == f.partner || s.HasPermission(ChatPermission) {
			s.Message(line)
		}
	}
	return true
}

// Quit stops the reminders of a frozen player that left and runs the disconnect actions as its chat
// partner. The freeze itself stays in effect for when the player returns.
func (m *Manager) Quit(v game.View, s game.Session) {
	f, ok := m.remove(s.UUID())
	if !ok {
		return
	}
	var actor game.Actor
	if p, ok := v.Session(f.partner); ok && f.partner != uuid.Nil {
		actor = p
		p.Message(locale.Translate("freeze.chat.left", "target", s.Name()))
	}
	m.hooks.Run(v, m.conf.OnDisconnect, s.UUID(), actor, "target", s.Name())
	m.log.Info("frozen player disconnected", "player", s.Name())
}

// remove ...
func (m *Manager) remove(id uuid.UUID) (*frozen, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frozen[id]
	if ok {
		close(f.stop)
		delete(m.frozen, id)
	}
	return f, ok
}

// Close stops every reminder.
func (m *Manager) Close() {
	m.mu.Lock()
	for id, f := range m.frozen {
		close(f.stop)
		delete(m.frozen, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

package hook

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/game/gametest"
	"github.com/smell-of-curry/warden/warden/locale"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Action
		ok   bool
	}{
		{in: "message: hello", want: Action{Type: Message, Payload: "hello"}, ok: true},
		{in: "BROADCAST:{target} was warned", want: Action{Type: Broadcast, Payload: "{target} was warned"}, ok: true},
		{in: "command:/mute {target} 1h spam", want: Action{Type: Command, Payload: "/mute {target} 1h spam"}, ok: true},
		{in: "title:nope"},
		{in: "no separator"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunnerRun(t *testing.T) {
	h := gametest.NewHost()
	target := h.Join("Steve", "10.0.0.1")
	mod := h.Join("Mod", "10.0.0.2")
	other := h.Join("Alex", "10.0.0.3")

	r := NewRunner(slog.Default())
	actions := []string{
		"message:you were warned: {reason}",
		"broadcast:{target} reached level {level}",
		"command:softban {target} 1h repeated",
		"bogus",
	}
	<-h.Exec(func(v game.View) {
		r.Run(v, actions, target.UUID(), mod, "target", "Steve", "reason", "spam", "level", 2)
	})

	assert.Equal(t, []string{locale.Colour("you were warned: spam"), locale.Colour("Steve reached level 2")}, target.Messages())
	assert.Equal(t, []string{locale.Colour("Steve reached level 2")}, other.Messages())
	assert.Equal(t, []string{"/softban Steve 1h repeated"}, mod.Commands())
}

func TestRunnerOfflineTargetAndConsole(t *testing.T) {
	h := gametest.NewHost()
	online := h.Join("Alex", "10.0.0.3")

	r := NewRunner(slog.Default())
	<-h.Exec(func(v game.View) {
		r.Run(v, []string{"message:hi", "command:kick {target}", "broadcast:bye"}, uuid.New(), gametest.NewActor("CONSOLE"))
	})
	assert.Equal(t, []string{locale.Colour("bye")}, online.Messages())
	assert.Empty(t, online.Commands())
}

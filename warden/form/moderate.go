package form

import (
	"strings"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/samber/lo"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/warden/warden/punishment"
)

// Moderate represents a form for moderating a specific player by their name.
// It displays options for issuing or lifting punishments.
type Moderate struct {
	target string
}

// NewModerate creates a new moderation menu for the specified target player.
func NewModerate(target string) form.Menu {
	f := form.NewMenu(Moderate{target: target}, text.Colourf("<yellow>Moderating '%s'</yellow>", target))
	return f.WithButtons(
		form.NewButton("Issue a punishment", ""),
		form.NewButton("Lift a punishment", ""),
	)
}

// Submit redirects to the form of the selected button.
func (m Moderate) Submit(sub form.Submitter, b form.Button, _ *world.Tx) {
	p := sub.(*player.Player)
	switch strings.ToLower(text.Clean(b.Text)) {
	case "issue a punishment":
		p.SendForm(NewIssue(m.target))
	case "lift a punishment":
		p.SendForm(NewLift(m.target))
	}
}

// Issue is a form for punishing a player. Submitting it runs the punishment command, so permissions and
// validation are those of the command.
type Issue struct {
	Kind     form.Dropdown
	Duration form.Input
	Reason   form.Input
	ByIP     form.Toggle

	target string
}

// NewIssue ...
func NewIssue(target string) form.Custom {
	return form.New(Issue{
		Kind:     form.NewDropdown("Punishment:", kindNames(punishment.Kinds()), 0),
		Duration: form.NewInput("Duration (ignored for kicks and warns):", "", "1d 12h or Permanent"),
		Reason:   form.NewInput("Reason:", "", "Griefing"),
		ByIP:     form.NewToggle("Punish the address", false),
		target:   target,
	}, text.Colourf("<yellow>Punishing '%s'</yellow>", target))
}

// Submit ...
func (i Issue) Submit(sub form.Submitter, _ *world.Tx) {
	k := punishment.Kinds()[i.Kind.Value()]
	sub.(*player.Player).ExecuteCommand(punishCommand(k, i.target, i.Duration.Value(), i.Reason.Value(), i.ByIP.Value()))
}

// Lift is a form for lifting a punishment of a player.
type Lift struct {
	Kind form.Dropdown

	target string
}

// NewLift ...
func NewLift(target string) form.Custom {
	return form.New(Lift{
		Kind:   form.NewDropdown("Punishment:", kindNames(liftable()), 0),
		target: target,
	}, text.Colourf("<yellow>Lifting a punishment of '%s'</yellow>", target))
}

// Submit ...
func (l Lift) Submit(sub form.Submitter, _ *world.Tx) {
	k := liftable()[l.Kind.Value()]
	sub.(*player.Player).ExecuteCommand("/un" + k.String() + " " + quote(l.target))
}

// liftable returns the kinds of punishments that can be lifted.
func liftable() []punishment.Kind {
	return lo.Filter(punishment.Kinds(), func(k punishment.Kind, _ int) bool { return k.Timed() })
}

// kindNames ...
func kindNames(kinds []punishment.Kind) []string {
	return lo.Map(kinds, func(k punishment.Kind, _ int) string { return k.String() })
}

// punishCommand returns the command line issuing a punishment. The duration is left out for kinds without
// one and defaults to permanent otherwise.
func punishCommand(k punishment.Kind, target, duration, reason string, byIP bool) string {
	parts := []string{"/" + k.String()}
	if byIP && k.Timed() {
		parts = append(parts, "ip")
	}
	parts = append(parts, quote(target))
	if k.Timed() {
		duration = strings.Join(strings.Fields(duration), "")
		if duration == "" {
			duration = "permanent"
		}
		parts = append(parts, duration)
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		parts = append(parts, reason)
	}
	return strings.Join(parts, " ")
}

// quote quotes names containing spaces.
func quote(name string) string {
	if strings.ContainsRune(name, ' ') {
		return `"` + name + `"`
	}
	return name
}

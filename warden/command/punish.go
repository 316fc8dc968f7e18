// Package command provides the moderation commands of the server.
package command

import (
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/punishment"
)

// Punish issues a timed punishment, such as "/ban Steve 7d griefing".
type Punish struct {
	Target   string      `name:"target"`
	Duration string      `name:"duration"`
	Reason   cmd.Varargs `name:"reason" optional:"true"`

	punisher
}

// PunishIP issues a timed punishment against the address of the target, such as "/ban ip Steve 7d alts".
type PunishIP struct {
	IP       cmd.SubCommand `cmd:"ip"`
	Target   string         `name:"target"`
	Duration string         `name:"duration"`
	Reason   cmd.Varargs    `name:"reason" optional:"true"`

	punisher
}

// Sanction issues a punishment without duration: a kick or a warn.
type Sanction struct {
	Target string      `name:"target"`
	Reason cmd.Varargs `name:"reason" optional:"true"`

	punisher
}

// punisher ...
type punisher struct {
	kind punishment.Kind
	deps *Deps

	permissionAllower
}

// NewPunish creates the command issuing punishments of the Kind passed. Kicks and warns take no duration.
func NewPunish(d *Deps, k punishment.Kind, aliases ...string) cmd.Command {
	p := punisher{kind: k, deps: d, permissionAllower: permissionAllower{perm: "warden.command." + k.String()}}
	desc := "Issue a " + k.String() + " against a player"
	if !k.Timed() {
		return cmd.New(k.String(), desc, aliases, Sanction{punisher: p})
	}
	return cmd.New(k.String(), desc, aliases, Punish{punisher: p}, PunishIP{punisher: p})
}

// Run ...
func (p Punish) Run(src cmd.Source, _ *cmd.Output, tx *world.Tx) {
	p.issue(src, tx, p.Target, p.Duration, string(p.Reason), nil)
}

// Run ...
func (p PunishIP) Run(src cmd.Source, _ *cmd.Output, tx *world.Tx) {
	byIP := true
	p.issue(src, tx, p.Target, p.Duration, string(p.Reason), &byIP)
}

// Run ...
func (s Sanction) Run(src cmd.Source, _ *cmd.Output, tx *world.Tx) {
	s.issue(src, tx, s.Target, "", string(s.Reason), nil)
}

// issue resolves the target and hands the request to the orchestrator, which reports the outcome to the
// actor.
func (p punisher) issue(src cmd.Source, tx *world.Tx, target, duration, reason string, byIP *bool) {
	p.request(game.TxView(tx), p.deps.actorOf(src), target, duration, reason, byIP)
}

// request ...
func (p punisher) request(v game.View, actor game.Actor, target, duration, reason string, byIP *bool) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "No reason provided"
	}
	p.deps.resolve(v, actor, target, func(v game.View, actor game.Actor, prof game.Profile) {
		p.deps.Punishments.Issue(v, punishment.Request{
			Actor:    actor,
			Target:   prof,
			Kind:     p.kind,
			Duration: duration,
			Reason:   reason,
			ByIP:     byIP,
		})
	})
}

// Lift lifts the active punishments of a Kind, such as "/unmute Steve".
type Lift struct {
	Target string `name:"target"`

	kind punishment.Kind
	deps *Deps

	permissionAllower
}

// NewLift creates the command lifting punishments of the Kind passed.
func NewLift(d *Deps, k punishment.Kind, aliases ...string) cmd.Command {
	return cmd.New("un"+k.String(), "Lift the "+k.String()+" of a player", aliases, Lift{
		kind:              k,
		deps:              d,
		permissionAllower: permissionAllower{perm: "warden.command.un" + k.String()},
	})
}

// Run ...
func (l Lift) Run(src cmd.Source, _ *cmd.Output, tx *world.Tx) {
	l.lift(game.TxView(tx), l.deps.actorOf(src))
}

// lift ...
func (l Lift) lift(v game.View, actor game.Actor) {
	l.deps.resolve(v, actor, l.Target, func(v game.View, actor game.Actor, prof game.Profile) {
		l.deps.Punishments.Lift(v, actor, l.kind, prof)
	})
}

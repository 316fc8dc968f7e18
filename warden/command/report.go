package command

import (
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/smell-of-curry/warden/warden/game"
)

// Report starts a report conversation, or files a report directly if a reason is given:
// "/report", "/report Steve" and "/report Steve flying".
type Report struct {
	Target cmd.Optional[string] `name:"player"`
	Reason cmd.Varargs          `name:"reason" optional:"true"`

	deps *Deps
}

// NewReport ...
func NewReport(d *Deps) cmd.Command {
	return cmd.New("report", "Report a player, a clan or a problem with the server", nil, Report{deps: d})
}

// Allow ...
func (Report) Allow(src cmd.Source) bool {
	_, ok := src.(*player.Player)
	return ok
}

// Run ...
func (r Report) Run(src cmd.Source, _ *cmd.Output, tx *world.Tx) {
	target, _ := r.Target.Load()
	r.report(game.TxView(tx), game.PlayerSession(src.(*player.Player)), target, string(r.Reason))
}

// report ...
func (r Report) report(v game.View, s game.Session, target, reason string) {
	reports := r.deps.Reports
	target, reason = strings.TrimSpace(target), strings.TrimSpace(reason)
	if target == "" {
		_ = reports.Start(v, s)
		return
	}
	r.deps.resolve(v, s, target, func(v game.View, actor game.Actor, p game.Profile) {
		s, ok := actor.(game.Session)
		if !ok {
			return
		}
		if reason == "" {
			_ = reports.StartAgainst(v, s, p)
			return
		}
		_ = reports.Direct(v, s, p, reason)
	})
}

// ReportAction dispatches a report menu action, such as "/reportaction select_category Chat". Values encode
// spaces as _SPACE_.
type ReportAction struct {
	Action string      `name:"action"`
	Value  cmd.Varargs `name:"value"`

	deps *Deps
}

// NewReportAction ...
func NewReportAction(d *Deps) cmd.Command {
	return cmd.New("reportaction", "Answer the report menu", nil, ReportAction{deps: d})
}

// Allow ...
func (ReportAction) Allow(src cmd.Source) bool {
	_, ok := src.(*player.Player)
	return ok
}

// Run ...
func (a ReportAction) Run(src cmd.Source, _ *cmd.Output, tx *world.Tx) {
	s := game.PlayerSession(src.(*player.Player))
	_ = a.deps.Reports.HandleAction(game.TxView(tx), s, a.Action, strings.TrimSpace(string(a.Value)))
}

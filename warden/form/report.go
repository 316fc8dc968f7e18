// Package form provides the menus used by moderation features.
package form

import (
	"strings"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/samber/lo"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/report"
)

// ReportPresenter shows report pages as menus. Pressing a button runs the report action command of its
// option, so forms and typed commands share one route into the conversation.
type ReportPresenter struct{}

// Present ...
func (ReportPresenter) Present(s game.Session, page report.Page) {
	p, ok := game.PlayerOf(s)
	if !ok {
		return
	}
	btns := lo.Map(page.Options, func(o report.Option, _ int) form.Button {
		return form.NewButton(o.Text, "")
	})
	p.SendForm(form.NewMenu(reportMenu{options: page.Options}, page.Title).WithButtons(btns...))
}

// reportMenu ...
type reportMenu struct {
	options []report.Option
}

// Submit ...
func (m reportMenu) Submit(sub form.Submitter, b form.Button, _ *world.Tx) {
	p := sub.(*player.Player)
	opt, ok := lo.Find(m.options, func(o report.Option) bool { return o.Text == b.Text })
	if !ok {
		return
	}
	p.ExecuteCommand(actionCommand(opt))
}

// Close ...
func (m reportMenu) Close(sub form.Submitter, _ *world.Tx) {
	sub.(*player.Player).Message(locale.Translate("report.menu_closed"))
}

// actionCommand returns the command line that applies the option.
func actionCommand(o report.Option) string {
	return strings.Join([]string{"/reportaction", string(o.Action), report.EncodeValue(o.Value)}, " ")
}

package report

import (
	"strings"

	"github.com/samber/lo"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
)

// State is the step a Draft is at.
type State int

const (
	StateNone State = iota
	StateBrowsing
	StateChoosingTarget
	StateAwaitingPlayerName
	StateAwaitingClanName
	// StateResolving is held while a player name is looked up.
	StateResolving
	StateChoosingCategory
	StateChoosingReason
	StateAwaitingCustomReason
	StateAwaitingDetails
)

// String ...
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateBrowsing:
		return "browsing"
	case StateChoosingTarget:
		return "choosing_target"
	case StateAwaitingPlayerName:
		return "awaiting_player_name"
	case StateAwaitingClanName:
		return "awaiting_clan_name"
	case StateResolving:
		return "resolving"
	case StateChoosingCategory:
		return "choosing_category"
	case StateChoosingReason:
		return "choosing_reason"
	case StateAwaitingCustomReason:
		return "awaiting_custom_reason"
	case StateAwaitingDetails:
		return "awaiting_details"
	}
	panic("should never happen")
}

// Awaiting reports whether the next chat line of the requester answers the draft.
func (s State) Awaiting() bool {
	_, ok := answers[s]
	return ok
}

// Action is a menu action sent by a requester.
type Action string

const (
	ActionSelectTargetType Action = "select_target_type"
	ActionSelectPlayerType Action = "select_player_type"
	ActionSelectCategory   Action = "select_category"
	ActionSelectReason     Action = "select_reason"
)

// Actions ...
func Actions() []Action {
	return []Action{ActionSelectTargetType, ActionSelectPlayerType, ActionSelectCategory, ActionSelectReason}
}

// ParseAction ...
func ParseAction(s string) (Action, bool) {
	return lo.Find(Actions(), func(a Action) bool { return strings.EqualFold(string(a), strings.TrimSpace(s)) })
}

// CustomReason is the reason value that asks the requester to type a reason.
const CustomReason = "CUSTOM"

const spaceToken = "_SPACE_"

// EncodeValue encodes an action value so that it survives as a single command argument.
func EncodeValue(v string) string {
	return strings.ReplaceAll(v, " ", spaceToken)
}

// DecodeValue reverses EncodeValue.
func DecodeValue(v string) string {
	return strings.ReplaceAll(v, spaceToken, " ")
}

// Option is a clickable entry of a Page.
type Option struct {
	Text   string
	Action Action
	Value  string
}

// Page is a menu shown to a requester.
type Page struct {
	Title   string
	Options []Option
}

// Presenter shows report menus to players. Choosing an option must result in a call to Engine.HandleAction.
type Presenter interface {
	Present(s game.Session, p Page)
}

// step handles a menu action for a draft in a specific state.
type step func(e *Engine, v game.View, s game.Session, d *Draft, value string) error

// transitions holds every valid (state, action) pair. Pairs absent from the table are rejected.
var transitions = map[State]map[Action]step{
	StateBrowsing:         {ActionSelectTargetType: (*Engine).selectTargetType},
	StateChoosingTarget:   {ActionSelectPlayerType: (*Engine).selectPlayerType},
	StateChoosingCategory: {ActionSelectCategory: (*Engine).selectCategory},
	StateChoosingReason:   {ActionSelectReason: (*Engine).selectReason},
}

// answer handles a chat line for a draft waiting on input.
type answer func(e *Engine, v game.View, s game.Session, d *Draft, input string)

var answers = map[State]answer{
	StateAwaitingPlayerName:   (*Engine).answerPlayer,
	StateAwaitingClanName:     (*Engine).answerClan,
	StateAwaitingCustomReason: (*Engine).answerCustomReason,
	StateAwaitingDetails:      (*Engine).answerDetails,
}

// targetPage ...
func targetPage() Page {
	return Page{Title: locale.Translate("report.page.target"), Options: []Option{
		{Text: locale.Translate("report.option.player"), Action: ActionSelectTargetType, Value: TargetPlayer.String()},
		{Text: locale.Translate("report.option.clan"), Action: ActionSelectTargetType, Value: TargetClan.String()},
		{Text: locale.Translate("report.option.server"), Action: ActionSelectTargetType, Value: TargetServer.String()},
	}}
}

// playerTypePage ...
func playerTypePage() Page {
	return Page{Title: locale.Translate("report.page.player_type"), Options: []Option{
		{Text: locale.Translate("report.option.player"), Action: ActionSelectPlayerType, Value: TargetPlayer.String()},
		{Text: locale.Translate("report.option.clan"), Action: ActionSelectPlayerType, Value: TargetClan.String()},
	}}
}

// categoryPage lists the categories that apply to the kind passed.
func categoryPage(conf Config, k TargetKind) Page {
	cats := lo.Filter(conf.Categories, func(c Category, _ int) bool { return c.For(k) })
	return Page{
		Title: locale.Translate("report.page.category"),
		Options: lo.Map(cats, func(c Category, _ int) Option {
			return Option{Text: locale.Colour(c.Name), Action: ActionSelectCategory, Value: c.Name}
		}),
	}
}

// reasonPage lists the reasons of a category followed by the custom reason option.
func reasonPage(c Category) Page {
	opts := lo.Map(c.Reasons, func(r string, _ int) Option {
		return Option{Text: locale.Colour(r), Action: ActionSelectReason, Value: r}
	})
	opts = append(opts, Option{Text: locale.Translate("report.option.custom"), Action: ActionSelectReason, Value: CustomReason})
	return Page{Title: locale.Translate("report.page.reason", "category", c.Name), Options: opts}
}

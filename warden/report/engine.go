package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
)

const (
	// ViewPermission is held by staff notified of new reports.
	ViewPermission = "warden.report.view"
	// BypassPermission lifts the report cooldown and rate limit.
	BypassPermission = "warden.report.bypass"
)

// Engine runs the report conversations of every player. Its methods other than Close must be called on the
// world goroutine.
type Engine struct {
	log       *slog.Logger
	host      game.Host
	store     Store
	players   game.Directory
	presenter Presenter
	conf      Config

	mu      sync.Mutex
	drafts  map[uuid.UUID]*Draft
	history map[uuid.UUID][]time.Time

	wg  conc.WaitGroup
	now func() time.Time
}

// NewEngine ...
func NewEngine(log *slog.Logger, host game.Host, store Store, players game.Directory, presenter Presenter, conf Config) *Engine {
	return &Engine{
		log:       log,
		host:      host,
		store:     store,
		players:   players,
		presenter: presenter,
		conf:      conf,
		drafts:    make(map[uuid.UUID]*Draft),
		history:   make(map[uuid.UUID][]time.Time),
		now:       time.Now,
	}
}

// Start starts a new conversation for the session, replacing any draft it had.
func (e *Engine) Start(_ game.View, s game.Session) error {
	if err := e.allowed(s); err != nil {
		return err
	}
	e.put(&Draft{Requester: game.ProfileOf(s), State: StateBrowsing})
	e.presenter.Present(s, targetPage())
	return nil
}

// StartAgainst starts a conversation against a known player, skipping straight to the categories.
func (e *Engine) StartAgainst(_ game.View, s game.Session, target game.Profile) error {
	if target.UUID == s.UUID() {
		s.Message(locale.Translate("report.self"))
		return ErrSelfReport
	}
	if err := e.allowed(s); err != nil {
		return err
	}
	d := &Draft{
		Requester:  game.ProfileOf(s),
		Kind:       TargetPlayer,
		Target:     target.UUID,
		TargetName: target.Name,
		State:      StateChoosingCategory,
	}
	e.put(d)
	e.presenter.Present(s, categoryPage(e.conf, d.Kind))
	return nil
}

// Direct files a report against a player without a conversation.
func (e *Engine) Direct(v game.View, s game.Session, target game.Profile, reason string) error {
	if target.UUID == s.UUID() {
		s.Message(locale.Translate("report.self"))
		return ErrSelfReport
	}
	if err := e.allowed(s); err != nil {
		return err
	}
	e.submit(v, &Draft{
		Requester:  game.ProfileOf(s),
		Kind:       TargetPlayer,
		Target:     target.UUID,
		TargetName: target.Name,
		Category:   "Direct",
		Reason:     reason,
		Details:    "N/A",
	})
	return nil
}

// HandleAction applies a menu action to the draft of the session. Values have EncodeValue undone first.
func (e *Engine) HandleAction(v game.View, s game.Session, action, value string) error {
	d, ok := e.draft(s.UUID())
	if !ok {
		s.Message(locale.Translate("report.no_session"))
		return ErrNoDraft
	}
	a, _ := ParseAction(action)
	st, ok := transitions[d.State][a]
	if !ok {
		s.Message(locale.Translate("report.invalid_action"))
		return fmt.Errorf("%w: %s during %s", ErrInvalidAction, action, d.State)
	}
	return st(e, v, s, d, DecodeValue(value))
}

// HandleChat consumes a chat line of the session if its draft is waiting on input. It returns false if the
// message should be delivered as normal chat.
func (e *Engine) HandleChat(v game.View, s game.Session, msg string) bool {
	d, ok := e.draft(s.UUID())
	if !ok || (!d.State.Awaiting() && d.State != StateResolving) {
		return false
	}
	input := strings.TrimSpace(msg)
	if strings.EqualFold(input, "cancel") {
		e.Cancel(s.UUID())
		s.Message(locale.Translate("report.cancelled"))
		return true
	}
	if input == "" || d.State == StateResolving {
		return true
	}
	ans := answers[d.State]
	d.State = StateNone
	ans(e, v, s, d, input)
	return true
}

// Cancel destroys the draft of the player passed. It returns false if there was none.
func (e *Engine) Cancel(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.drafts[id]
	delete(e.drafts, id)
	return ok
}

// Draft returns a copy of the draft of the player passed.
func (e *Engine) Draft(id uuid.UUID) (Draft, bool) {
	d, ok := e.draft(id)
	if !ok {
		return Draft{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *d, true
}

// Close waits for pending submissions.
func (e *Engine) Close() {
	e.wg.Wait()
}

// selectTargetType ...
func (e *Engine) selectTargetType(_ game.View, s game.Session, d *Draft, value string) error {
	k, ok := ParseTargetKind(value)
	if !ok {
		return e.invalid(s, value)
	}
	d.Kind = k
	if k == TargetServer {
		d.State = StateChoosingCategory
		e.presenter.Present(s, categoryPage(e.conf, k))
		return nil
	}
	d.State = StateChoosingTarget
	e.presenter.Present(s, playerTypePage())
	return nil
}

// selectPlayerType ...
func (e *Engine) selectPlayerType(_ game.View, s game.Session, d *Draft, value string) error {
	k, ok := ParseTargetKind(value)
	switch {
	case ok && k == TargetPlayer:
		d.Kind, d.State = TargetPlayer, StateAwaitingPlayerName
		s.Message(locale.Translate("report.prompt.player"))
	case ok && k == TargetClan:
		d.Kind, d.State = TargetClan, StateAwaitingClanName
		s.Message(locale.Translate("report.prompt.clan"))
	default:
		return e.invalid(s, value)
	}
	return nil
}

// selectCategory ...
func (e *Engine) selectCategory(_ game.View, s game.Session, d *Draft, value string) error {
	c, ok := e.conf.category(d.Kind, value)
	if !ok {
		return e.invalid(s, value)
	}
	d.Category, d.State = c.Name, StateChoosingReason
	e.presenter.Present(s, reasonPage(c))
	return nil
}

// selectReason ...
func (e *Engine) selectReason(_ game.View, s game.Session, d *Draft, value string) error {
	if strings.EqualFold(value, CustomReason) {
		d.State = StateAwaitingCustomReason
		s.Message(locale.Translate("report.prompt.reason"))
		return nil
	}
	c, _ := e.conf.category(d.Kind, d.Category)
	reason, ok := lo.Find(c.Reasons, func(r string) bool { return strings.EqualFold(r, value) })
	if !ok {
		return e.invalid(s, value)
	}
	d.Reason, d.State = reason, StateAwaitingDetails
	s.Message(locale.Translate("report.prompt.details"))
	return nil
}

// answerPlayer resolves the name of the reported player. Names of online players are resolved immediately,
// other names are looked up in the player directory on a worker goroutine.
func (e *Engine) answerPlayer(v game.View, s game.Session, d *Draft, name string) {
	if strings.EqualFold(name, s.Name()) {
		e.Cancel(s.UUID())
		s.Message(locale.Translate("report.self"))
		return
	}
	if t, ok := v.SessionByName(name); ok {
		e.targetChosen(s, d, game.ProfileOf(t))
		return
	}

	d.State = StateResolving
	requester := s.UUID()
	e.wg.Go(func() {
		p, found, err := e.players.PlayerByName(context.Background(), name)
		<-e.host.Exec(func(v game.View) {
			s, online := v.Session(requester)
			if !online || !e.current(requester, d) {
				return
			}
			switch {
			case err != nil:
				e.log.Error("failed to look up reported player", "name", name, "error", err)
				e.Cancel(requester)
				s.Message(locale.Translate("report.lookup_failed"))
			case !found:
				e.Cancel(requester)
				s.Message(locale.Translate("report.never_played", "target", name))
			case p.UUID == requester:
				e.Cancel(requester)
				s.Message(locale.Translate("report.self"))
			default:
				e.targetChosen(s, d, p)
			}
		})
	})
}

// targetChosen ...
func (e *Engine) targetChosen(s game.Session, d *Draft, p game.Profile) {
	d.Target, d.TargetName, d.State = p.UUID, p.Name, StateChoosingCategory
	e.presenter.Present(s, categoryPage(e.conf, d.Kind))
}

// answerClan ...
func (e *Engine) answerClan(_ game.View, s game.Session, d *Draft, name string) {
	d.TargetName, d.State = name, StateChoosingCategory
	e.presenter.Present(s, categoryPage(e.conf, d.Kind))
}

// answerCustomReason ...
func (e *Engine) answerCustomReason(_ game.View, s game.Session, d *Draft, reason string) {
	d.Reason, d.State = reason, StateAwaitingDetails
	s.Message(locale.Translate("report.prompt.details"))
}

// answerDetails completes the draft and submits it.
func (e *Engine) answerDetails(v game.View, _ game.Session, d *Draft, details string) {
	d.Details = details
	e.submit(v, d)
}

// submit removes the draft and stores it on a worker goroutine. The target is snapshotted if it is online.
func (e *Engine) submit(v game.View, d *Draft) {
	requester := d.Requester.UUID
	e.mu.Lock()
	if e.drafts[requester] == d {
		delete(e.drafts, requester)
	}
	e.mu.Unlock()

	var snapshot string
	if d.Kind == TargetPlayer && d.Target != uuid.Nil {
		if t, ok := v.Session(d.Target); ok {
			snapshot = t.Snapshot().String()
		}
	}
	rec := d.record(snapshot, e.now())

	e.wg.Go(func() {
		id, err := e.store.CreateReport(context.Background(), rec)
		<-e.host.Exec(func(v game.View) {
			s, online := v.Session(requester)
			if err != nil {
				e.log.Error("failed to store report", "requester", rec.RequesterName, "error", fmt.Errorf("%w: %w", ErrPersistence, err))
				if online {
					s.Message(locale.Translate("report.submit_failed"))
				}
				return
			}
			e.recordSubmission(requester)
			if online {
				s.Message(locale.Translate("report.submitted", "id", id))
			}
			e.notify(v, rec)
			e.log.Info("report submitted", "id", id, "requester", rec.RequesterName, "target", rec.TargetName, "category", rec.Category)
		})
	})
}

// notify tells online staff about a new report.
func (e *Engine) notify(v game.View, rec Record) {
	target := rec.TargetName
	if target == "" {
		target = rec.Kind.String()
	}
	msg := locale.Translate("report.staff_notification", "requester", rec.RequesterName, "target", target, "reason", rec.Reason)
	for s := range v.Sessions() {
		if s.HasPermission(ViewPermission) {
			s.Message(msg)
		}
	}
}

// allowed checks the cooldown and rate limit of the session.
func (e *Engine) allowed(s game.Session) error {
	if s.HasPermission(BypassPermission) {
		return nil
	}
	now := e.now()

	e.mu.Lock()
	stamps := e.prune(s.UUID(), now)
	e.mu.Unlock()

	if e.conf.Cooldown > 0 && len(stamps) > 0 {
		if since := now.Sub(stamps[len(stamps)-1]); since < e.conf.Cooldown {
			left := (e.conf.Cooldown - since + time.Second - 1) / time.Second
			s.Message(locale.Translate("report.cooldown", "time", strconv.Itoa(int(left))))
			return ErrCooldown
		}
	}
	if e.conf.RateLimit > 0 {
		recent := lo.CountBy(stamps, func(t time.Time) bool { return now.Sub(t) < e.conf.RatePeriod })
		if recent >= e.conf.RateLimit {
			s.Message(locale.Translate("report.rate_limit"))
			return ErrRateLimited
		}
	}
	return nil
}

// recordSubmission remembers the time of a successful report for the cooldown and rate limit.
func (e *Engine) recordSubmission(id uuid.UUID) {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history[id] = append(e.prune(id, now), now)
}

// prune drops the timestamps of a player that no longer count towards any limit. e.mu must be held.
func (e *Engine) prune(id uuid.UUID, now time.Time) []time.Time {
	keep := max(e.conf.Cooldown, e.conf.RatePeriod)
	stamps := lo.Filter(e.history[id], func(t time.Time, _ int) bool { return now.Sub(t) < keep })
	if len(stamps) == 0 {
		delete(e.history, id)
		return nil
	}
	e.history[id] = stamps
	return stamps
}

// invalid ...
func (e *Engine) invalid(s game.Session, value string) error {
	s.Message(locale.Translate("report.invalid_option", "option", value))
	return fmt.Errorf("%w: %q", ErrInvalidValue, value)
}

// put ...
func (e *Engine) put(d *Draft) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drafts[d.Requester.UUID] = d
}

// draft ...
func (e *Engine) draft(id uuid.UUID) (*Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.drafts[id]
	return d, ok
}

// current reports whether d is still the draft of the player passed.
func (e *Engine) current(id uuid.UUID, d *Draft) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts[id] == d
}

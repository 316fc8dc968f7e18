package punishment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
)

// WarnLevel configures one warn escalation tier.
type WarnLevel struct {
	// Expiration is the duration string after which a warning at this level expires.
	Expiration string
	// OnWarn and OnExpire hold hook actions run when a warning reaches or leaves this level.
	OnWarn   []string
	OnExpire []string
}

// Warns escalates repeated warnings through the configured warn levels.
type Warns struct {
	o      *Orchestrator
	levels map[int]WarnLevel
}

// Level returns the configuration of a warn level.
func (w *Warns) Level(n int) (WarnLevel, bool) {
	l, ok := w.levels[n]
	return l, ok
}

// Issue warns the target of req at the level following its active warning, or at level 1 if it has none.
// The Duration of req overrides the expiration of the level unless it is empty or "default".
func (w *Warns) Issue(_ game.View, req Request) <-chan Result {
	res := make(chan Result, 1)
	w.o.wg.Go(func() {
		res <- w.issue(req)
	})
	return res
}

// issue runs on a worker goroutine while holding the lock of the target.
func (w *Warns) issue(req Request) Result {
	o := w.o
	unlock := o.locks.Lock(req.Target.UUID)
	defer unlock()

	ctx := context.Background()
	now := o.now()
	prev, ok, err := o.store.LatestActiveWarning(ctx, req.Target.UUID)
	if err != nil {
		o.log.Error("failed to load active warning", "target", req.Target.Name, "error", err)
		return o.fail(req.Actor, fmt.Errorf("%w: %w", ErrPersistence, err), "punishment.error.persistence")
	}
	level := 1
	if ok && !prev.Expired(now) {
		level = prev.Level + 1
	}
	conf, ok := w.Level(level)
	if !ok {
		return o.fail(req.Actor, ErrNoWarnLevel, "punishment.warn.no_level", "target", req.Target.Name, "level", strconv.Itoa(level))
	}

	expiration := strings.TrimSpace(req.Duration)
	if expiration == "" || strings.EqualFold(expiration, "default") {
		expiration = conf.Expiration
	}
	end, label := o.durations.resolve(expiration, now)

	rec := Record{
		Target:        req.Target.UUID,
		TargetName:    req.Target.Name,
		Kind:          Warn,
		Reason:        req.Reason,
		Actor:         req.Actor.Name(),
		Created:       now.UnixMilli(),
		EndTime:       end,
		DurationLabel: label,
		WarnLevel:     level,
	}
	id, err := o.store.Execute(ctx, rec)
	if err != nil {
		o.log.Error("failed to persist warning", "target", rec.TargetName, "level", level, "error", err)
		return o.fail(req.Actor, fmt.Errorf("%w: %w", ErrPersistence, err), "punishment.error.persistence")
	}
	err = o.store.AddActiveWarning(ctx, ActiveWarning{Target: rec.Target, PunishmentID: id, Level: level, EndTime: end})
	if err != nil {
		o.log.Error("failed to register active warning", "id", id, "level", level, "error", err)
		return o.fail(req.Actor, fmt.Errorf("%w: %w", ErrPersistence, err), "punishment.error.persistence")
	}

	<-o.host.Exec(func(v game.View) {
		actor := game.Rebind(v, req.Actor)
		a := application{rec: rec, id: id, actor: actor, primary: true}
		target, online := v.Session(rec.Target)

		effects[Warn](o, v, a, target, online)
		o.hooks.Run(v, conf.OnWarn, rec.Target, actor, o.vars(a, nil)...)
		o.confirm(actor, a, "punishment.warn.confirm")
		o.hooks.Run(v, o.conf.Of(Warn).OnPunish, rec.Target, actor, o.vars(a, nil)...)
		o.log.Info("issued warning", "id", id, "target", rec.TargetName, "level", level, "actor", rec.Actor)
	})
	return Result{ID: id}
}

// Expire runs the expiration hooks of a warning that ran out. It must be called on the world goroutine.
func (w *Warns) Expire(v game.View, ew ExpiredWarning) {
	aw := ew.ActiveWarning
	conf, ok := w.Level(aw.Level)
	if !ok {
		return
	}
	w.o.hooks.Run(v, conf.OnExpire, aw.Target, nil,
		"target", ew.TargetName,
		"level", strconv.Itoa(aw.Level),
		"id", aw.PunishmentID,
	)
	if s, ok := v.Session(aw.Target); ok {
		s.Message(locale.Translate("punishment.warn.expired", "level", strconv.Itoa(aw.Level)))
	}
}

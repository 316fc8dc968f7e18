// Package punishment validates, persists, applies and propagates punishments.
package punishment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/smell-of-curry/warden/warden/cache"
	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/hook"
	"github.com/smell-of-curry/warden/warden/locale"
)

var (
	ErrTargetOffline     = errors.New("target is not connected")
	ErrBypass            = errors.New("target bypasses this punishment")
	ErrCommandLoop       = errors.New("punishment command is owned by this server")
	ErrNoCommand         = errors.New("no punishment command configured")
	ErrConsoleDelegation = errors.New("delegated punishments must be issued by a player")
	ErrAddressUnresolved = errors.New("no address known for target")
	ErrNoWarnLevel       = errors.New("no warn level configured")
	ErrPersistence       = errors.New("punishment could not be saved")
	ErrNotLiftable       = errors.New("punishment cannot be lifted")
)

// KindConfig configures how a Kind is issued.
type KindConfig struct {
	// Internal punishments are applied by this server. Others are delegated to Command.
	Internal bool
	// Command is the command template run for delegated punishments, for example "ban {target} {time} {reason}".
	Command string
	// ByIP makes punishments address scoped unless a request overrides it.
	ByIP bool
	// OnPunish holds hook actions run after the punishment was applied.
	OnPunish []string
}

// Config ...
type Config struct {
	Kinds map[Kind]KindConfig
	// SoftbanCommands are the commands blocked by newly issued softbans.
	SoftbanCommands []string
	// WarnLevels holds the configuration of every warn level, keyed by level.
	WarnLevels map[int]WarnLevel
}

// Of returns the KindConfig of k. Unconfigured kinds are internal and locally scoped.
func (c Config) Of(k Kind) KindConfig {
	if kc, ok := c.Kinds[k]; ok {
		return kc
	}
	return KindConfig{Internal: true}
}

// Commands reports which command names are registered by this server.
type Commands interface {
	Owns(name string) bool
}

// Deps holds the collaborators of an Orchestrator.
type Deps struct {
	Host      game.Host
	Store     Store
	Cache     *cache.Manager
	Freezer   Freezer
	Bans      Banner
	Hooks     *hook.Runner
	Commands  Commands
	Durations *Durations
}

// Request is a request to punish a target.
type Request struct {
	Actor    game.Actor
	Target   game.Profile
	Kind     Kind
	Duration string
	Reason   string
	// ByIP overrides the configured scope of the Kind when non-nil.
	ByIP *bool
}

// Result is the outcome of a Request. ID is empty if Err is non-nil.
type Result struct {
	ID  string
	Err error
}

// Orchestrator is the entry point of punishments. Issue is called on the world goroutine; Store calls happen
// on worker goroutines, after which effects are applied back on the world goroutine through the Host.
type Orchestrator struct {
	log  *slog.Logger
	conf Config

	host      game.Host
	store     Store
	cache     *cache.Manager
	freezer   Freezer
	bans      Banner
	hooks     *hook.Runner
	commands  Commands
	durations *Durations

	warns *Warns
	prop  *Propagator
	locks *keyedLock
	wg    conc.WaitGroup
	now   func() time.Time
}

// NewOrchestrator ...
func NewOrchestrator(log *slog.Logger, conf Config, d Deps) *Orchestrator {
	o := &Orchestrator{
		log:       log,
		conf:      conf,
		host:      d.Host,
		store:     d.Store,
		cache:     d.Cache,
		freezer:   d.Freezer,
		bans:      d.Bans,
		hooks:     d.Hooks,
		commands:  d.Commands,
		durations: d.Durations,
		locks:     newKeyedLock(),
		now:       time.Now,
	}
	o.warns = &Warns{o: o, levels: conf.WarnLevels}
	o.prop = NewPropagator(log, o.applyPropagated)
	return o
}

// Warns returns the warn escalation engine of the Orchestrator.
func (o *Orchestrator) Warns() *Warns {
	return o.warns
}

// Durations ...
func (o *Orchestrator) Durations() *Durations {
	return o.durations
}

// Issue validates req and, if valid, persists and applies it. The returned channel receives exactly one
// Result. Issue must be called on the world goroutine with a View of the current transaction.
func (o *Orchestrator) Issue(v game.View, req Request) <-chan Result {
	res := make(chan Result, 1)
	kc := o.conf.Of(req.Kind)
	byIP := kc.ByIP
	if req.ByIP != nil {
		byIP = *req.ByIP
	}
	if req.Kind == Warn {
		byIP = false
	}
	target, online := v.Session(req.Target.UUID)

	if req.Kind == Kick && !byIP && !online {
		return o.reject(req.Actor, res, ErrTargetOffline, "punishment.error.offline", "target", req.Target.Name)
	}
	if online && target.HasPermission(req.Kind.BypassPermission()) {
		return o.reject(req.Actor, res, ErrBypass, "punishment.error.bypass", "target", req.Target.Name, "kind", req.Kind.String())
	}
	if !kc.Internal {
		verb := baseVerb(kc.Command)
		if verb == "" {
			return o.reject(req.Actor, res, ErrNoCommand, "punishment.error.command", "kind", req.Kind.String())
		}
		if o.commands.Owns(verb) {
			o.log.Warn("refusing delegated punishment command owned by this server", "kind", req.Kind.String(), "command", verb)
			return o.reject(req.Actor, res, ErrCommandLoop, "punishment.error.loop", "kind", req.Kind.String(), "command", verb)
		}
		if _, ok := req.Actor.(game.Session); !ok {
			return o.reject(req.Actor, res, ErrConsoleDelegation, "punishment.error.console", "kind", req.Kind.String(), "command", verb)
		}
	} else if req.Kind == Warn {
		return o.warns.Issue(v, req)
	}

	var addr string
	if byIP && online {
		addr = target.Addr()
	}

	now := o.now()
	end, label := o.durations.ResolveEnd(req.Kind, req.Duration, now)
	rec := Record{
		Target:        req.Target.UUID,
		TargetName:    req.Target.Name,
		Kind:          req.Kind,
		Reason:        req.Reason,
		Actor:         req.Actor.Name(),
		Created:       now.UnixMilli(),
		EndTime:       end,
		DurationLabel: label,
		ByIP:          byIP,
	}
	o.wg.Go(func() {
		res <- o.persist(req.Actor, rec, addr, kc)
	})
	return res
}

// persist runs on a worker goroutine. It resolves the address of IP-scoped punishments, stores the record
// and applies it on the world goroutine.
func (o *Orchestrator) persist(actor game.Actor, rec Record, addr string, kc KindConfig) Result {
	unlock := o.locks.Lock(rec.Target)
	defer unlock()

	ctx := context.Background()
	if rec.ByIP && addr == "" {
		ip, ok, err := o.store.LastKnownIP(ctx, rec.Target)
		if err != nil {
			o.log.Error("failed to look up last known address", "target", rec.TargetName, "error", err)
		}
		if !ok || err != nil {
			return o.fail(actor, ErrAddressUnresolved, "punishment.error.address", "target", rec.TargetName)
		}
		addr = ip
	}

	id, err := o.store.Execute(ctx, rec)
	if err != nil {
		o.log.Error("failed to persist punishment", "target", rec.TargetName, "kind", rec.Kind.String(), "error", err)
		return o.fail(actor, fmt.Errorf("%w: %w", ErrPersistence, err), "punishment.error.persistence")
	}
	if addr != "" {
		if err = o.store.LogPlayerInfo(ctx, id, rec.Target, addr); err != nil {
			o.log.Warn("failed to log player info", "id", id, "error", err)
		}
	}

	<-o.host.Exec(func(v game.View) {
		o.apply(v, game.Rebind(v, actor), rec, id, addr, kc)
	})
	return Result{ID: id}
}

// apply runs the effect of a persisted punishment, propagates it and runs its hooks. Everything happens
// within one transaction of the world goroutine.
func (o *Orchestrator) apply(v game.View, actor game.Actor, rec Record, id, addr string, kc KindConfig) {
	a := application{rec: rec, id: id, actor: actor, addr: addr, primary: true}
	target, online := v.Session(rec.Target)

	if kc.Internal {
		effects[rec.Kind](o, v, a, target, online)
		if rec.ByIP && addr != "" {
			o.prop.Propagate(v, Propagation{Record: rec, ID: id, Actor: actor, Address: addr})
		}
	} else {
		o.delegate(a, kc)
	}

	o.confirm(actor, a, "punishment."+rec.Kind.String()+".confirm")
	o.hooks.Run(v, kc.OnPunish, rec.Target, actor, o.vars(a, nil)...)
	o.log.Info("issued punishment", "id", id, "kind", rec.Kind.String(), "target", rec.TargetName, "actor", rec.Actor, "ip", rec.ByIP)
}

// applyPropagated applies the effect of a propagated punishment to a session sharing the target's address.
func (o *Orchestrator) applyPropagated(v game.View, s game.Session, p Propagation) {
	a := application{rec: p.Record, id: p.ID, actor: p.Actor, addr: p.Address}
	effects[p.Record.Kind](o, v, a, s, true)
}

// delegate runs the command template of a delegated punishment as the actor.
func (o *Orchestrator) delegate(a application, kc KindConfig) {
	line := locale.Format(kc.Command, o.vars(a, nil)...)
	if s, ok := a.actor.(game.Session); ok {
		s.ExecuteCommand("/" + strings.TrimPrefix(line, "/"))
	}
}

// confirm plays the confirmation sound to the actor and sends it the message under key.
func (o *Orchestrator) confirm(actor game.Actor, a application, key string) {
	if s, ok := actor.(game.Session); ok {
		s.Confirm()
	}
	actor.Message(locale.Translate(key, o.vars(a, nil)...))
}

// vars returns the placeholders of an application. The target name is that of s if it is non-nil.
func (o *Orchestrator) vars(a application, s game.Session) []any {
	name := a.rec.TargetName
	if s != nil {
		name = s.Name()
	}
	actor := a.rec.Actor
	if a.actor != nil {
		actor = a.actor.Name()
	}
	return []any{
		"target", name,
		"actor", actor,
		"reason", a.rec.Reason,
		"time", a.rec.DurationLabel,
		"kind", a.rec.Kind.String(),
		"id", a.id,
		"level", strconv.Itoa(a.rec.WarnLevel),
	}
}

// reject completes res with err after telling the actor why. It must be called on the world goroutine.
func (o *Orchestrator) reject(actor game.Actor, res chan Result, err error, key string, args ...any) <-chan Result {
	actor.Message(locale.Translate(key, args...))
	res <- Result{Err: err}
	return res
}

// fail tells the actor why a request failed from a worker goroutine and returns the failed Result.
func (o *Orchestrator) fail(actor game.Actor, err error, key string, args ...any) Result {
	<-o.host.Exec(func(v game.View) {
		game.Rebind(v, actor).Message(locale.Translate(key, args...))
	})
	return Result{Err: err}
}

// Lift lifts the active punishments of Kind k against the target. Enforcement state is cleared
// immediately; the revocation is persisted on a worker goroutine.
func (o *Orchestrator) Lift(v game.View, actor game.Actor, k Kind, target game.Profile) <-chan Result {
	res := make(chan Result, 1)
	switch k {
	case Kick, Warn:
		return o.reject(actor, res, ErrNotLiftable, "punishment.error.lift", "kind", k.String())
	case Freeze:
		o.freezer.Unfreeze(v, target.UUID)
	case Ban:
		if err := o.bans.Pardon(target.UUID); err != nil {
			o.log.Error("failed to pardon", "target", target.Name, "error", err)
		}
	}
	if ck, ok := k.Cached(); ok {
		o.cache.Clear(ck, target.UUID)
	}
	if s, ok := v.Session(target.UUID); ok {
		s.Message(locale.Translate("punishment."+k.String()+".lifted", "actor", actor.Name()))
	}

	o.wg.Go(func() {
		unlock := o.locks.Lock(target.UUID)
		defer unlock()

		if err := o.store.Revoke(context.Background(), target.UUID, k, actor.Name(), o.now()); err != nil {
			o.log.Error("failed to revoke punishment", "target", target.Name, "kind", k.String(), "error", err)
			res <- o.fail(actor, fmt.Errorf("%w: %w", ErrPersistence, err), "punishment.error.persistence")
			return
		}
		<-o.host.Exec(func(v game.View) {
			game.Rebind(v, actor).Message(locale.Translate("punishment.lift.confirm", "target", target.Name, "kind", k.String()))
		})
		res <- Result{}
	})
	return res
}

// Restore loads the active punishments of a player that joined and restores their enforcement state.
func (o *Orchestrator) Restore(id uuid.UUID) {
	o.wg.Go(func() {
		recs, err := o.store.ActivePunishments(context.Background(), id, o.now())
		if err != nil {
			o.log.Error("failed to load active punishments", "uuid", id, "error", err)
			return
		}
		if len(recs) == 0 {
			return
		}
		<-o.host.Exec(func(v game.View) {
			s, online := v.Session(id)
			for _, rec := range recs {
				ck, ok := rec.Kind.Cached()
				if !ok || !o.conf.Of(rec.Kind).Internal {
					continue
				}
				o.cache.Set(ck, id, rec.EndTime, o.conf.SoftbanCommands...)
				if rec.Kind == Freeze && online {
					o.freezer.Freeze(v, s, nil, false)
				}
			}
		})
	})
}

// Close waits for every issuance in flight to complete.
func (o *Orchestrator) Close() {
	o.wg.Wait()
}

// baseVerb returns the command name of a command template.
func baseVerb(template string) string {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(template), "/"))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

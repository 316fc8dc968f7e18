// Package reconcile periodically removes moderation state that has run out.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smell-of-curry/warden/warden/banlist"
	"github.com/smell-of-curry/warden/warden/cache"
	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/punishment"
)

// DefaultSchedule ...
const DefaultSchedule = "@every 30s"

// WarningStore returns the warnings that ran out since the last call.
type WarningStore interface {
	ExpireWarnings(ctx context.Context, now time.Time) ([]punishment.ExpiredWarning, error)
}

// WarnExpirer runs the expiry hooks of a warning.
type WarnExpirer interface {
	Expire(v game.View, ew punishment.ExpiredWarning)
}

// Deps ...
type Deps struct {
	Host     game.Host
	Cache    *cache.Manager
	Bans     *banlist.List
	Warnings WarningStore
	Warns    WarnExpirer
}

// Reconciler sweeps expired cache entries, bans and warnings on a cron schedule.
type Reconciler struct {
	log  *slog.Logger
	deps Deps
	cron *cron.Cron
	now  func() time.Time
}

// New ...
func New(log *slog.Logger, d Deps) *Reconciler {
	return &Reconciler{log: log, deps: d, cron: cron.New(), now: time.Now}
}

// Start runs the reconciliation on the schedule passed, such as "@every 30s".
func (r *Reconciler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := r.cron.AddFunc(schedule, r.Run); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Debug("reconciler started", "schedule", schedule)
	return nil
}

// Stop stops the schedule and waits for a running reconciliation to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// Run reconciles once.
func (r *Reconciler) Run() {
	now := r.now()

	var expired []punishment.ExpiredWarning
	if r.deps.Warnings != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var err error
		expired, err = r.deps.Warnings.ExpireWarnings(ctx, now)
		cancel()
		if err != nil {
			r.log.Error("failed to expire warnings", "error", err)
		}
	}
	if r.deps.Bans != nil {
		if n, err := r.deps.Bans.Prune(now); err != nil {
			r.log.Error("failed to prune ban list", "error", err)
		} else if n > 0 {
			r.log.Info("pruned expired bans", "count", n)
		}
	}

	<-r.deps.Host.Exec(func(v game.View) {
		for _, e := range r.deps.Cache.Sweep(now) {
			r.expire(v, e)
		}
		if r.deps.Warns == nil {
			return
		}
		for _, ew := range expired {
			r.deps.Warns.Expire(v, ew)
		}
	})
}

// expire notifies the player of a cache entry that ran out.
func (r *Reconciler) expire(v game.View, e cache.Expired) {
	r.log.Debug("cached punishment expired", "kind", e.Kind.String(), "uuid", e.ID)
	switch e.Kind {
	case cache.Mute:
		if s, ok := v.Session(e.ID); ok {
			s.Message(locale.Translate("punishment.mute.expired"))
		}
	case cache.Softban:
		if s, ok := v.Session(e.ID); ok {
			s.Message(locale.Translate("punishment.softban.expired"))
		}
	}
}

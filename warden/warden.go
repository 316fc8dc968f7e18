// Package warden wires the moderation services into a Dragonfly server.
package warden

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/smell-of-curry/warden/warden/api"
	"github.com/smell-of-curry/warden/warden/banlist"
	"github.com/smell-of-curry/warden/warden/cache"
	"github.com/smell-of-curry/warden/warden/command"
	"github.com/smell-of-curry/warden/warden/form"
	"github.com/smell-of-curry/warden/warden/freeze"
	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/handler"
	"github.com/smell-of-curry/warden/warden/hook"
	"github.com/smell-of-curry/warden/warden/locale"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/rank"
	"github.com/smell-of-curry/warden/warden/reconcile"
	"github.com/smell-of-curry/warden/warden/report"
	"github.com/smell-of-curry/warden/warden/session"
	"github.com/smell-of-curry/warden/warden/store"
)

// Warden represents the main server struct. It owns the Dragonfly server and every moderation service
// running on it.
type Warden struct {
	log  *slog.Logger
	conf Config

	srv  *server.Server
	host *game.StoppableHost

	store     store.Store
	cache     *cache.Manager
	bans      *banlist.List
	durations *punishment.Durations
	freeze    *freeze.Manager
	punish    *punishment.Orchestrator
	reports   *report.Engine
	guard     *handler.Guard
	loader    *session.Loader
	commands  *command.Deps
	api       *api.Server
	reconcile *reconcile.Reconciler
}

// New creates a new instance of Warden.
func New(log *slog.Logger, conf Config) (*Warden, error) {
	log.Info("Starting Server...")

	c, err := conf.UserConfig.Config(log)
	if err != nil {
		return nil, err
	}

	w := &Warden{
		log:       log,
		conf:      conf,
		cache:     cache.NewManager(),
		durations: punishment.NewDurations(conf.Time),
	}
	if err = w.loadLocales(); err != nil {
		return nil, err
	}
	if w.bans, err = banlist.New(conf.Warden.BanListPath); err != nil {
		return nil, fmt.Errorf("load ban list: %w", err)
	}
	if w.store, err = store.Open(log, conf.StoreConfig()); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	c.Allower = &Allower{log: log, bans: w.bans, durations: w.durations}

	w.srv = c.New()
	w.srv.CloseOnProgramEnd()
	w.host = game.NewStoppableHost(game.NewWorldHost(w.srv.World()))

	if err = w.loadServices(); err != nil {
		_ = w.store.Close()
		return nil, err
	}
	return w, nil
}

// Start begins the server's main loop, accepting connections and handling players.
// It blocks until the server is closed.
func (w *Warden) Start() {
	if w.conf.API.Enabled {
		w.api.Start(w.conf.API.Address)
	}
	if err := w.reconcile.Start(w.conf.Warden.ReconcileSchedule); err != nil {
		w.log.Error("failed to start reconciler", "schedule", w.conf.Warden.ReconcileSchedule, "error", err)
	}

	w.srv.Listen()
	for p := range w.srv.Accept() {
		w.accept(p)
	}

	w.Close()
}

// loadLocales registers all the locales active on the server.
func (w *Warden) loadLocales() error {
	path := w.conf.Warden.LocalePath
	locales := []language.Tag{
		language.English,
	}
	for _, l := range locales {
		if err := locale.Register(l, path); err != nil {
			return err
		}
	}
	return nil
}

// loadServices creates the moderation services and registers the commands that act upon them.
func (w *Warden) loadServices() error {
	conf := w.conf
	perms, err := conf.Permissions()
	if err != nil {
		return err
	}
	punishConf, err := conf.PunishmentConfig()
	if err != nil {
		return err
	}
	rank.InitializeRanks(conf.RankConfig())
	rank.NewService(w.log, conf.Ranks.RolesURL)

	hooks := hook.NewRunner(w.log)
	registry := command.NewRegistry()

	w.freeze = freeze.NewManager(w.log, w.host, hooks, conf.FreezeConfig())
	w.punish = punishment.NewOrchestrator(w.log, punishConf, punishment.Deps{
		Host:      w.host,
		Store:     w.store,
		Cache:     w.cache,
		Freezer:   w.freeze,
		Bans:      w.bans,
		Hooks:     hooks,
		Commands:  registry,
		Durations: w.durations,
	})
	w.reports = report.NewEngine(w.log, w.host, w.store, w.store, form.ReportPresenter{}, conf.ReportConfig())
	w.guard = handler.NewGuard(handler.Services{
		Log:          w.log,
		Punishments:  w.punish,
		Durations:    w.durations,
		Cache:        w.cache,
		Freeze:       w.freeze,
		Reports:      w.reports,
		Players:      w.store,
		Permissions:  perms,
		MuteCommands: conf.Mute.BlockedCommands,
	})

	var roles session.RoleSource
	if svc := rank.GlobalService(); svc.Enabled() {
		roles = svc
	}
	w.loader = session.NewLoader(w.log, w.host, roles, conf.Ranks.Concurrency, conf.Ranks.FetchInterval.Std())

	w.commands = &command.Deps{
		Log:         w.log,
		Host:        w.host,
		Punishments: w.punish,
		Reports:     w.reports,
		Players:     w.store,
	}
	w.loadCommands(registry)

	w.api = w.setupAPI()
	w.reconcile = reconcile.New(w.log, reconcile.Deps{
		Host:     w.host,
		Cache:    w.cache,
		Bans:     w.bans,
		Warnings: w.store,
		Warns:    w.punish.Warns(),
	})
	return nil
}

// loadCommands registers all the commands on the server.
func (w *Warden) loadCommands(r *command.Registry) {
	for _, k := range punishment.Kinds() {
		r.Register(command.NewPunish(w.commands, k))
		if k.Timed() {
			r.Register(command.NewLift(w.commands, k))
		}
	}
	r.Register(command.NewReport(w.commands))
	r.Register(command.NewReportAction(w.commands))
	r.Register(command.NewModerate())
	r.Register(command.NewList())
}

// setupAPI sets up gin for the moderation API.
func (w *Warden) setupAPI() *api.Server {
	gin.SetMode(gin.ReleaseMode)

	d := api.Deps{Cache: w.cache, Bans: w.bans}
	if r, ok := w.store.(api.Reports); ok {
		d.Reports = r
	}
	return api.New(w.log, w.conf.API.Key, d)
}

// accept handles a new player joining the server.
func (w *Warden) accept(p *player.Player) {
	ranks := session.NewRanks()
	h := handler.NewPlayerHandler(w.guard, ranks)
	p.Handle(h)

	h.HandleJoin(p)

	w.loader.Load(p.UUID(), p.XUID(), ranks, func(_ game.View, s game.Session, highest rank.Rank) {
		if pl, ok := game.PlayerOf(s); ok {
			pl.SetNameTag(highest.NameTag(pl.Name()))
		}
	})
}

// Close closes all the services associated with the server. The worlds are closed by the time Accept
// returns, so the host is stopped first and pending world work is dropped.
func (w *Warden) Close() {
	w.host.Stop()

	w.log.Debug("Stopping Reconciler...")
	w.reconcile.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.log.Debug("Closing Moderation API...")
	if err := w.api.Close(ctx); err != nil {
		w.log.Error("failed to close moderation API", "error", err)
	}

	w.log.Debug("Waiting for Rank Loads...")
	w.loader.Close()
	w.log.Debug("Waiting for Commands...")
	w.commands.Close()
	w.log.Debug("Closing Punishments...")
	w.punish.Close()
	w.log.Debug("Closing Reports...")
	w.reports.Close()
	w.log.Debug("Closing Freezes...")
	w.freeze.Close()
	w.guard.Close()

	w.log.Debug("Closing Store...")
	if err := w.store.Close(); err != nil {
		w.log.Error("failed to close store", "error", err)
	}
}

package warden

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/df-mc/dragonfly/server"
	"github.com/restartfu/gophig"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/warden/warden/freeze"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/rank"
	"github.com/smell-of-curry/warden/warden/report"
	"github.com/smell-of-curry/warden/warden/store"
	"github.com/smell-of-curry/warden/warden/util"
)

// Config holds the server configuration, including paths, services and the behaviour of every punishment.
type Config struct {
	Warden struct {
		SentryDsn   string
		LogLevel    string // Can be "debug", "info", "warn", "error"
		LocalePath  string
		BanListPath string
		// ReconcileSchedule is the cron schedule on which expired state is removed.
		ReconcileSchedule string
	}
	Store struct {
		Driver string // Can be "sqlite" or "http"
		Path   string
		URL    string
		Key    string
	}
	API struct {
		Enabled bool
		Address string
		Key     string
	}
	Ranks struct {
		RolesURL string
		// FetchInterval is the minimum time between two role fetches of one player.
		FetchInterval util.Duration
		Concurrency   int

		HelperRoleID          string
		ModeratorRoleID       string
		SeniorModeratorRoleID string
		AdminRoleID           string
		OwnerRoleID           string

		// Permissions maps permissions to the name of the lowest rank holding them.
		Permissions map[string]string
	}
	// Punishments is keyed by the name of a punishment kind, such as "ban".
	Punishments map[string]punishment.KindConfig
	Time        punishment.Units
	Softban     struct {
		BlockedCommands []string
	}
	Mute struct {
		BlockedCommands []string
	}
	Freeze struct {
		Interval        util.Duration
		Messages        []string
		AllowedCommands []string
		OnDisconnect    []string
	}
	// Warns is keyed by warn level, starting at "1".
	Warns   map[string]punishment.WarnLevel
	Reports struct {
		Categories []report.Category
		Cooldown   util.Duration
		RateLimit  int
		RatePeriod util.Duration
	}
	server.UserConfig
}

// DefaultConfig returns a config with prefilled default values.
func DefaultConfig() Config {
	c := Config{}

	c.Warden.SentryDsn = ""
	c.Warden.LogLevel = "info"
	c.Warden.LocalePath = "resources/locales"
	c.Warden.BanListPath = "resources/bans.json"
	c.Warden.ReconcileSchedule = "@every 30s"

	c.Store.Driver = "sqlite"
	c.Store.Path = "resources/warden.db"
	c.Store.URL = "http://127.0.0.1:4000/api/moderation"
	c.Store.Key = "secret-key"

	c.API.Enabled = false
	c.API.Address = ":8080"
	c.API.Key = "secret-key"

	c.Ranks.RolesURL = ""
	c.Ranks.FetchInterval = util.Duration(5 * time.Minute)
	c.Ranks.Concurrency = 4
	c.Ranks.Permissions = make(map[string]string)
	for perm, r := range rank.DefaultPermissions() {
		c.Ranks.Permissions[perm] = r.Name()
	}

	c.Punishments = make(map[string]punishment.KindConfig)
	for _, k := range punishment.Kinds() {
		c.Punishments[k.String()] = punishment.KindConfig{Internal: true}
	}
	c.Punishments[punishment.Ban.String()] = punishment.KindConfig{
		Internal: true,
		OnPunish: []string{"broadcast:<red>{target} was banned for {reason}.</red>"},
	}
	c.Time = punishment.DefaultUnits()

	c.Softban.BlockedCommands = []string{"tpa", "home", "warp", "spawn"}
	c.Mute.BlockedCommands = []string{"msg", "tell", "w", "me", "r"}

	c.Freeze.Interval = util.Duration(5 * time.Second)
	c.Freeze.Messages = []string{"<red>You are frozen. Do not log out and follow the instructions of staff.</red>"}
	c.Freeze.AllowedCommands = []string{"report"}
	c.Freeze.OnDisconnect = []string{"broadcast:<red>{target} logged out while frozen.</red>"}

	c.Warns = map[string]punishment.WarnLevel{
		"1": {Expiration: "7d", OnWarn: []string{"message:<yellow>This is your first warning.</yellow>"}},
		"2": {Expiration: "14d", OnWarn: []string{"command:mute {target} 1h Reached warn level 2"}},
		"3": {Expiration: "30d", OnWarn: []string{"command:ban {target} 1d Reached warn level 3"}},
	}

	c.Reports.Categories = []report.Category{
		{Name: "Cheating", Target: report.TargetPlayer.String(), Reasons: []string{"Fly", "Speed", "Kill Aura", "X-Ray"}},
		{Name: "Chat", Target: report.TargetPlayer.String(), Reasons: []string{"Spam", "Harassment", "Advertising"}},
		{Name: "Griefing", Target: report.TargetClan.String(), Reasons: []string{"Base Griefing", "Scamming"}},
		{Name: "Bug", Target: report.TargetServer.String(), Reasons: []string{"Duplication", "Lag", "Other"}},
	}
	c.Reports.Cooldown = util.Duration(time.Minute)
	c.Reports.RateLimit = 5
	c.Reports.RatePeriod = util.Duration(time.Hour)

	userConfig := server.DefaultConfig()
	userConfig.Server.Name = text.Colourf("<red>Warden</red>")
	userConfig.World.Folder = "resources/world"
	userConfig.Players.Folder = "resources/player_data"

	c.UserConfig = userConfig

	return c
}

// StoreConfig ...
func (c Config) StoreConfig() store.Config {
	return store.Config{Driver: c.Store.Driver, Path: c.Store.Path, URL: c.Store.URL, Key: c.Store.Key}
}

// RankConfig ...
func (c Config) RankConfig() *rank.Config {
	return &rank.Config{
		HelperRoleID:          c.Ranks.HelperRoleID,
		ModeratorRoleID:       c.Ranks.ModeratorRoleID,
		SeniorModeratorRoleID: c.Ranks.SeniorModeratorRoleID,
		AdminRoleID:           c.Ranks.AdminRoleID,
		OwnerRoleID:           c.Ranks.OwnerRoleID,
	}
}

// Permissions returns the configured permissions on top of the default ones.
func (c Config) Permissions() (rank.Permissions, error) {
	parsed, err := rank.ParsePermissions(c.Ranks.Permissions)
	if err != nil {
		return nil, err
	}
	p := rank.DefaultPermissions()
	for perm, r := range parsed {
		p[perm] = r
	}
	return p, nil
}

// PunishmentConfig converts the punishment sections of the config.
func (c Config) PunishmentConfig() (punishment.Config, error) {
	conf := punishment.Config{
		Kinds:           make(map[punishment.Kind]punishment.KindConfig, len(c.Punishments)),
		SoftbanCommands: c.Softban.BlockedCommands,
		WarnLevels:      make(map[int]punishment.WarnLevel, len(c.Warns)),
	}
	for name, kc := range c.Punishments {
		k, ok := punishment.ParseKind(name)
		if !ok {
			return punishment.Config{}, fmt.Errorf("punishments: unknown kind %q", name)
		}
		conf.Kinds[k] = kc
	}
	for level, wl := range c.Warns {
		n, err := strconv.Atoi(level)
		if err != nil || n < 1 {
			return punishment.Config{}, fmt.Errorf("warns: invalid level %q", level)
		}
		conf.WarnLevels[n] = wl
	}
	return conf, nil
}

// FreezeConfig ...
func (c Config) FreezeConfig() freeze.Config {
	return freeze.Config{
		Interval:        c.Freeze.Interval.Std(),
		Messages:        c.Freeze.Messages,
		AllowedCommands: c.Freeze.AllowedCommands,
		OnDisconnect:    c.Freeze.OnDisconnect,
	}
}

// ReportConfig ...
func (c Config) ReportConfig() report.Config {
	return report.Config{
		Categories: c.Reports.Categories,
		Cooldown:   c.Reports.Cooldown.Std(),
		RateLimit:  c.Reports.RateLimit,
		RatePeriod: c.Reports.RatePeriod.Std(),
	}
}

// ParseLogLevel returns the appropriate slog.Level based on string configuration.
// Returns an error if the provided log level string is not recognized.
func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unrecognized log level: %q", level)
	}
}

// ReadConfig loads the server configuration from config.toml.
// If the file doesn't exist, it creates a new one with default values.
func ReadConfig() (Config, error) {
	return readConfig("./config.toml")
}

// readConfig ...
func readConfig(path string) (Config, error) {
	g := gophig.NewGophig[Config](path, gophig.TOMLMarshaler{}, os.ModePerm)
	_, err := g.LoadConf()
	if os.IsNotExist(err) {
		err = g.SaveConf(DefaultConfig())
		if err != nil {
			return Config{}, err
		}
	}
	return g.LoadConf()
}

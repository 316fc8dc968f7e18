// Package store implements the durable system of record for punishments, warnings, reports and known players.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/report"
)

// Store is implemented by every store driver.
type Store interface {
	punishment.Store
	report.Store
	game.Directory

	// ExpireWarnings marks the active warnings that ended at or before now as expired and returns them.
	ExpireWarnings(ctx context.Context, now time.Time) ([]punishment.ExpiredWarning, error)
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*HTTP)(nil)
)

// Config ...
type Config struct {
	// Driver is either "sqlite" or "http".
	Driver string
	// Path is the database file of the sqlite driver.
	Path string
	// URL and Key address the moderation API of the http driver.
	URL string
	Key string
}

// Open opens the store selected by the config.
func Open(log *slog.Logger, c Config) (Store, error) {
	switch strings.ToLower(c.Driver) {
	case "", "sqlite":
		return OpenSQLite(c.Path)
	case "http":
		return NewHTTP(log, c.URL, c.Key), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", c.Driver)
}

// newID returns a short identifier for a punishment or report.
func newID() string {
	id := uuid.New()
	return fmt.Sprintf("%X", id[:4])
}

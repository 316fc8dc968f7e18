package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS punishments (
	id TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	target_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	reason TEXT NOT NULL,
	actor TEXT NOT NULL,
	created INTEGER NOT NULL,
	end_time INTEGER NOT NULL,
	duration TEXT NOT NULL,
	by_ip INTEGER NOT NULL,
	warn_level INTEGER NOT NULL DEFAULT 0,
	revoked_by TEXT,
	revoked_at INTEGER
);
CREATE INDEX IF NOT EXISTS punishments_target ON punishments (target, kind);

CREATE TABLE IF NOT EXISTS player_info (
	punishment_id TEXT PRIMARY KEY REFERENCES punishments (id),
	target TEXT NOT NULL,
	ip TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS players (
	uuid TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	ip TEXT NOT NULL DEFAULT '',
	first_seen INTEGER NOT NULL,
	last_seen INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS players_name ON players (name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS active_warnings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	target TEXT NOT NULL,
	punishment_id TEXT NOT NULL REFERENCES punishments (id),
	level INTEGER NOT NULL,
	end_time INTEGER NOT NULL,
	superseded INTEGER NOT NULL DEFAULT 0,
	expired INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS active_warnings_target ON active_warnings (target, superseded, expired);

CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	requester TEXT NOT NULL,
	requester_name TEXT NOT NULL,
	target TEXT NOT NULL,
	target_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	category TEXT NOT NULL,
	reason TEXT NOT NULL,
	details TEXT NOT NULL,
	snapshot TEXT NOT NULL,
	status TEXT NOT NULL,
	moderator TEXT NOT NULL DEFAULT '',
	created INTEGER NOT NULL
);
`

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	pool *sqlitex.Pool
}

// OpenSQLite opens the database at path, creating it and its tables if needed.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{PoolSize: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	s := &SQLite{pool: pool}
	if err = s.with(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, schema, nil)
	}); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close ...
func (s *SQLite) Close() error {
	return s.pool.Close()
}

// with runs f with a connection taken from the pool.
func (s *SQLite) with(ctx context.Context, f func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return f(conn)
}

// Execute ...
func (s *SQLite) Execute(ctx context.Context, r punishment.Record) (string, error) {
	id := newID()
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO punishments
			(id, target, target_name, kind, reason, actor, created, end_time, duration, by_ip, warn_level)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{id, r.Target.String(), r.TargetName, r.Kind.String(), r.Reason, r.Actor,
				r.Created, r.EndTime, r.DurationLabel, r.ByIP, r.WarnLevel},
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert punishment: %w", err)
	}
	return id, nil
}

// LogPlayerInfo ...
func (s *SQLite) LogPlayerInfo(ctx context.Context, id string, target uuid.UUID, ip string) error {
	return s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT OR REPLACE INTO player_info (punishment_id, target, ip) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{id, target.String(), ip}})
	})
}

// AddActiveWarning ...
func (s *SQLite) AddActiveWarning(ctx context.Context, w punishment.ActiveWarning) error {
	return s.with(ctx, func(conn *sqlite.Conn) (err error) {
		defer sqlitex.Save(conn)(&err)

		if err = sqlitex.Execute(conn, `UPDATE active_warnings SET superseded = 1 WHERE target = ? AND superseded = 0`,
			&sqlitex.ExecOptions{Args: []any{w.Target.String()}}); err != nil {
			return err
		}
		return sqlitex.Execute(conn, `INSERT INTO active_warnings (target, punishment_id, level, end_time) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{w.Target.String(), w.PunishmentID, w.Level, w.EndTime}})
	})
}

// LatestActiveWarning ...
func (s *SQLite) LatestActiveWarning(ctx context.Context, target uuid.UUID) (punishment.ActiveWarning, bool, error) {
	var (
		w     punishment.ActiveWarning
		found bool
	)
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT punishment_id, level, end_time FROM active_warnings
			WHERE target = ? AND superseded = 0 AND expired = 0 ORDER BY id DESC LIMIT 1`, &sqlitex.ExecOptions{
			Args: []any{target.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				w = punishment.ActiveWarning{
					Target:       target,
					PunishmentID: stmt.ColumnText(0),
					Level:        stmt.ColumnInt(1),
					EndTime:      stmt.ColumnInt64(2),
				}
				return nil
			},
		})
	})
	return w, found, err
}

// ExpireWarnings ...
func (s *SQLite) ExpireWarnings(ctx context.Context, now time.Time) ([]punishment.ExpiredWarning, error) {
	var expired []punishment.ExpiredWarning
	err := s.with(ctx, func(conn *sqlite.Conn) (err error) {
		defer sqlitex.Save(conn)(&err)

		if err = sqlitex.Execute(conn, `SELECT w.target, w.punishment_id, w.level, w.end_time, p.target_name
			FROM active_warnings w JOIN punishments p ON p.id = w.punishment_id
			WHERE w.superseded = 0 AND w.expired = 0 AND w.end_time <= ?`, &sqlitex.ExecOptions{
			Args: []any{now.UnixMilli()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				target, err := uuid.Parse(stmt.ColumnText(0))
				if err != nil {
					return err
				}
				expired = append(expired, punishment.ExpiredWarning{
					ActiveWarning: punishment.ActiveWarning{
						Target:       target,
						PunishmentID: stmt.ColumnText(1),
						Level:        stmt.ColumnInt(2),
						EndTime:      stmt.ColumnInt64(3),
					},
					TargetName: stmt.ColumnText(4),
				})
				return nil
			},
		}); err != nil {
			return err
		}
		return sqlitex.Execute(conn, `UPDATE active_warnings SET expired = 1
			WHERE superseded = 0 AND expired = 0 AND end_time <= ?`, &sqlitex.ExecOptions{Args: []any{now.UnixMilli()}})
	})
	return expired, err
}

// LastKnownIP returns the address the target last joined from, falling back to the last address a
// punishment was applied to.
func (s *SQLite) LastKnownIP(ctx context.Context, target uuid.UUID) (string, bool, error) {
	var ip string
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		scan := &sqlitex.ExecOptions{
			Args: []any{target.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ip = stmt.ColumnText(0)
				return nil
			},
		}
		if err := sqlitex.Execute(conn, `SELECT ip FROM players WHERE uuid = ? AND ip != ''`, scan); err != nil || ip != "" {
			return err
		}
		return sqlitex.Execute(conn, `SELECT i.ip FROM player_info i JOIN punishments p ON p.id = i.punishment_id
			WHERE i.target = ? AND i.ip != '' ORDER BY p.created DESC LIMIT 1`, scan)
	})
	return ip, ip != "", err
}

// ActivePunishments ...
func (s *SQLite) ActivePunishments(ctx context.Context, target uuid.UUID, now time.Time) ([]punishment.Record, error) {
	var recs []punishment.Record
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT id, target_name, kind, reason, actor, created, end_time, duration, by_ip, warn_level
			FROM punishments WHERE target = ? AND revoked_at IS NULL AND end_time > ? ORDER BY created, rowid`, &sqlitex.ExecOptions{
			Args: []any{target.String(), now.UnixMilli()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				k, ok := punishment.ParseKind(stmt.ColumnText(2))
				if !ok {
					return fmt.Errorf("unknown punishment kind %q", stmt.ColumnText(2))
				}
				recs = append(recs, punishment.Record{
					ID:            stmt.ColumnText(0),
					Target:        target,
					TargetName:    stmt.ColumnText(1),
					Kind:          k,
					Reason:        stmt.ColumnText(3),
					Actor:         stmt.ColumnText(4),
					Created:       stmt.ColumnInt64(5),
					EndTime:       stmt.ColumnInt64(6),
					DurationLabel: stmt.ColumnText(7),
					ByIP:          stmt.ColumnInt(8) != 0,
					WarnLevel:     stmt.ColumnInt(9),
				})
				return nil
			},
		})
	})
	return recs, err
}

// Revoke ...
func (s *SQLite) Revoke(ctx context.Context, target uuid.UUID, k punishment.Kind, actor string, at time.Time) error {
	return s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `UPDATE punishments SET revoked_by = ?, revoked_at = ?
			WHERE target = ? AND kind = ? AND revoked_at IS NULL AND end_time > ?`, &sqlitex.ExecOptions{
			Args: []any{actor, at.UnixMilli(), target.String(), k.String(), at.UnixMilli()},
		})
	})
}

// CreateReport ...
func (s *SQLite) CreateReport(ctx context.Context, r report.Record) (string, error) {
	id := newID()
	target := ""
	if r.Target != uuid.Nil {
		target = r.Target.String()
	}
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO reports
			(id, requester, requester_name, target, target_name, kind, category, reason, details, snapshot, status, moderator, created)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{id, r.Requester.String(), r.RequesterName, target, r.TargetName, r.Kind.String(), r.Category,
				r.Reason, r.Details, r.Snapshot, r.Status.String(), r.Moderator, r.Created.UnixMilli()},
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert report: %w", err)
	}
	return id, nil
}

// Reports returns the reports with the status passed, oldest first.
func (s *SQLite) Reports(ctx context.Context, status report.Status) ([]report.Record, error) {
	var recs []report.Record
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT id, requester, requester_name, target, target_name, kind, category, reason,
			details, snapshot, moderator, created FROM reports WHERE status = ? ORDER BY created, rowid`, &sqlitex.ExecOptions{
			Args: []any{status.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				requester, err := uuid.Parse(stmt.ColumnText(1))
				if err != nil {
					return err
				}
				var target uuid.UUID
				if t := stmt.ColumnText(3); t != "" {
					if target, err = uuid.Parse(t); err != nil {
						return err
					}
				}
				kind, _ := report.ParseTargetKind(stmt.ColumnText(5))
				recs = append(recs, report.Record{
					ID:            stmt.ColumnText(0),
					Requester:     requester,
					RequesterName: stmt.ColumnText(2),
					Target:        target,
					TargetName:    stmt.ColumnText(4),
					Kind:          kind,
					Category:      stmt.ColumnText(6),
					Reason:        stmt.ColumnText(7),
					Details:       stmt.ColumnText(8),
					Snapshot:      stmt.ColumnText(9),
					Status:        status,
					Moderator:     stmt.ColumnText(10),
					Created:       time.UnixMilli(stmt.ColumnInt64(11)),
				})
				return nil
			},
		})
	})
	return recs, err
}

// SetReportStatus moves a report to a new status handled by the moderator passed.
func (s *SQLite) SetReportStatus(ctx context.Context, id string, st report.Status, moderator string) error {
	return s.with(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `UPDATE reports SET status = ?, moderator = ? WHERE id = ?`,
			&sqlitex.ExecOptions{Args: []any{st.String(), moderator, id}}); err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return fmt.Errorf("report %s not found", id)
		}
		return nil
	})
}

// RecordPlayer ...
func (s *SQLite) RecordPlayer(ctx context.Context, p game.Profile, ip string) error {
	now := time.Now().UnixMilli()
	return s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO players (uuid, name, ip, first_seen, last_seen) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (uuid) DO UPDATE SET name = excluded.name, last_seen = excluded.last_seen,
			ip = CASE WHEN excluded.ip != '' THEN excluded.ip ELSE players.ip END`, &sqlitex.ExecOptions{
			Args: []any{p.UUID.String(), p.Name, ip, now, now},
		})
	})
}

// PlayerByName ...
func (s *SQLite) PlayerByName(ctx context.Context, name string) (game.Profile, bool, error) {
	var (
		p     game.Profile
		found bool
	)
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT uuid, name FROM players WHERE name = ? COLLATE NOCASE
			ORDER BY last_seen DESC LIMIT 1`, &sqlitex.ExecOptions{
			Args: []any{strings.TrimSpace(name)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id, err := uuid.Parse(stmt.ColumnText(0))
				if err != nil {
					return err
				}
				p, found = game.Profile{UUID: id, Name: stmt.ColumnText(1)}, true
				return nil
			},
		})
	})
	return p, found, err
}

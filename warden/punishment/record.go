package punishment

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// Forever is the end time of punishments that never expire.
const Forever int64 = math.MaxInt64

// Record is a persisted punishment. Records are immutable once persisted.
type Record struct {
	// ID is assigned by the Store.
	ID         string
	Target     uuid.UUID
	TargetName string
	Kind       Kind
	Reason     string
	Actor      string
	// Created and EndTime are unix millisecond timestamps.
	Created       int64
	EndTime       int64
	DurationLabel string
	ByIP          bool
	// WarnLevel is zero unless Kind is Warn.
	WarnLevel int
}

// Permanent ...
func (r Record) Permanent() bool {
	return r.EndTime == Forever
}

// ActiveWarning links an identity to the warn that currently determines its warn level.
type ActiveWarning struct {
	Target       uuid.UUID
	PunishmentID string
	Level        int
	EndTime      int64
}

// Expired ...
func (w ActiveWarning) Expired(now time.Time) bool {
	return w.EndTime != Forever && w.EndTime <= now.UnixMilli()
}

// ExpiredWarning is an ActiveWarning that ran out without being superseded.
type ExpiredWarning struct {
	ActiveWarning
	TargetName string
}

// Store is the durable system of record for punishments. Implementations may block and are only called
// from worker goroutines.
type Store interface {
	// Execute persists r and returns its new ID.
	Execute(ctx context.Context, r Record) (string, error)
	// LogPlayerInfo records the address a punishment was applied to.
	LogPlayerInfo(ctx context.Context, id string, target uuid.UUID, ip string) error
	// AddActiveWarning registers w, superseding any active warning of the same target.
	AddActiveWarning(ctx context.Context, w ActiveWarning) error
	// LatestActiveWarning returns the live warning of the target, if there is one.
	LatestActiveWarning(ctx context.Context, target uuid.UUID) (ActiveWarning, bool, error)
	// LastKnownIP returns the last address the target joined from.
	LastKnownIP(ctx context.Context, target uuid.UUID) (string, bool, error)
	// ActivePunishments returns the unrevoked punishments of the target that have not ended at now.
	ActivePunishments(ctx context.Context, target uuid.UUID, now time.Time) ([]Record, error)
	// Revoke marks the active punishments of a Kind against the target as lifted.
	Revoke(ctx context.Context, target uuid.UUID, k Kind, actor string, at time.Time) error
}

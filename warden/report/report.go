// Package report collects player reports through a conversation of menu clicks and chat answers.
package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/smell-of-curry/warden/warden/game"
)

var (
	ErrNoDraft       = errors.New("no report in progress")
	ErrInvalidAction = errors.New("action not valid at this step")
	ErrInvalidValue  = errors.New("unknown option")
	ErrSelfReport    = errors.New("players cannot report themselves")
	ErrUnknownPlayer = errors.New("player has never played on this server")
	ErrCooldown      = errors.New("report cooldown active")
	ErrRateLimited   = errors.New("too many reports")
	ErrPersistence   = errors.New("report could not be stored")
)

// TargetKind is what a report is filed against.
type TargetKind int

const (
	TargetPlayer TargetKind = iota
	TargetClan
	TargetServer
)

// String ...
func (k TargetKind) String() string {
	switch k {
	case TargetPlayer:
		return "PLAYER"
	case TargetClan:
		return "CLAN"
	case TargetServer:
		return "SERVER"
	}
	panic("should never happen")
}

// ParseTargetKind ...
func ParseTargetKind(s string) (TargetKind, bool) {
	return lo.Find([]TargetKind{TargetPlayer, TargetClan, TargetServer}, func(k TargetKind) bool {
		return strings.EqualFold(k.String(), strings.TrimSpace(s))
	})
}

// Status is the handling status of a stored report.
type Status int

const (
	StatusPending Status = iota
	StatusTaken
	StatusAssigned
	StatusResolved
	StatusRejected
)

// String ...
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusTaken:
		return "TAKEN"
	case StatusAssigned:
		return "ASSIGNED"
	case StatusResolved:
		return "RESOLVED"
	case StatusRejected:
		return "REJECTED"
	}
	panic("should never happen")
}

// Next returns the status a report moves to when staff cycle it.
func (s Status) Next() Status {
	switch s {
	case StatusPending, StatusAssigned:
		return StatusTaken
	case StatusTaken:
		return StatusResolved
	case StatusResolved:
		return StatusRejected
	default:
		return StatusPending
	}
}

// ParseStatus ...
func ParseStatus(s string) (Status, bool) {
	return lo.Find([]Status{StatusPending, StatusTaken, StatusAssigned, StatusResolved, StatusRejected}, func(st Status) bool {
		return strings.EqualFold(st.String(), strings.TrimSpace(s))
	})
}

// Record is a submitted report.
type Record struct {
	ID            string
	Requester     uuid.UUID
	RequesterName string
	// Target is uuid.Nil for clan and server reports.
	Target     uuid.UUID
	TargetName string
	Kind       TargetKind
	Category   string
	Reason     string
	Details    string
	// Snapshot is the state of the target at submission, empty if it was not online.
	Snapshot  string
	Status    Status
	Moderator string
	Created   time.Time
}

// Store persists submitted reports.
type Store interface {
	CreateReport(ctx context.Context, r Record) (string, error)
}

// Category is a configured report category with its reasons.
type Category struct {
	Name    string
	Target  string
	Reasons []string
}

// For reports whether the category applies to reports against the kind passed.
func (c Category) For(k TargetKind) bool {
	return strings.EqualFold(c.Target, k.String())
}

// Config ...
type Config struct {
	Categories []Category
	// Cooldown is the minimum time between two reports of one player.
	Cooldown time.Duration
	// RateLimit is the maximum number of reports within RatePeriod. Zero disables the limit.
	RateLimit  int
	RatePeriod time.Duration
}

// category returns the category with the name passed that applies to the kind passed.
func (c Config) category(k TargetKind, name string) (Category, bool) {
	return lo.Find(c.Categories, func(cat Category) bool {
		return cat.For(k) && strings.EqualFold(cat.Name, name)
	})
}

// Draft is a report that is still being filled in.
type Draft struct {
	Requester  game.Profile
	Kind       TargetKind
	Target     uuid.UUID
	TargetName string
	Category   string
	Reason     string
	Details    string
	State      State
}

// record returns the Record the draft is submitted as.
func (d *Draft) record(snapshot string, now time.Time) Record {
	return Record{
		Requester:     d.Requester.UUID,
		RequesterName: d.Requester.Name,
		Target:        d.Target,
		TargetName:    d.TargetName,
		Kind:          d.Kind,
		Category:      d.Category,
		Reason:        d.Reason,
		Details:       d.Details,
		Snapshot:      snapshot,
		Status:        StatusPending,
		Created:       now,
	}
}

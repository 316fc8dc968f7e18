package store

import (
	"github.com/google/uuid"

	"github.com/smell-of-curry/warden/warden/punishment"
	"github.com/smell-of-curry/warden/warden/report"
)

// PunishmentModel ...
type PunishmentModel struct {
	ID         string    `json:"id,omitempty"`
	Target     uuid.UUID `json:"target"`
	TargetName string    `json:"target_name"`
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason"`
	Actor      string    `json:"actor"`
	Created    int64     `json:"created"`
	EndTime    int64     `json:"end_time"`
	Duration   string    `json:"duration"`
	ByIP       bool      `json:"by_ip"`
	WarnLevel  int       `json:"warn_level,omitempty"`
}

// punishmentModel ...
func punishmentModel(r punishment.Record) PunishmentModel {
	return PunishmentModel{
		ID:         r.ID,
		Target:     r.Target,
		TargetName: r.TargetName,
		Kind:       r.Kind.String(),
		Reason:     r.Reason,
		Actor:      r.Actor,
		Created:    r.Created,
		EndTime:    r.EndTime,
		Duration:   r.DurationLabel,
		ByIP:       r.ByIP,
		WarnLevel:  r.WarnLevel,
	}
}

// Record ...
func (m PunishmentModel) Record() (punishment.Record, bool) {
	k, ok := punishment.ParseKind(m.Kind)
	return punishment.Record{
		ID:            m.ID,
		Target:        m.Target,
		TargetName:    m.TargetName,
		Kind:          k,
		Reason:        m.Reason,
		Actor:         m.Actor,
		Created:       m.Created,
		EndTime:       m.EndTime,
		DurationLabel: m.Duration,
		ByIP:          m.ByIP,
		WarnLevel:     m.WarnLevel,
	}, ok
}

// WarningModel ...
type WarningModel struct {
	Target       uuid.UUID `json:"target"`
	TargetName   string    `json:"target_name,omitempty"`
	PunishmentID string    `json:"punishment_id"`
	Level        int       `json:"level"`
	EndTime      int64     `json:"end_time"`
}

// PlayerModel ...
type PlayerModel struct {
	UUID uuid.UUID `json:"uuid"`
	Name string    `json:"name"`
	IP   string    `json:"ip,omitempty"`
}

// PlayerInfoModel ...
type PlayerInfoModel struct {
	Target uuid.UUID `json:"target"`
	IP     string    `json:"ip"`
}

// RevokeModel ...
type RevokeModel struct {
	Target uuid.UUID `json:"target"`
	Kind   string    `json:"kind"`
	Actor  string    `json:"actor"`
	At     int64     `json:"at"`
}

// ReportModel ...
type ReportModel struct {
	ID            string    `json:"id,omitempty"`
	Requester     uuid.UUID `json:"requester"`
	RequesterName string    `json:"requester_name"`
	Target        uuid.UUID `json:"target"`
	TargetName    string    `json:"target_name"`
	Kind          string    `json:"kind"`
	Category      string    `json:"category"`
	Reason        string    `json:"reason"`
	Details       string    `json:"details"`
	Snapshot      string    `json:"snapshot"`
	Status        string    `json:"status"`
	Moderator     string    `json:"moderator,omitempty"`
	Created       int64     `json:"created"`
}

// reportModel ...
func reportModel(r report.Record) ReportModel {
	return ReportModel{
		ID:            r.ID,
		Requester:     r.Requester,
		RequesterName: r.RequesterName,
		Target:        r.Target,
		TargetName:    r.TargetName,
		Kind:          r.Kind.String(),
		Category:      r.Category,
		Reason:        r.Reason,
		Details:       r.Details,
		Snapshot:      r.Snapshot,
		Status:        r.Status.String(),
		Moderator:     r.Moderator,
		Created:       r.Created.UnixMilli(),
	}
}

// IDResponse is returned by endpoints that create records.
type IDResponse struct {
	ID string `json:"id"`
}

// IPResponse ...
type IPResponse struct {
	IP string `json:"ip"`
}

// ExpireRequest ...
type ExpireRequest struct {
	Now int64 `json:"now"`
}

package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionTimeIn           = "attendance.time_in"
	AuditActionTimeOut          = "attendance.time_out"
	AuditActionTokenIssue       = "token.issue"
	AuditActionScheduleCreate   = "schedule.create"
	AuditActionScheduleUpdate   = "schedule.update"
	AuditActionBulkAssign       = "schedule.bulk_assign"
	AuditActionOverrideSubmit   = "override.submit"
	AuditActionOverrideReviewed = "override.reviewed"
)

// AuditLog is an append-only record of a state-changing action. Written by
// this API, never read by it.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	Action    string    `db:"action" json:"action"`
	Entity    string    `db:"entity" json:"entity"`
	EntityID  string    `db:"entity_id" json:"entity_id"`
	Metadata  []byte    `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

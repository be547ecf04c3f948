package models

import (
	"time"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/clock"
)

// OverrideType distinguishes a per-date time change from a cancellation.
type OverrideType string

const (
	OverrideTypeTimeChange OverrideType = "TIME_CHANGE"
	OverrideTypeCancel     OverrideType = "CANCEL"
)

// Valid returns true when the type is a supported value.
func (t OverrideType) Valid() bool {
	return t == OverrideTypeTimeChange || t == OverrideTypeCancel
}

// OverrideStatus is the review state of a submitted override.
type OverrideStatus string

const (
	OverrideStatusPending  OverrideStatus = "PENDING"
	OverrideStatusApproved OverrideStatus = "APPROVED"
	OverrideStatusRejected OverrideStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s OverrideStatus) Valid() bool {
	switch s {
	case OverrideStatusPending, OverrideStatusApproved, OverrideStatusRejected:
		return true
	default:
		return false
	}
}

// ScheduleOverride is a date-specific modification to a recurring schedule.
// At most one override exists per (schedule, date); only APPROVED rows
// affect scan-time behaviour.
type ScheduleOverride struct {
	ID         string           `db:"id" json:"id"`
	ScheduleID string           `db:"schedule_id" json:"schedule_id"`
	Date       time.Time        `db:"date" json:"date"`
	Type       OverrideType     `db:"type" json:"type"`
	Reason     string           `db:"reason" json:"reason"`
	NewStart   *clock.ClockTime `db:"new_start" json:"new_start,omitempty"`
	NewEnd     *clock.ClockTime `db:"new_end" json:"new_end,omitempty"`
	Status     OverrideStatus   `db:"status" json:"status"`
	ReviewedBy *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// EffectiveWindow is a schedule's meeting time after applying any approved
// override for a specific date.
type EffectiveWindow struct {
	Cancelled bool            `json:"cancelled"`
	Reason    string          `json:"reason,omitempty"`
	Start     clock.ClockTime `json:"start"`
	End       clock.ClockTime `json:"end"`
}

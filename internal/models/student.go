package models

import (
	"strings"
	"time"
	"unicode"
)

// Student mirrors the admin subsystem's student record. Read-only here.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	SectionID    string    `db:"section_id" json:"section_id"`
	YearLevel    string    `db:"year_level" json:"year_level"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FullName joins the student's name parts.
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// NormalizeYearLevel canonicalises a year level to its leading numeral so
// "1st Year", "1st" and "1" compare equal. Values without a leading digit
// are returned trimmed and lowercased.
func NormalizeYearLevel(raw string) string {
	trimmed := strings.TrimSpace(raw)
	digits := ""
	for _, r := range trimmed {
		if !unicode.IsDigit(r) {
			break
		}
		digits += string(r)
	}
	if digits != "" {
		return digits
	}
	return strings.ToLower(trimmed)
}

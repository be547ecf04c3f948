package models

import "time"

// IdentityToken is a signed, student-scoped QR credential. At most one
// non-revoked token exists per (student, academic year, semester); once
// issued, uuid and signature never change.
type IdentityToken struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	AcademicYearID string     `db:"academic_year_id" json:"academic_year_id"`
	SemesterID     string     `db:"semester_id" json:"semester_id"`
	UUID           string     `db:"uuid" json:"uuid"`
	Signature      string     `db:"sig" json:"sig"`
	IssuedAt       time.Time  `db:"issued_at" json:"issued_at"`
	IssuedBy       string     `db:"issued_by" json:"issued_by"`
	Revoked        bool       `db:"revoked" json:"revoked"`
	RevokedAt      *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// TokenPayload is the wire form embedded in the QR code. All six fields
// are required for verification.
type TokenPayload struct {
	StudentID      string `json:"student_id"`
	UUID           string `json:"uuid"`
	AcademicYearID string `json:"academic_year_id"`
	SemesterID     string `json:"semester_id"`
	IssuedAt       string `json:"issued_at"`
	Sig            string `json:"sig"`
}

// MissingField returns the name of the first absent payload field, or ""
// when the payload is complete. Field absence is rejected before any
// signature work happens.
func (p TokenPayload) MissingField() string {
	switch {
	case p.StudentID == "":
		return "student_id"
	case p.UUID == "":
		return "uuid"
	case p.AcademicYearID == "":
		return "academic_year_id"
	case p.SemesterID == "":
		return "semester_id"
	case p.IssuedAt == "":
		return "issued_at"
	case p.Sig == "":
		return "sig"
	default:
		return ""
	}
}

// PayloadFor builds the canonical wire payload for a stored token.
func PayloadFor(token *IdentityToken) TokenPayload {
	return TokenPayload{
		StudentID:      token.StudentID,
		UUID:           token.UUID,
		AcademicYearID: token.AcademicYearID,
		SemesterID:     token.SemesterID,
		IssuedAt:       token.IssuedAt.UTC().Format(time.RFC3339),
		Sig:            token.Signature,
	}
}

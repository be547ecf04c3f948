package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ActivePeriod identifies the academic period scans, tokens and schedules
// are scoped to. It is resolved once per request and passed explicitly into
// every service call; nothing reads it from ambient state.
type ActivePeriod struct {
	AcademicYearID string `json:"academic_year_id"`
	SemesterID     string `json:"semester_id"`
}

// Zero reports whether the period has not been resolved.
func (p ActivePeriod) Zero() bool {
	return p.AcademicYearID == "" || p.SemesterID == ""
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/clock"
)

func window(start, end string) *Schedule {
	return &Schedule{
		DayOfWeek: 1,
		StartTime: clock.MustParse(start),
		EndTime:   clock.MustParse(end),
	}
}

func TestScheduleOverlaps(t *testing.T) {
	base := window("08:00", "09:30")

	cases := []struct {
		name     string
		start    string
		end      string
		overlaps bool
	}{
		{"contained", "08:30", "09:00", true},
		{"straddles start", "07:30", "08:30", true},
		{"straddles end", "09:00", "10:00", true},
		{"covers", "07:00", "10:00", true},
		{"identical", "08:00", "09:30", true},
		{"touching start boundary", "09:30", "10:30", true},
		{"touching end boundary", "07:00", "08:00", true},
		{"clearly before", "06:00", "07:30", false},
		{"clearly after", "09:31", "10:30", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, base.Overlaps(clock.MustParse(tc.start), clock.MustParse(tc.end)))
		})
	}
}

func TestScheduleWindow(t *testing.T) {
	s := window("08:00", "09:30")
	assert.Equal(t, "Monday 8:00 AM-9:30 AM", s.Window())
}

func TestDayName(t *testing.T) {
	assert.Equal(t, "Sunday", DayName(0))
	assert.Equal(t, "Saturday", DayName(6))
	assert.Equal(t, "day(7)", DayName(7))
}

func TestNormalizeYearLevel(t *testing.T) {
	assert.Equal(t, "1", NormalizeYearLevel("1st Year"))
	assert.Equal(t, "1", NormalizeYearLevel(" 1st "))
	assert.Equal(t, "1", NormalizeYearLevel("1"))
	assert.Equal(t, "10", NormalizeYearLevel("10th Grade"))
	assert.Equal(t, "freshman", NormalizeYearLevel(" Freshman "))
}

func TestTokenPayloadMissingField(t *testing.T) {
	payload := TokenPayload{
		StudentID:      "stu-1",
		UUID:           "u-1",
		AcademicYearID: "ay-1",
		SemesterID:     "sem-1",
		IssuedAt:       "2026-08-31T08:00:00Z",
		Sig:            "abc",
	}
	assert.Equal(t, "", payload.MissingField())

	payload.UUID = ""
	assert.Equal(t, "uuid", payload.MissingField())

	payload.StudentID = ""
	assert.Equal(t, "student_id", payload.MissingField())
}

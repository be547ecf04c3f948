// Package clock provides a date-independent time-of-day value used for
// schedule windows and attendance timestamps. Schedules repeat weekly, so
// only the hour and minute take part in comparisons.
package clock

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ClockTime is a time of day expressed as minutes since midnight.
type ClockTime int

// Layouts accepted by Parse, tried in order.
var layouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// Parse normalises a textual time of day. Both 24-hour ("08:00") and
// 12-hour ("8:00 AM") inputs resolve to the same value.
func Parse(raw string) (ClockTime, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return FromTime(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", raw)
}

// MustParse parses raw and panics on failure. For tests and constants.
func MustParse(raw string) ClockTime {
	ct, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return ct
}

// FromTime extracts the time-of-day portion of a timestamp.
func FromTime(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// Minutes returns the value as whole minutes since midnight.
func (c ClockTime) Minutes() int {
	return int(c)
}

// Sub returns the signed minute difference c - other.
func (c ClockTime) Sub(other ClockTime) int {
	return int(c) - int(other)
}

// Before reports whether c is strictly earlier than other.
func (c ClockTime) Before(other ClockTime) bool {
	return c < other
}

// After reports whether c is strictly later than other.
func (c ClockTime) After(other ClockTime) bool {
	return c > other
}

// String formats the value in 24-hour "HH:MM" form, the canonical
// storage representation.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Format12 formats the value in 12-hour clock form, e.g. "8:05 AM".
func (c ClockTime) Format12() string {
	h, m := int(c)/60, int(c)%60
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, meridiem)
}

// MarshalJSON emits the canonical "HH:MM" form.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts any layout Parse understands.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer, storing "HH:MM".
func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner for "HH:MM" text columns. Postgres TIME
// columns scanned through lib/pq also arrive as strings or time.Time.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case time.Time:
		*c = FromTime(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/actimerge/schema"
)

// WallClockLayout is how header timestamps are rendered.
const WallClockLayout = "2006-01-02 15:04:05"

// Layouts that carry a UTC offset. Fractional seconds are accepted after the
// seconds field even though the layouts do not spell them out.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
}

// Layouts without an offset, read in the configured location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a timestamp string. An explicit offset is kept as-is,
// otherwise the value is interpreted in loc (UTC when nil).
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", schema.ErrInvalidInput)
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", schema.ErrInvalidInput, s)
}

// FormatWallClock renders t in its own location without offset.
func FormatWallClock(t time.Time) string {
	return t.Format(WallClockLayout)
}

// ParseLocation resolves a timezone name such as "UTC", "Local" or "Europe/Amsterdam".
// An empty name means UTC.
func ParseLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", schema.ErrInvalidInput, name)
	}
	return loc, nil
}

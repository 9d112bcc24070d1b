package contract

import (
	"testing"
	"time"
)

// FuzzParseTimestamp makes sure arbitrary input never panics and that
// successful parses survive a round trip through RFC3339.
func FuzzParseTimestamp(f *testing.F) {
	for _, seed := range []string{
		"2013-11-14T15:00:00+0100",
		"2024-03-01 12:00:00",
		"2024-03-01",
		"",
		"not a time",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		ts, err := ParseTimestamp(s, time.UTC)
		if err != nil {
			return
		}
		back, err := time.Parse(time.RFC3339Nano, ts.Format(time.RFC3339Nano))
		if err == nil && !back.Equal(ts) {
			t.Fatalf("round trip mismatch for %q: %v != %v", s, back, ts)
		}
	})
}

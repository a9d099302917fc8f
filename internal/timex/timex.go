// Package timex holds the time encodings shared by the local store, the
// document wire format and the JSON configuration.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// InstantLayout is a fixed-width UTC layout. Values in this layout sort
	// lexicographically in time order, which the SQLite schema relies on.
	InstantLayout = "2006-01-02T15:04:05.000000000Z"

	// DateLayout is the calendar-day layout used for expense dates.
	DateLayout = "2006-01-02"
)

// FormatInstant renders t in UTC using InstantLayout.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

// ParseInstant accepts InstantLayout as well as any RFC 3339 timestamp and
// returns the instant in UTC.
func ParseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(InstantLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatDate renders the calendar day of t in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar day. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Duration wraps time.Duration so config files can say "3s" or give
// integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		return err
	default:
		return errors.New("invalid duration")
	}
}

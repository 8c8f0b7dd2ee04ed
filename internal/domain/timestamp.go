package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayout matches what mobile clients write: millisecond precision
// with the producer's UTC offset ("Z" for UTC).
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DayLayout is the calendar day key format used for sessions and goals.
const DayLayout = "2006-01-02"

// Timestamp is a point in time persisted as an ISO-8601 string.
// It decodes full RFC 3339 strings as well as bare dates ("2024-01-10").
// The offset it was written with is kept, so Day reports the calendar day
// as the writer saw it.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, dropping the monotonic clock reading.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Round(0)}
}

// ParseTimestamp parses an RFC 3339 timestamp or a YYYY-MM-DD date.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

// Day returns the calendar day key of the timestamp: the date component as written.
func (t Timestamp) Day() string {
	return t.Format(DayLayout)
}

// String formats the timestamp the way it is persisted.
func (t Timestamp) String() string {
	return t.Format(timestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(timestampLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// isoLayout matches what browsers emit from Date.toISOString().
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// JSONTime wraps time.Time so we can control both
// JSON un/marshaling and SQL driver encoding.
type JSONTime time.Time

// Now returns the current time in UTC as a JSONTime.
func Now() JSONTime {
	return JSONTime(time.Now().UTC())
}

// Time unwraps the value.
func (jt JSONTime) Time() time.Time {
	return time.Time(jt)
}

// IsZero reports whether the timestamp was never set.
func (jt JSONTime) IsZero() bool {
	return time.Time(jt).IsZero()
}

// UnmarshalJSON accepts RFC3339 with or without fractional seconds, the
// zone-less forms older exports used, and an empty string or null.
func (jt *JSONTime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*jt = JSONTime(time.Time{})
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		*jt = JSONTime(time.Time{})
		return nil
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			*jt = JSONTime(t)
			return nil
		}
	}
	return fmt.Errorf("JSONTime.UnmarshalJSON: cannot parse %q", s)
}

// MarshalJSON emits millisecond ISO-8601 in UTC.
func (jt JSONTime) MarshalJSON() ([]byte, error) {
	t := time.Time(jt)
	if t.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(t.UTC().Format(isoLayout))
}

// Value implements driver.Valuer so GORM/pgx can
// turn JSONTime into a SQL TIMESTAMPTZ parameter.
func (jt JSONTime) Value() (driver.Value, error) {
	return time.Time(jt), nil
}

// Scan implements sql.Scanner so GORM can read
// TIMESTAMPTZ back into JSONTime when querying.
func (jt *JSONTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*jt = JSONTime(time.Time{})
		return nil
	case time.Time:
		*jt = JSONTime(v)
		return nil
	case []byte:
		return jt.parseText(string(v))
	case string:
		return jt.parseText(v)
	default:
		return fmt.Errorf("JSONTime.Scan: unsupported type %T", src)
	}
}

func (jt *JSONTime) parseText(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("JSONTime.Scan: parse %q: %w", s, err)
	}
	*jt = JSONTime(t)
	return nil
}

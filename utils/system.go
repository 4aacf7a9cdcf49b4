// fedistash/utils/system.go
package utils

import (
	"time"
)

// GetTime returns the current time. Useful for mocking in tests.
func GetTime() time.Time {
	return time.Now()
}

// GetSQLTime returns the current time in UTC for database storage.
func GetSQLTime() time.Time {
	return time.Now().UTC()
}

// FormatSQLTime renders a timestamp the way post created_at columns store
// it. The format sorts lexicographically, which the cursor and range
// queries rely on.
func FormatSQLTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseSQLTime parses a stored created_at value, returning the zero time
// for anything unparseable.
func ParseSQLTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

package common

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order by ParseTimestamp. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"20060102T150405",
	"20060102T1504",
}

// ParseTimestamp parses an ISO-8601 style timestamp, including the compact
// vendor form "20240105T123000". The second return value is false when no
// layout matches.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(value, "z") {
		value = strings.TrimSuffix(value, "z") + "Z"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z07:00")
}

// ParseTradeDate parses a trade date, falling back to now (UTC) when unparsable.
func ParseTradeDate(value string, now time.Time) time.Time {
	if t, ok := ParseTimestamp(value); ok {
		return t
	}
	return now.UTC()
}

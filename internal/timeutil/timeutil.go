// File path: internal/timeutil/timeutil.go

// Package timeutil normalizes the timestamp representations found in
// third-party session stores: epoch seconds, epoch milliseconds, ISO-8601
// strings with or without a zone, and missing values.
package timeutil

import (
	"strconv"
	"strings"
	"time"
)

// Values at or above this magnitude are interpreted as epoch milliseconds.
// Epoch seconds will not reach 1e12 until the year 33658.
const millisThreshold = 1e12

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp converts a heterogeneous timestamp value into a UTC instant.
// It accepts nil, string, integer, and float inputs and reports ok=false for
// anything unparseable; it never panics or returns an error.
func ParseTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case string:
		return parseString(v)
	case int:
		return fromEpoch(float64(v))
	case int32:
		return fromEpoch(float64(v))
	case int64:
		return fromEpoch(float64(v))
	case float32:
		return fromEpoch(float64(v))
	case float64:
		return fromEpoch(v)
	default:
		return time.Time{}, false
	}
}

func parseString(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.UTC(), true
		}
	}
	// Numeric strings carry epoch values in some Cursor schema versions.
	if num, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return fromEpoch(num)
	}
	return time.Time{}, false
}

func fromEpoch(value float64) (time.Time, bool) {
	if value <= 0 {
		return time.Time{}, false
	}
	if value >= millisThreshold {
		return time.UnixMilli(int64(value)).UTC(), true
	}
	secs := int64(value)
	nanos := int64((value - float64(secs)) * float64(time.Second))
	return time.Unix(secs, nanos).UTC(), true
}

// InWindow reports whether an instant falls inside the inclusive window
// [start, end]. A nil bound leaves that side open. An unknown instant
// (ok=false) is accepted only by the fully unbounded window; any bounded
// window fails closed.
func InWindow(ts time.Time, ok bool, start, end *time.Time) bool {
	if !ok {
		return start == nil && end == nil
	}
	if start != nil && ts.Before(*start) {
		return false
	}
	if end != nil && ts.After(*end) {
		return false
	}
	return true
}

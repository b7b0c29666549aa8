// File path: internal/daemon/window.go

// Package daemon orchestrates sync and maintenance passes over the session
// catalog, either one-shot from the CLI or on a polling loop.
package daemon

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Exit codes for one-shot runs.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// ResolveWindowBounds turns a relative window token ("30d", "12h", "45m",
// "2w", "all") plus optional absolute since/until overrides into concrete
// bounds. Overrides win over the token; "all" and empty inputs leave both
// bounds open. Errors here are usage errors and must surface before any
// catalog I/O.
func ResolveWindowBounds(window, since, until string, now time.Time) (*time.Time, *time.Time, error) {
	var start, end *time.Time

	if strings.TrimSpace(since) != "" {
		parsed, err := parseBound(since)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --since %q: %w", since, err)
		}
		start = &parsed
	}
	if strings.TrimSpace(until) != "" {
		parsed, err := parseBound(until)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --until %q: %w", until, err)
		}
		end = &parsed
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("--until %s precedes --since %s", until, since)
	}
	if start != nil || end != nil {
		return start, end, nil
	}

	window = strings.TrimSpace(strings.ToLower(window))
	if window == "" || window == "all" {
		return nil, nil, nil
	}
	duration, err := parseWindowToken(window)
	if err != nil {
		return nil, nil, err
	}
	from := now.Add(-duration)
	return &from, nil, nil
}

func parseBound(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not a recognized timestamp")
}

func parseWindowToken(token string) (time.Duration, error) {
	if len(token) < 2 {
		return 0, fmt.Errorf("invalid window %q", token)
	}
	unit := token[len(token)-1]
	count, err := strconv.Atoi(token[:len(token)-1])
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("invalid window %q", token)
	}
	switch unit {
	case 'm':
		return time.Duration(count) * time.Minute, nil
	case 'h':
		return time.Duration(count) * time.Hour, nil
	case 'd':
		return time.Duration(count) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(count) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid window unit %q (use m, h, d, or w)", string(unit))
	}
}

package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockRegex    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	dateRegex     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	relativeRegex = regexp.MustCompile(`^\+?(\d+)\s*(m|min|mins|minutes?|h|hrs?|hours?)$`)
)

// ParseInstant parses a point in time entered on the command line.
// Supported formats:
// - RFC 3339 (e.g., "2026-02-18T09:00:00Z")
// - yyyy-mm-dd HH:MM (e.g., "2026-02-18 09:00")
// - dd/mm/yyyy HH:MM (e.g., "18/02/2026 09:00")
// - HH:MM, meaning that time today
// Times without a zone are read in loc. The result is UTC.
func ParseInstant(input string, now time.Time, loc *time.Location) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("time is required")
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", input, loc); err == nil {
		return t.UTC(), nil
	}

	if date, clock, ok := strings.Cut(input, " "); ok {
		day, err := parseDate(date, loc)
		if err != nil {
			return time.Time{}, err
		}
		h, m, err := parseClock(strings.TrimSpace(clock))
		if err != nil {
			return time.Time{}, err
		}
		return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute).UTC(), nil
	}

	if h, m, err := parseClock(input); err == nil {
		local := now.In(loc)
		t := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc)
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid time %q. Use: RFC 3339, yyyy-mm-dd HH:MM, dd/mm/yyyy HH:MM, or HH:MM", input)
}

// ParseOffset parses a relative duration like "8h", "+90m" or "8 hours".
func ParseOffset(input string) (time.Duration, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if d, err := time.ParseDuration(strings.TrimPrefix(input, "+")); err == nil && d > 0 {
		return d, nil
	}

	matches := relativeRegex.FindStringSubmatch(input)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid duration %q. Use: 8h, 90m, or 8 hours", input)
	}
	amount, err := strconv.Atoi(matches[1])
	if err != nil || amount < 1 {
		return 0, fmt.Errorf("duration must be positive")
	}
	if strings.HasPrefix(matches[2], "m") {
		return time.Duration(amount) * time.Minute, nil
	}
	return time.Duration(amount) * time.Hour, nil
}

// ParseDay normalizes a calendar day to yyyy-mm-dd. Accepts yyyy-mm-dd,
// dd/mm/yyyy, "today" and "yesterday".
func ParseDay(input string, now time.Time, loc *time.Location) (string, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if loc == nil {
		loc = time.Local
	}
	switch input {
	case "", "today":
		return now.In(loc).Format("2006-01-02"), nil
	case "yesterday":
		return now.In(loc).AddDate(0, 0, -1).Format("2006-01-02"), nil
	}
	if t, err := time.Parse("2006-01-02", input); err == nil {
		return t.Format("2006-01-02"), nil
	}
	day, err := parseDate(input, loc)
	if err != nil {
		return "", err
	}
	return day.Format("2006-01-02"), nil
}

// parseDate parses dd/mm/yyyy format
func parseDate(input string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", input, loc); err == nil {
		return t, nil
	}

	matches := dateRegex.FindStringSubmatch(input)
	if len(matches) != 4 {
		return time.Time{}, fmt.Errorf("invalid date %q", input)
	}

	day, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	year, _ := strconv.Atoi(matches[3])

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)

	// Check if date is valid (handles leap years, etc.)
	if date.Day() != day || date.Month() != time.Month(month) || date.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date %q", input)
	}
	return date, nil
}

func parseClock(input string) (int, int, error) {
	matches := clockRegex.FindStringSubmatch(input)
	if len(matches) != 3 {
		return 0, 0, fmt.Errorf("invalid clock time %q", input)
	}
	h, _ := strconv.Atoi(matches[1])
	m, _ := strconv.Atoi(matches[2])
	if h > 23 || m > 59 {
		return 0, 0, fmt.Errorf("clock time %q out of range", input)
	}
	return h, m, nil
}

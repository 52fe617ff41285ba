package generic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CLOCK - Injected "now" (tests pin it, production uses wall time)
// =============================================================================

// Clock returns the current instant.
type Clock func() time.Time

// SystemClock is wall time at millisecond precision, UTC.
func SystemClock() time.Time {
	return Instant(time.Now())
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) Clock {
	t = Instant(t)
	return func() time.Time { return t }
}

// Instant normalizes t to UTC millisecond precision, the resolution of
// every stored timestamp.
func Instant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

const isoLayout = "2006-01-02T15:04:05.000Z"

// FormatInstant renders t as a fixed-width ISO-8601 UTC string.
// Fixed width keeps lexicographic and chronological order identical.
func FormatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoLayout)
}

// =============================================================================
// PARSING - Free-form user timestamps
// =============================================================================

var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"02.01.2006 15.04",
	"2006-01-02",
	"02.01.2006",
}

// ParseInstant accepts RFC 3339 instants and common local layouts
// (interpreted in loc). Returns ErrInvalidTimestamp otherwise.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Instant(t), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Instant(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// ParseBound parses a range bound for ledger totals and searches.
// Empty means unbounded (ok=false). A bare date covers the whole day:
// start of day for a lower bound, last millisecond for an upper bound.
func ParseBound(s string, upper bool, loc *time.Location) (t time.Time, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if d, derr := time.ParseInLocation("2006-01-02", s, loc); derr == nil {
		if upper {
			d = d.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		return Instant(d), true, nil
	}
	t, err = ParseInstant(s, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// =============================================================================
// FOUND-AT NORMALIZATION - Dates to DD.MM.YYYY, times to HH.MM
// =============================================================================

var (
	reDateYMD   = regexp.MustCompile(`^(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})$`)
	reDateDMY   = regexp.MustCompile(`^(\d{1,2})[.\-/](\d{1,2})[.\-/](\d{4})$`)
	reDate8     = regexp.MustCompile(`^(\d{2})(\d{2})(\d{4})$`)
	reDate6     = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})$`)
	reDate5     = regexp.MustCompile(`^(\d{1})(\d{2})(\d{2})$`)
	reDate4     = regexp.MustCompile(`^(\d{1})(\d{1})(\d{2})$`)
	reTimeHour  = regexp.MustCompile(`^(\d{1,2})$`)
	reTimeSep   = regexp.MustCompile(`^(\d{1,2})[:.](\d{1,2})$`)
	reTimeDigit = regexp.MustCompile(`^(\d{3,4})$`)
)

// NormalizeDate accepts DD.MM.YYYY, DD-MM-YYYY, DD/MM/YYYY, YYYY-MM-DD
// (and / . separators), DDMMYYYY, DDMMYY, DMMYY and DMYY (two-digit years
// are 20YY). Returns the DD.MM.YYYY form, or ok=false for invalid dates.
func NormalizeDate(in string) (string, bool) {
	s := strings.TrimSpace(in)
	if s == "" {
		return "", false
	}
	var d, m, y string
	switch {
	case reDateYMD.MatchString(s):
		p := reDateYMD.FindStringSubmatch(s)
		y, m, d = p[1], p[2], p[3]
	case reDateDMY.MatchString(s):
		p := reDateDMY.FindStringSubmatch(s)
		d, m, y = p[1], p[2], p[3]
	case reDate8.MatchString(s):
		p := reDate8.FindStringSubmatch(s)
		d, m, y = p[1], p[2], p[3]
	case reDate6.MatchString(s):
		p := reDate6.FindStringSubmatch(s)
		d, m, y = p[1], p[2], "20"+p[3]
	case reDate5.MatchString(s):
		p := reDate5.FindStringSubmatch(s)
		d, m, y = p[1], p[2], "20"+p[3]
	case reDate4.MatchString(s):
		p := reDate4.FindStringSubmatch(s)
		d, m, y = p[1], p[2], "20"+p[3]
	default:
		return "", false
	}
	di, _ := strconv.Atoi(d)
	mi, _ := strconv.Atoi(m)
	yi, _ := strconv.Atoi(y)
	if !validDate(di, mi, yi) {
		return "", false
	}
	return fmt.Sprintf("%02d.%02d.%04d", di, mi, yi), true
}

func validDate(d, m, y int) bool {
	if y < 1900 || y > 2100 || m < 1 || m > 12 || d < 1 || d > 31 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}

// NormalizeTime accepts H, HH, HH:MM, HH.MM, HMM and HHMM (24h) and
// returns HH.MM, or ok=false for invalid times.
func NormalizeTime(in string) (string, bool) {
	s := strings.TrimSpace(in)
	if s == "" {
		return "", false
	}
	var h, m int
	switch {
	case reTimeHour.MatchString(s):
		h, _ = strconv.Atoi(s)
	case reTimeSep.MatchString(s):
		p := reTimeSep.FindStringSubmatch(s)
		h, _ = strconv.Atoi(p[1])
		m, _ = strconv.Atoi(p[2])
	case reTimeDigit.MatchString(s):
		raw := strings.Repeat("0", 4-len(s)) + s
		h, _ = strconv.Atoi(raw[:2])
		m, _ = strconv.Atoi(raw[2:])
	default:
		return "", false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d.%02d", h, m), true
}

// DateToISO converts a normalized DD.MM.YYYY date to YYYY-MM-DD so it can
// be compared lexicographically. Unparseable input returns "".
func DateToISO(s string) string {
	norm, ok := NormalizeDate(s)
	if !ok {
		return ""
	}
	return norm[6:10] + "-" + norm[3:5] + "-" + norm[0:2]
}

// Package timecode implements the two timestamp encodings used in command
// timing tags: DOY strings (`YYYY-DDDThh:mm:ss.sss`, a UTC instant expressed
// as year and day-of-year) and HMS strings (`hh:mm:ss.sss`, a duration).
// Both are strict: a string that does not match the exact shape is rejected
// with a descriptive error. Missing milliseconds default to zero.
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	doyPattern = regexp.MustCompile(`^(\d{4})-(\d{3})T(\d{2}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?$`)
	hmsPattern = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?$`)
)

// ParseDOY parses a day-of-year timestamp into a UTC instant.
func ParseDOY(s string) (time.Time, error) {
	m := doyPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid DOY timestamp %q: expected YYYY-DDDThh:mm:ss[.sss]", s)
	}
	year := mustInt(m[1])
	doy := mustInt(m[2])
	hour := mustInt(m[3])
	minute := mustInt(m[4])
	sec := mustInt(m[5])
	ms := parseMillis(m[6])

	if doy < 1 || doy > daysInYear(year) {
		return time.Time{}, fmt.Errorf("invalid DOY timestamp %q: day %d out of range for year %d", s, doy, year)
	}
	if hour > 23 {
		return time.Time{}, fmt.Errorf("invalid DOY timestamp %q: hour %d out of range", s, hour)
	}
	if minute > 59 {
		return time.Time{}, fmt.Errorf("invalid DOY timestamp %q: minute %d out of range", s, minute)
	}
	if sec > 59 {
		return time.Time{}, fmt.Errorf("invalid DOY timestamp %q: second %d out of range", s, sec)
	}

	t := time.Date(year, time.January, 1, hour, minute, sec, ms*int(time.Millisecond), time.UTC)
	return t.AddDate(0, 0, doy-1), nil
}

// FormatDOY renders a UTC instant as a DOY timestamp with millisecond
// precision. Sub-millisecond detail is truncated.
func FormatDOY(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d-%03dT%02d:%02d:%02d.%03d",
		t.Year(), t.YearDay(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(time.Millisecond))
}

// ParseHMS parses an hours:minutes:seconds duration string.
func ParseHMS(s string) (time.Duration, error) {
	m := hmsPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid HMS duration %q: expected hh:mm:ss[.sss]", s)
	}
	hours := mustInt(m[1])
	minutes := mustInt(m[2])
	secs := mustInt(m[3])
	ms := parseMillis(m[4])

	if minutes > 59 {
		return 0, fmt.Errorf("invalid HMS duration %q: minute %d out of range", s, minutes)
	}
	if secs > 59 {
		return 0, fmt.Errorf("invalid HMS duration %q: second %d out of range", s, secs)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(secs)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// FormatHMS renders a non-negative duration as an HMS string with
// millisecond precision.
func FormatHMS(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	secs := d / time.Second
	d -= secs * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, ms)
}

func parseMillis(group string) int {
	if group == "" {
		return 0
	}
	// "5" means 500ms, "05" means 50ms: the group is a decimal fraction.
	for len(group) < 3 {
		group += "0"
	}
	return mustInt(group)
}

func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		// The regexp guarantees digits only.
		panic(fmt.Sprintf("timecode: non-numeric capture %q", s))
	}
	return n
}

func daysInYear(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}

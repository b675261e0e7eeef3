package shared

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Precision records how many components a release date carried.
type Precision int

const (
	YearPrecision Precision = iota + 1
	MonthPrecision
	DayPrecision
)

func (p Precision) String() string {
	switch p {
	case YearPrecision:
		return "year"
	case MonthPrecision:
		return "month"
	case DayPrecision:
		return "day"
	default:
		return "unknown"
	}
}

// ReleaseDate is a partially specified calendar date as published by the music catalog: "2020", "2020-03" or "2020-03-05".
type ReleaseDate struct {
	Year      int
	Month     int // 0 when absent
	Day       int // 0 when absent
	Precision Precision
	raw       string
}

// ParseReleaseDate parses "YYYY", "YYYY-M[M]" or "YYYY-M[M]-D[D]". Components may also be separated by dots.
//
// The year must have exactly four digits and month and day one or two. Anything else wraps [ErrDateFormat].
func ParseReleaseDate(s string) (ReleaseDate, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ReleaseDate{}, fmt.Errorf("%w: empty", ErrDateFormat)
	}

	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '-' || r == '.' })
	if len(parts) > 3 || strings.Count(raw, "-")+strings.Count(raw, ".") != len(parts)-1 {
		return ReleaseDate{}, fmt.Errorf("%w: %q has the wrong number of components", ErrDateFormat, raw)
	}

	widths := [][2]int{{4, 4}, {1, 2}, {1, 2}}
	values := make([]int, 3)
	for i, part := range parts {
		if len(part) < widths[i][0] || len(part) > widths[i][1] {
			return ReleaseDate{}, fmt.Errorf("%w: %q component %d has the wrong length", ErrDateFormat, raw, i+1)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || strings.ContainsAny(part, "+-") {
			return ReleaseDate{}, fmt.Errorf("%w: %q component %d is not numeric", ErrDateFormat, raw, i+1)
		}
		values[i] = n
	}

	d := ReleaseDate{Year: values[0], Month: values[1], Day: values[2], Precision: Precision(len(parts)), raw: raw}
	if d.Month > 12 || (d.Precision >= MonthPrecision && d.Month == 0) {
		return ReleaseDate{}, fmt.Errorf("%w: %q month out of range", ErrDateFormat, raw)
	}
	if d.Day > 31 || (d.Precision == DayPrecision && d.Day == 0) {
		return ReleaseDate{}, fmt.Errorf("%w: %q day out of range", ErrDateFormat, raw)
	}
	if d.Precision == DayPrecision && d.Time().Day() != d.Day {
		return ReleaseDate{}, fmt.Errorf("%w: %q is not a calendar day", ErrDateFormat, raw)
	}
	return d, nil
}

// MustParseReleaseDate is like [ParseReleaseDate] but panics on error. Intended for literals and tests.
func MustParseReleaseDate(s string) ReleaseDate {
	d, err := ParseReleaseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time normalizes the date to midnight UTC, filling a missing month or day with 1. Year zero becomes year 1.
func (d ReleaseDate) Time() time.Time {
	year, month, day := d.Year, d.Month, d.Day
	if year == 0 {
		year = 1
	}
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// SortKey renders the zero-padded "YYYYMMDD" form with "00" in place of missing components.
//
// Keys order like the dates they describe except that a year-only date sorts before January 1st of that year.
func (d ReleaseDate) SortKey() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// Compare orders two dates by calendar day, breaking ties by precision so "2020-01-01" sorts after "2020".
func (d ReleaseDate) Compare(other ReleaseDate) int {
	if c := d.Time().Compare(other.Time()); c != 0 {
		return c
	}
	switch {
	case d.Precision < other.Precision:
		return -1
	case d.Precision > other.Precision:
		return 1
	default:
		return 0
	}
}

// After reports whether d is strictly later than other under [ReleaseDate.Compare].
func (d ReleaseDate) After(other ReleaseDate) bool {
	return d.Compare(other) > 0
}

// OnOrAfter reports whether the calendar form of d is not before t.
func (d ReleaseDate) OnOrAfter(t time.Time) bool {
	return !d.Time().Before(t)
}

// String returns the date as it was parsed.
func (d ReleaseDate) String() string {
	if d.raw != "" {
		return d.raw
	}
	switch d.Precision {
	case YearPrecision:
		return fmt.Sprintf("%04d", d.Year)
	case MonthPrecision:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
}

package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatNumber returns a transaction number like "2025-01-001".
func FormatNumber(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// ParseNumber parses "2025-01-001" into year, month, seq.
func ParseNumber(number string) (year, month, seq int, err error) {
	parts := strings.SplitN(number, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid transaction number format: %q", number)
	}

	year, month, err = parseYearMonth(parts[0], parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid transaction number %q: %w", number, err)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return 0, 0, 0, fmt.Errorf("invalid sequence in transaction number %q", number)
	}

	return year, month, seq, nil
}

// Period returns the "YYYY-MM" period a date falls in.
func Period(t time.Time) string {
	return FormatPeriod(t.Year(), int(t.Month()))
}

// FormatPeriod returns "YYYY-MM".
func FormatPeriod(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParsePeriod parses "2025-01" into year and month.
func ParsePeriod(period string) (year, month int, err error) {
	parts := strings.Split(period, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("invalid period %q: want YYYY-MM", period)
	}
	year, month, err = parseYearMonth(parts[0], parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid period %q: %w", period, err)
	}
	return year, month, nil
}

// PeriodsOfYear returns the twelve periods of a calendar year.
func PeriodsOfYear(year int) []string {
	periods := make([]string, 12)
	for m := 1; m <= 12; m++ {
		periods[m-1] = FormatPeriod(year, m)
	}
	return periods
}

func parseYearMonth(y, m string) (int, int, error) {
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", y)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", m)
	}
	return year, month, nil
}

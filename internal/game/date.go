package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Date is an in-game month.
type Date struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Valid reports whether the month is in range.
func (d Date) Valid() bool {
	return d.Month >= 1 && d.Month <= 12
}

// AddMonths returns the date n months later, rolling over years.
func (d Date) AddMonths(n int) Date {
	total := d.Year*12 + (d.Month - 1) + n
	year := total / 12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	return Date{Month: month + 1, Year: year}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	return d.Month < other.Month
}

// String formats the date as month/year.
func (d Date) String() string {
	return fmt.Sprintf("%d/%d", d.Month, d.Year)
}

// ParseDate parses a month/year string.
func ParseDate(s string) (Date, error) {
	month, year, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Date{}, inputf(ErrInvalidDate, "%q is not month/year", s)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return Date{}, inputf(ErrInvalidDate, "bad month in %q", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Date{}, inputf(ErrInvalidDate, "bad year in %q", s)
	}
	d := Date{Month: m, Year: y}
	if !d.Valid() {
		return Date{}, inputf(ErrInvalidDate, "month %d out of range", m)
	}
	return d, nil
}

package utils

import (
	"fmt"
	"log"
	"time"
)

const DateFormat = "2006-01-02"

// TimeNowIn returns the current time in the named location.
func TimeNowIn(location string) time.Time {
	loc, err := time.LoadLocation(location)
	if err != nil {
		log.Println("Failed to load location, falling back to UTC", err)
		return time.Now().UTC()
	}
	return time.Now().In(loc)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into midnight UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q want format %q: %w", s, DateFormat, err)
	}
	return t, nil
}

// FormatDay renders t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DateFormat)
}

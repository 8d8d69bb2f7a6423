// Package timeutil provides calendar-day helpers bound to a configurable zone.
// Streaks and the daily quiz cap are both defined in terms of the user's
// calendar day, so every day computation in the engine goes through here.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-day format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// LoadZone resolves an IANA zone name. Empty means UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

func zone(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// DayKey formats t's calendar day in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(zone(loc)).Format(DateLayout)
}

// ParseDayKey is the inverse of DayKey; the result is midnight in loc.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, key, zone(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day key %q: %w", key, err)
	}
	return t, nil
}

// DaysBetween counts calendar days from a to b in loc (negative if b is earlier).
// Computed on civil dates, so DST transitions never produce off-by-one results.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	loc = zone(loc)
	a, b = a.In(loc), b.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

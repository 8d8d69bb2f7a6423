package progress

import (
	"time"

	"github.com/alem-hub/progress-engine/pkg/timeutil"
)

// Streak tracks consecutive calendar days with at least one applied accrual.
type Streak struct {
	// Current - length of the running streak.
	Current int

	// Longest - best streak ever reached.
	Longest int

	// LastActiveDay - calendar day (YYYY-MM-DD) of the last recorded activity.
	LastActiveDay string
}

// RecordActivity records activity at t and updates the streak.
func (s *Streak) RecordActivity(t time.Time, loc *time.Location) {
	day := timeutil.DayKey(t, loc)

	// First activity ever
	if s.LastActiveDay == "" {
		s.start(day)
		return
	}

	last, err := timeutil.ParseDayKey(s.LastActiveDay, loc)
	if err != nil {
		s.start(day)
		return
	}

	switch diff := timeutil.DaysBetween(last, t, loc); {
	case diff <= 0:
		// Same day, or a backdated accrual: nothing to change.
		return
	case diff == 1:
		s.Current++
	default:
		s.Current = 1
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	s.LastActiveDay = day
}

func (s *Streak) start(day string) {
	s.Current = 1
	if s.Longest < 1 {
		s.Longest = 1
	}
	s.LastActiveDay = day
}

// IsBroken reports whether a full calendar day passed without activity.
func (s Streak) IsBroken(now time.Time, loc *time.Location) bool {
	if s.LastActiveDay == "" {
		return false
	}
	last, err := timeutil.ParseDayKey(s.LastActiveDay, loc)
	if err != nil {
		return true
	}
	return timeutil.DaysBetween(last, now, loc) > 1
}

// CurrentAt is the streak as seen at now: zero once it is broken.
func (s Streak) CurrentAt(now time.Time, loc *time.Location) int {
	if s.IsBroken(now, loc) {
		return 0
	}
	return s.Current
}

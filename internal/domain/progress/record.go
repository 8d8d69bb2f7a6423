// Package progress holds the per-user XP ledger: the persisted record, the
// accrual unit of work, streak rules and the read-side snapshot.
package progress

import (
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/arena"
)

// Well-known action types. Any non-empty tag is accepted; these also drive
// the dedicated counters on Record.
const (
	ActionTaskCreated   = "task_created"
	ActionTaskCompleted = "task_completed"
	ActionQuizCompleted = "quiz_completed"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is the authoritative progression state of one user.
// It is created lazily and only ever mutated through Apply.
type Record struct {
	// UserID - opaque id supplied by the auth layer.
	UserID string

	// XP - cumulative experience, never decreases.
	XP int

	// Level - cached arena level for XP.
	Level int

	// Streak - day-granularity activity streak.
	Streak Streak

	// TotalActions - number of applied accruals.
	TotalActions int

	// TotalTasksCreated, TotalTasksCompleted, TotalQuizzesCompleted - per-action counters.
	TotalTasksCreated     int
	TotalTasksCompleted   int
	TotalQuizzesCompleted int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord returns the initial record for a first-seen user.
func NewRecord(userID string, now time.Time) *Record {
	return &Record{
		UserID:    userID,
		XP:        0,
		Level:     arena.TierForXP(0).Level,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply adds an already-validated amount to the record and updates the level,
// streak and counters. at is the accrual time; loc defines the calendar day.
func (r *Record) Apply(amount int, actionType string, at time.Time, loc *time.Location) {
	if amount <= 0 {
		return
	}
	r.XP += amount
	r.Level = arena.TierForXP(r.XP).Level
	r.Streak.RecordActivity(at, loc)

	r.TotalActions++
	switch actionType {
	case ActionTaskCreated:
		r.TotalTasksCreated++
	case ActionTaskCompleted:
		r.TotalTasksCompleted++
	case ActionQuizCompleted:
		r.TotalQuizzesCompleted++
	}
	r.UpdatedAt = at
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

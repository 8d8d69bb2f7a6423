package progress

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progress-engine/internal/domain/arena"
	"github.com/alem-hub/progress-engine/internal/domain/shared"
)

var day0 = time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)

func TestAccrualValidate(t *testing.T) {
	tests := []struct {
		name    string
		accrual Accrual
		wantErr bool
	}{
		{"valid", Accrual{UserID: "u1", Amount: 10, ActionType: "task_completed"}, false},
		{"zero amount", Accrual{UserID: "u1", Amount: 0, ActionType: "x"}, true},
		{"negative amount", Accrual{UserID: "u1", Amount: -5, ActionType: "x"}, true},
		{"empty action", Accrual{UserID: "u1", Amount: 5, ActionType: "  "}, true},
		{"empty user", Accrual{Amount: 5, ActionType: "x"}, true},
		{"negative multiplier", Accrual{UserID: "u1", Amount: 5, ActionType: "x", Multiplier: -1}, true},
		{"nan multiplier", Accrual{UserID: "u1", Amount: 5, ActionType: "x", Multiplier: math.NaN()}, true},
		{"rounds to zero", Accrual{UserID: "u1", Amount: 1, ActionType: "x", Multiplier: 0.2}, true},
		{"fractional multiplier", Accrual{UserID: "u1", Amount: 10, ActionType: "x", Multiplier: 1.25}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.accrual.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, shared.ErrInvalidAccrual))
				assert.True(t, shared.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAccrualAppliedAmount(t *testing.T) {
	assert.Equal(t, 10, Accrual{Amount: 10}.AppliedAmount())
	assert.Equal(t, 13, Accrual{Amount: 10, Multiplier: 1.25}.AppliedAmount())
	assert.Equal(t, 5, Accrual{Amount: 10, Multiplier: 0.5}.AppliedAmount())
}

func TestAccrualDedupKey(t *testing.T) {
	a := Accrual{UserID: "u1", ActionType: "task_completed", SourceID: "ev1"}
	b := a
	b.Amount = 99

	assert.Len(t, a.DedupKey(), 64)
	assert.Equal(t, a.DedupKey(), b.DedupKey(), "amount is not part of the key")

	other := a
	other.ActionType = "quiz_completed"
	assert.NotEqual(t, a.DedupKey(), other.DedupKey())

	// Field boundaries are unambiguous.
	x := Accrual{UserID: "u", ActionType: "1task", SourceID: "s"}
	y := Accrual{UserID: "u1", ActionType: "task", SourceID: "s"}
	assert.NotEqual(t, x.DedupKey(), y.DedupKey())

	assert.Empty(t, Accrual{UserID: "u1", ActionType: "x"}.DedupKey())
}

func TestRecordApply(t *testing.T) {
	rec := NewRecord("u1", day0)
	require.Equal(t, 1, rec.Level)

	rec.Apply(18, ActionTaskCompleted, day0, time.UTC)
	assert.Equal(t, 18, rec.XP)
	assert.Equal(t, 1, rec.Level)
	assert.Equal(t, 1, rec.TotalActions)
	assert.Equal(t, 1, rec.TotalTasksCompleted)
	assert.Equal(t, 1, rec.Streak.Current)

	rec.Apply(100, ActionQuizCompleted, day0.Add(time.Hour), time.UTC)
	assert.Equal(t, 118, rec.XP)
	assert.Equal(t, 2, rec.Level)
	assert.Equal(t, 1, rec.TotalQuizzesCompleted)
	assert.Equal(t, 2, rec.TotalActions)

	rec.Apply(1, "bonus", day0, time.UTC)
	assert.Equal(t, 3, rec.TotalActions)
	assert.Equal(t, 1, rec.TotalTasksCompleted)

	rec.Apply(0, ActionTaskCreated, day0, time.UTC)
	assert.Equal(t, 0, rec.TotalTasksCreated, "non-positive amounts are ignored")
}

func TestStreak(t *testing.T) {
	var s Streak

	s.RecordActivity(day0, time.UTC)
	assert.Equal(t, 1, s.Current)

	s.RecordActivity(day0.Add(5*time.Hour), time.UTC)
	assert.Equal(t, 1, s.Current, "same day does not extend")

	s.RecordActivity(day0.AddDate(0, 0, 1), time.UTC)
	s.RecordActivity(day0.AddDate(0, 0, 2), time.UTC)
	assert.Equal(t, 3, s.Current)
	assert.Equal(t, 3, s.Longest)

	s.RecordActivity(day0.AddDate(0, 0, 1), time.UTC)
	assert.Equal(t, 3, s.Current, "backdated activity is ignored")

	s.RecordActivity(day0.AddDate(0, 0, 5), time.UTC)
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 3, s.Longest)
	assert.Equal(t, "2025-05-17", s.LastActiveDay)
}

func TestStreak_CurrentAt(t *testing.T) {
	s := Streak{Current: 4, Longest: 6, LastActiveDay: "2025-05-12"}

	assert.Equal(t, 4, s.CurrentAt(day0, time.UTC))
	assert.Equal(t, 4, s.CurrentAt(day0.AddDate(0, 0, 1), time.UTC))
	assert.Equal(t, 0, s.CurrentAt(day0.AddDate(0, 0, 2), time.UTC))
	assert.False(t, Streak{}.IsBroken(day0, time.UTC))
}

func TestStreak_UsesZone(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*3600)
	var s Streak
	// 18:00 and 20:00 UTC on the same UTC day straddle midnight at UTC+5.
	s.RecordActivity(time.Date(2025, 5, 12, 18, 0, 0, 0, time.UTC), plus5)
	s.RecordActivity(time.Date(2025, 5, 12, 20, 0, 0, 0, time.UTC), plus5)
	assert.Equal(t, 2, s.Current)
}

func TestBuildSnapshot(t *testing.T) {
	rec := NewRecord("u1", day0)
	rec.Apply(18, ActionTaskCompleted, day0, time.UTC)

	snap := BuildSnapshot(rec, arena.DefaultLadder, day0, time.UTC)

	assert.Equal(t, 18, snap.XP)
	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, "Novice Grounds", snap.LevelName)
	assert.Equal(t, "Apprentice Hall", snap.NextLevelName)
	assert.Equal(t, 82, snap.XPToNextLevel)
	assert.Equal(t, 18, snap.ProgressToNextLevel)
	assert.Equal(t, 1, snap.CurrentStreak)
	assert.Equal(t, 1, snap.TotalTasksCompleted)
}

func TestNewOutcome(t *testing.T) {
	before := Record{XP: 90}
	after := Record{XP: 105}

	out := NewOutcome(&Result{Applied: true, Before: before, After: after}, arena.DefaultLadder)
	assert.True(t, out.LeveledUp)
	assert.Equal(t, 15, out.Amount)
	assert.Equal(t, 2, out.Level)
	assert.Equal(t, 1, out.PreviousLevel)

	dup := NewOutcome(&Result{Applied: false, Before: before, After: before}, arena.DefaultLadder)
	assert.False(t, dup.LeveledUp)
	assert.Zero(t, dup.Amount)
	assert.Equal(t, 90, dup.XPAfter)
}

package progress

import (
	"time"

	"github.com/alem-hub/progress-engine/internal/domain/arena"
)

// Snapshot is the read model returned by GetProgress: the stored record
// composed with the arena ladder.
type Snapshot struct {
	UserID                string `json:"user_id"`
	XP                    int    `json:"xp"`
	Level                 int    `json:"level"`
	LevelName             string `json:"level_name"`
	LevelReward           string `json:"level_reward"`
	NextLevelName         string `json:"next_level_name,omitempty"`
	XPToNextLevel         int    `json:"xp_to_next_level"`
	ProgressToNextLevel   int    `json:"progress_to_next_level"`
	CurrentStreak         int    `json:"current_streak"`
	LongestStreak         int    `json:"longest_streak"`
	TotalActions          int    `json:"total_actions"`
	TotalTasksCreated     int    `json:"total_tasks_created"`
	TotalTasksCompleted   int    `json:"total_tasks_completed"`
	TotalQuizzesCompleted int    `json:"total_quizzes_completed"`
}

// BuildSnapshot derives the snapshot at now. The level is recomputed from XP
// rather than trusted from the cached column.
func BuildSnapshot(rec *Record, ladder arena.Ladder, now time.Time, loc *time.Location) Snapshot {
	tier := ladder.TierForXP(rec.XP)
	snap := Snapshot{
		UserID:                rec.UserID,
		XP:                    rec.XP,
		Level:                 tier.Level,
		LevelName:             tier.Name,
		LevelReward:           tier.Reward,
		XPToNextLevel:         ladder.XPToNext(rec.XP),
		ProgressToNextLevel:   ladder.ProgressToNext(rec.XP),
		CurrentStreak:         rec.Streak.CurrentAt(now, loc),
		LongestStreak:         rec.Streak.Longest,
		TotalActions:          rec.TotalActions,
		TotalTasksCreated:     rec.TotalTasksCreated,
		TotalTasksCompleted:   rec.TotalTasksCompleted,
		TotalQuizzesCompleted: rec.TotalQuizzesCompleted,
	}
	if next, ok := ladder.Next(tier); ok {
		snap.NextLevelName = next.Name
	}
	return snap
}

// Outcome summarizes one AddXP call for the caller.
type Outcome struct {
	Applied       bool   `json:"applied"`
	Amount        int    `json:"amount"`
	XPBefore      int    `json:"xp_before"`
	XPAfter       int    `json:"xp_after"`
	LeveledUp     bool   `json:"leveled_up"`
	Level         int    `json:"level"`
	LevelName     string `json:"level_name"`
	PreviousLevel int    `json:"previous_level"`
}

// NewOutcome derives the outcome from the repository result.
func NewOutcome(res *Result, ladder arena.Ladder) Outcome {
	before := ladder.TierForXP(res.Before.XP)
	after := ladder.TierForXP(res.After.XP)
	out := Outcome{
		Applied:       res.Applied,
		XPBefore:      res.Before.XP,
		XPAfter:       res.After.XP,
		LeveledUp:     res.Applied && ladder.DidLevelUp(res.Before.XP, res.After.XP),
		Level:         after.Level,
		LevelName:     after.Name,
		PreviousLevel: before.Level,
	}
	if res.Applied {
		out.Amount = res.After.XP - res.Before.XP
	}
	return out
}

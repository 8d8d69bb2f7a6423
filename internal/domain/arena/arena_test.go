package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLadder_IsValid(t *testing.T) {
	require.NoError(t, DefaultLadder.Validate())
	assert.Equal(t, 1, TierForXP(0).Level)
}

// Every xp in the covered range matches exactly one tier, and TierForXP agrees with it.
func TestTierForXP_PartitionsXP(t *testing.T) {
	top := DefaultLadder[len(DefaultLadder)-1].MinXP + 5000
	for xp := 0; xp <= top; xp++ {
		matches := 0
		var matched Arena
		for _, a := range DefaultLadder {
			if a.Contains(xp) {
				matches++
				matched = a
			}
		}
		require.Equal(t, 1, matches, "xp=%d", xp)
		require.Equal(t, matched.Level, TierForXP(xp).Level, "xp=%d", xp)
	}
}

func TestTierForXP_Boundaries(t *testing.T) {
	assert.Equal(t, 1, TierForXP(99).Level)
	assert.Equal(t, 2, TierForXP(100).Level)
	assert.Equal(t, 10, TierForXP(12000).Level)
	assert.Equal(t, 10, TierForXP(1<<40).Level)
	assert.Equal(t, 1, TierForXP(-5).Level)
}

func TestNextTier(t *testing.T) {
	next, ok := NextTier(TierForXP(0))
	require.True(t, ok)
	assert.Equal(t, 2, next.Level)

	_, ok = NextTier(TierForXP(50000))
	assert.False(t, ok)
}

func TestProgressAndXPToNext(t *testing.T) {
	assert.Equal(t, 0, ProgressToNext(0))
	assert.Equal(t, 18, ProgressToNext(18))
	assert.Equal(t, 82, XPToNext(18))

	// tier 2 spans 100..249, next starts at 250
	assert.Equal(t, 50, ProgressToNext(175))
	assert.Equal(t, 75, XPToNext(175))

	assert.Equal(t, 100, ProgressToNext(20000))
	assert.Equal(t, 0, XPToNext(20000))
}

func TestDidLevelUp(t *testing.T) {
	assert.False(t, DidLevelUp(0, 18))
	assert.True(t, DidLevelUp(90, 100))
	assert.True(t, DidLevelUp(0, 600))
	assert.False(t, DidLevelUp(150, 150))
	assert.False(t, DidLevelUp(300, 120))
}

func TestLadderValidate_RejectsBrokenTables(t *testing.T) {
	tests := []struct {
		name   string
		ladder Ladder
	}{
		{"empty", Ladder{}},
		{"does not start at zero", Ladder{{Level: 1, MinXP: 10, MaxXP: Unbounded}}},
		{"gap", Ladder{{Level: 1, MinXP: 0, MaxXP: 9}, {Level: 2, MinXP: 11, MaxXP: Unbounded}}},
		{"overlap", Ladder{{Level: 1, MinXP: 0, MaxXP: 10}, {Level: 2, MinXP: 10, MaxXP: Unbounded}}},
		{"bounded top", Ladder{{Level: 1, MinXP: 0, MaxXP: 9}, {Level: 2, MinXP: 10, MaxXP: 20}}},
		{"bad numbering", Ladder{{Level: 1, MinXP: 0, MaxXP: 9}, {Level: 3, MinXP: 10, MaxXP: Unbounded}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.ladder.Validate())
		})
	}
}

func TestLadder_AppendedTierIsFound(t *testing.T) {
	extended := append(Ladder{}, DefaultLadder[:len(DefaultLadder)-1]...)
	last := DefaultLadder[len(DefaultLadder)-1]
	last.MaxXP = 19999
	extended = append(extended, last, Arena{Level: 11, Name: "Mythic Arena", MinXP: 20000, MaxXP: Unbounded})

	require.NoError(t, extended.Validate())
	assert.Equal(t, 11, extended.TierForXP(25000).Level)
	assert.Equal(t, 10, extended.TierForXP(19999).Level)
}

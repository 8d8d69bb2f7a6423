// Package arena implements the level curve: a static ladder of named XP bands.
//
// Only the structural contract lives here (thresholds, ordering, rewards).
// Icons, colours and other presentation data belong to the UI layer.
package arena

import (
	"fmt"
	"math"
)

// Unbounded marks the open upper end of the last tier.
const Unbounded = math.MaxInt

// Arena is one tier of the ladder.
type Arena struct {
	Level  int    `json:"level"`
	Name   string `json:"name"`
	MinXP  int    `json:"min_xp"`
	MaxXP  int    `json:"max_xp"`
	Reward string `json:"reward"`
}

// IsOpenEnded reports whether this is the top tier.
func (a Arena) IsOpenEnded() bool {
	return a.MaxXP == Unbounded
}

// Contains reports whether xp falls inside this tier.
func (a Arena) Contains(xp int) bool {
	return xp >= a.MinXP && xp <= a.MaxXP
}

// Ladder is an ordered, contiguous tier table.
type Ladder []Arena

// DefaultLadder is the production arena table.
var DefaultLadder = Ladder{
	{Level: 1, Name: "Novice Grounds", MinXP: 0, MaxXP: 99, Reward: "Progress tracking unlocked"},
	{Level: 2, Name: "Apprentice Hall", MinXP: 100, MaxXP: 249, Reward: "Weekly summary"},
	{Level: 3, Name: "Scholar's Court", MinXP: 250, MaxXP: 499, Reward: "Knowledge-check quizzes"},
	{Level: 4, Name: "Iron Arena", MinXP: 500, MaxXP: 999, Reward: "Streak shield badge"},
	{Level: 5, Name: "Bronze Arena", MinXP: 1000, MaxXP: 1999, Reward: "Bronze profile frame"},
	{Level: 6, Name: "Silver Arena", MinXP: 2000, MaxXP: 3499, Reward: "Silver profile frame"},
	{Level: 7, Name: "Gold Arena", MinXP: 3500, MaxXP: 5499, Reward: "Gold profile frame"},
	{Level: 8, Name: "Platinum Arena", MinXP: 5500, MaxXP: 7999, Reward: "Custom quiz topics"},
	{Level: 9, Name: "Diamond Arena", MinXP: 8000, MaxXP: 11999, Reward: "Diamond profile frame"},
	{Level: 10, Name: "Legend Arena", MinXP: 12000, MaxXP: Unbounded, Reward: "Legend title"},
}

func init() {
	if err := DefaultLadder.Validate(); err != nil {
		panic(err)
	}
}

// Validate checks the ladder invariant: levels numbered 1..N, first tier
// starts at 0, every tier starts right after the previous one ends, and only
// the last tier is open-ended.
func (l Ladder) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("arena: ladder is empty")
	}
	if l[0].MinXP != 0 {
		return fmt.Errorf("arena: first tier must start at 0, got %d", l[0].MinXP)
	}
	for i, a := range l {
		if a.Level != i+1 {
			return fmt.Errorf("arena: tier %d has level %d", i, a.Level)
		}
		if a.MaxXP < a.MinXP {
			return fmt.Errorf("arena: tier %d max %d below min %d", a.Level, a.MaxXP, a.MinXP)
		}
		last := i == len(l)-1
		if last != a.IsOpenEnded() {
			return fmt.Errorf("arena: only the last tier may be open-ended (tier %d)", a.Level)
		}
		if !last && l[i+1].MinXP != a.MaxXP+1 {
			return fmt.Errorf("arena: gap or overlap between tier %d and %d", a.Level, l[i+1].Level)
		}
	}
	return nil
}

// TierForXP returns the tier holding xp. Scans from the top so appended tiers
// are picked up without touching this code. Negative xp maps to the first tier.
func (l Ladder) TierForXP(xp int) Arena {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].MinXP <= xp {
			return l[i]
		}
	}
	return l[0]
}

// Next returns the tier above a, or false at the top.
func (l Ladder) Next(a Arena) (Arena, bool) {
	if a.Level < 1 || a.Level >= len(l) {
		return Arena{}, false
	}
	return l[a.Level], true
}

// ProgressToNext is the percentage [0,100] travelled through the current tier.
func (l Ladder) ProgressToNext(xp int) int {
	tier := l.TierForXP(xp)
	next, ok := l.Next(tier)
	if !ok {
		return 100
	}
	span := next.MinXP - tier.MinXP
	pct := int(math.Round(100 * float64(xp-tier.MinXP) / float64(span)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// XPToNext is the XP still needed to reach the next tier; 0 at the top.
func (l Ladder) XPToNext(xp int) int {
	next, ok := l.Next(l.TierForXP(xp))
	if !ok {
		return 0
	}
	if d := next.MinXP - xp; d > 0 {
		return d
	}
	return 0
}

// DidLevelUp reports whether moving from oldXP to newXP crossed into a higher tier.
func (l Ladder) DidLevelUp(oldXP, newXP int) bool {
	return l.TierForXP(newXP).Level > l.TierForXP(oldXP).Level
}

// TierForXP resolves xp against DefaultLadder.
func TierForXP(xp int) Arena { return DefaultLadder.TierForXP(xp) }

func NextTier(a Arena) (Arena, bool) { return DefaultLadder.Next(a) }

func ProgressToNext(xp int) int { return DefaultLadder.ProgressToNext(xp) }

func XPToNext(xp int) int { return DefaultLadder.XPToNext(xp) }

func DidLevelUp(oldXP, newXP int) bool { return DefaultLadder.DidLevelUp(oldXP, newXP) }

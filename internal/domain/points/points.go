// Package points converts a classified calendar activity into experience points.
// Everything here is pure: no state, no I/O, deterministic for a given input.
package points

import (
	"fmt"
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORIES
// ══════════════════════════════════════════════════════════════════════════════

// Category is the activity family produced by the external classifier.
type Category string

const (
	CategoryStudies      Category = "studies"
	CategorySport        Category = "sport"
	CategoryProfessional Category = "professional"
	CategoryPersonal     Category = "personal"
	CategoryUnknown      Category = "unknown"
)

// AllCategories returns every category in table order.
func AllCategories() []Category {
	return []Category{
		CategoryStudies,
		CategorySport,
		CategoryProfessional,
		CategoryPersonal,
		CategoryUnknown,
	}
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	_, ok := rules[c]
	return ok
}

// ParseCategory maps a free-form label to a category, falling back to unknown.
func ParseCategory(s string) Category {
	c := Category(s)
	if c.IsValid() {
		return c
	}
	return CategoryUnknown
}

// Rule is one row of the static points table.
type Rule struct {
	Base                     int
	DurationThresholdMinutes int
	DurationBonus            int
	RecurrenceBonus          int
}

var rules = map[Category]Rule{
	CategoryStudies:      {Base: 10, DurationThresholdMinutes: 60, DurationBonus: 5, RecurrenceBonus: 3},
	CategorySport:        {Base: 8, DurationThresholdMinutes: 45, DurationBonus: 4, RecurrenceBonus: 3},
	CategoryProfessional: {Base: 12, DurationThresholdMinutes: 60, DurationBonus: 6, RecurrenceBonus: 2},
	CategoryPersonal:     {Base: 5, DurationThresholdMinutes: 30, DurationBonus: 2, RecurrenceBonus: 2},
	CategoryUnknown:      {Base: 3},
}

// RuleFor returns the table row for c. Unknown categories get the unknown row.
func RuleFor(c Category) Rule {
	if r, ok := rules[c]; ok {
		return r
	}
	return rules[CategoryUnknown]
}

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Classification is the immutable output of the activity classifier.
type Classification struct {
	Category    Category `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// Calculation is a derived, explainable point value. Never persisted.
type Calculation struct {
	Category             Category `json:"category"`
	BasePoints           int      `json:"base_points"`
	DurationBonus        int      `json:"duration_bonus"`
	RecurrenceBonus      int      `json:"recurrence_bonus"`
	ConfidenceMultiplier float64  `json:"confidence_multiplier"`
	TotalPoints          int      `json:"total_points"`
	Breakdown            []string `json:"breakdown"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPUTATION
// ══════════════════════════════════════════════════════════════════════════════

// ConfidenceMultiplier scales credit by classifier confidence.
// Confidence at or above 0.5 earns full credit; below that the multiplier is
// 0.5 + confidence, so the floor is 50%.
func ConfidenceMultiplier(confidence float64) float64 {
	confidence = clampConfidence(confidence)
	if confidence >= 0.5 {
		return 1.0
	}
	return 0.5 + confidence
}

// Compute maps an activity to points. The confidence argument wins over
// classification.Confidence so callers can re-score with a corrected value.
func Compute(classification Classification, durationMinutes int, isRecurring bool, confidence float64) Calculation {
	category := classification.Category
	if !category.IsValid() {
		category = CategoryUnknown
	}
	rule := RuleFor(category)
	if durationMinutes < 0 {
		durationMinutes = 0
	}

	calc := Calculation{
		Category:   category,
		BasePoints: rule.Base,
		Breakdown:  make([]string, 0, 4),
	}
	label := string(category)
	if classification.Subcategory != "" {
		label = label + "/" + classification.Subcategory
	}
	calc.Breakdown = append(calc.Breakdown, fmt.Sprintf("base %s: +%d", label, rule.Base))

	if rule.DurationThresholdMinutes > 0 && durationMinutes >= rule.DurationThresholdMinutes {
		calc.DurationBonus = rule.DurationBonus
		calc.Breakdown = append(calc.Breakdown,
			fmt.Sprintf("duration %dmin >= %dmin: +%d", durationMinutes, rule.DurationThresholdMinutes, rule.DurationBonus))
	}

	if isRecurring && rule.RecurrenceBonus > 0 {
		calc.RecurrenceBonus = rule.RecurrenceBonus
		calc.Breakdown = append(calc.Breakdown, fmt.Sprintf("recurring: +%d", rule.RecurrenceBonus))
	}

	raw := calc.BasePoints + calc.DurationBonus + calc.RecurrenceBonus
	calc.ConfidenceMultiplier = ConfidenceMultiplier(confidence)
	calc.TotalPoints = int(math.Round(float64(raw) * calc.ConfidenceMultiplier))
	calc.Breakdown = append(calc.Breakdown,
		fmt.Sprintf("confidence %.2f: x%.2f = %d", clampConfidence(confidence), calc.ConfidenceMultiplier, calc.TotalPoints))

	return calc
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

package points

// Activity is one classified calendar activity in a batch.
type Activity struct {
	Classification  Classification `json:"classification"`
	DurationMinutes int            `json:"duration_minutes"`
	IsRecurring     bool           `json:"is_recurring"`
}

// Summary aggregates a batch into per-category totals.
type Summary struct {
	ByCategory   map[Category]int `json:"by_category"`
	Total        int              `json:"total"`
	Calculations []Calculation    `json:"calculations"`
}

// Summarize reduces activities to per-category and grand totals. Each activity
// is scored with its own classification confidence.
func Summarize(activities []Activity) Summary {
	sum := Summary{
		ByCategory:   make(map[Category]int),
		Calculations: make([]Calculation, 0, len(activities)),
	}
	for _, a := range activities {
		calc := Compute(a.Classification, a.DurationMinutes, a.IsRecurring, a.Classification.Confidence)
		sum.ByCategory[calc.Category] += calc.TotalPoints
		sum.Total += calc.TotalPoints
		sum.Calculations = append(sum.Calculations, calc)
	}
	return sum
}

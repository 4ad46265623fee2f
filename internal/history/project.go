package history

import (
	"sort"
	"time"

	"github.com/lib/pq"

	"nutrilog/internal/ledger"
	"nutrilog/internal/nutrition"
)

// Project flattens doc into one summary per logged date, ordered by date.
func Project(userID uint64, doc nutrition.Document, now time.Time) []DailySummary {
	dates := make([]string, 0, len(doc.DailyLogs))
	for d := range doc.DailyLogs {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]DailySummary, 0, len(dates))
	for _, date := range dates {
		day := doc.DailyLogs[date]
		s := day.Summary()
		out = append(out, DailySummary{
			UserID:      userID,
			Date:        date,
			Calories:    s.Totals.Calories,
			Protein:     s.Totals.Protein,
			Carbs:       s.Totals.Carbs,
			Fat:         s.Totals.Fat,
			WaterIntake: s.WaterIntake,
			MoodRating:  s.MoodRating,
			MealCount:   s.MealCount,
			MealTypes:   pq.StringArray(mealTypes(day)),
			Tags:        pq.StringArray(nonNil(ExtractTags(day.Notes))),
			UpdatedAt:   now,
		})
	}
	return out
}

// mealTypes lists the meal types present in day in canonical order.
func mealTypes(day ledger.DailyLog) []string {
	present := map[ledger.MealType]bool{}
	for _, m := range day.Meals {
		present[m.MealType] = true
	}
	out := []string{}
	for _, t := range ledger.MealTypes {
		if present[t] {
			out = append(out, string(t))
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package ledger

import "github.com/shopspring/decimal"

func mul(quantity, perServing float64) float64 {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(perServing)).InexactFloat64()
}

// Totals sums quantity × macro over every meal of the day. Sums are exact
// decimals, so the result does not depend on meal order.
func (d DailyLog) Totals() Totals {
	var cal, prot, carbs, fat decimal.Decimal
	for _, m := range d.Meals {
		q := decimal.NewFromFloat(m.Quantity)
		cal = cal.Add(q.Mul(decimal.NewFromFloat(m.FoodItem.Calories)))
		prot = prot.Add(q.Mul(decimal.NewFromFloat(m.FoodItem.Protein)))
		carbs = carbs.Add(q.Mul(decimal.NewFromFloat(m.FoodItem.Carbs)))
		fat = fat.Add(q.Mul(decimal.NewFromFloat(m.FoodItem.Fat)))
	}
	return Totals{
		Calories: cal.InexactFloat64(),
		Protein:  prot.InexactFloat64(),
		Carbs:    carbs.InexactFloat64(),
		Fat:      fat.InexactFloat64(),
	}
}

// Summary condenses the day for charts.
func (d DailyLog) Summary() DaySummary {
	var mood *int
	if d.MoodRating != nil {
		r := *d.MoodRating
		mood = &r
	}
	return DaySummary{
		Date:        d.Date,
		Totals:      d.Totals(),
		WaterIntake: d.WaterIntake,
		MealCount:   len(d.Meals),
		MoodRating:  mood,
	}
}

package ledger

import (
	"errors"
	"fmt"
)

var ErrMacroSplit = errors.New("macro percentages must add up to 100")

// MacroSplit is the share of daily calories per macro, in percent.
type MacroSplit struct {
	Protein int `json:"protein" firestore:"protein" validate:"gte=0,lte=100"`
	Carbs   int `json:"carbs" firestore:"carbs" validate:"gte=0,lte=100"`
	Fat     int `json:"fat" firestore:"fat" validate:"gte=0,lte=100"`
}

type Goals struct {
	DailyCalories float64    `json:"dailyCalories" firestore:"dailyCalories" validate:"gte=0"`
	Macros        MacroSplit `json:"macros" firestore:"macros"`
	WaterMl       float64    `json:"waterMl" firestore:"waterMl" validate:"gte=0"`
	WeightKg      float64    `json:"weightKg" firestore:"weightKg" validate:"gte=0"`
}

func DefaultGoals() Goals {
	return Goals{
		DailyCalories: 2000,
		Macros:        MacroSplit{Protein: 30, Carbs: 40, Fat: 30},
		WaterMl:       2500,
		WeightKg:      70,
	}
}

// GoalsPatch is merged field by field into the current goals.
type GoalsPatch struct {
	DailyCalories *float64
	Macros        *MacroSplit
	WaterMl       *float64
	WeightKg      *float64
}

func (g Goals) apply(p GoalsPatch) Goals {
	if p.DailyCalories != nil {
		g.DailyCalories = *p.DailyCalories
	}
	if p.Macros != nil {
		g.Macros = *p.Macros
	}
	if p.WaterMl != nil {
		g.WaterMl = *p.WaterMl
	}
	if p.WeightKg != nil {
		g.WeightKg = *p.WeightKg
	}
	return g
}

// ValidateGoals is the save-time check of the goals form. The ledger itself
// accepts any goals.
func ValidateGoals(g Goals) error {
	m := g.Macros
	if m.Protein < 0 || m.Carbs < 0 || m.Fat < 0 {
		return fmt.Errorf("%w: percentages must not be negative", ErrMacroSplit)
	}
	if sum := m.Protein + m.Carbs + m.Fat; sum != 100 {
		return fmt.Errorf("%w: got %d", ErrMacroSplit, sum)
	}
	if g.DailyCalories < 0 || g.WaterMl < 0 || g.WeightKg < 0 {
		return errors.New("goals must not be negative")
	}
	return nil
}

// MacroTargets converts the split into grams (4 kcal/g protein and carbs,
// 9 kcal/g fat).
func (g Goals) MacroTargets() (protein, carbs, fat float64) {
	protein = g.DailyCalories * float64(g.Macros.Protein) / 100 / 4
	carbs = g.DailyCalories * float64(g.Macros.Carbs) / 100 / 4
	fat = g.DailyCalories * float64(g.Macros.Fat) / 100 / 9
	return protein, carbs, fat
}

// Progress is consumption against goal for one metric.
type Progress struct {
	Consumed float64 `json:"consumed"`
	Goal     float64 `json:"goal"`
	Percent  float64 `json:"percent"`
}

func progress(consumed, goal float64) Progress {
	p := Progress{Consumed: consumed, Goal: goal}
	if goal > 0 {
		p.Percent = consumed / goal
		if p.Percent > 1 {
			p.Percent = 1
		}
	}
	return p
}

// DayProgress compares a day against the goals.
type DayProgress struct {
	Calories Progress `json:"calories"`
	Protein  Progress `json:"protein"`
	Carbs    Progress `json:"carbs"`
	Fat      Progress `json:"fat"`
	Water    Progress `json:"water"`
}

func (d DailyLog) Progress(g Goals) DayProgress {
	t := d.Totals()
	protein, carbs, fat := g.MacroTargets()
	return DayProgress{
		Calories: progress(t.Calories, g.DailyCalories),
		Protein:  progress(t.Protein, protein),
		Carbs:    progress(t.Carbs, carbs),
		Fat:      progress(t.Fat, fat),
		Water:    progress(d.WaterIntake, g.WaterMl),
	}
}

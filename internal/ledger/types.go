package ledger

import (
	"encoding/json"
	"errors"
	"time"

	"nutrilog/internal/food"
)

// DateLayout is the ledger's partition key format.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner, Snack:
		return true
	}
	return false
}

// MealEntry is one act of eating. FoodItem is a snapshot taken when the meal
// was logged, so later edits to a favorite never rewrite history.
type MealEntry struct {
	ID       string    `json:"id" firestore:"id" validate:"required"`
	MealType MealType  `json:"mealType" firestore:"mealType" validate:"oneof=breakfast lunch dinner snack"`
	FoodItem food.Item `json:"foodItem" firestore:"foodItem"`
	Quantity float64   `json:"quantity" firestore:"quantity" validate:"gte=0"`
	Date     string    `json:"date" firestore:"date" validate:"datetime=2006-01-02"`
}

// Calories etc. are this meal's contribution to its day.
func (m MealEntry) Calories() float64 { return mul(m.Quantity, m.FoodItem.Calories) }
func (m MealEntry) Protein() float64  { return mul(m.Quantity, m.FoodItem.Protein) }
func (m MealEntry) Carbs() float64    { return mul(m.Quantity, m.FoodItem.Carbs) }
func (m MealEntry) Fat() float64      { return mul(m.Quantity, m.FoodItem.Fat) }

// MealUpdate carries the editable fields of a logged meal.
type MealUpdate struct {
	Quantity *float64
	MealType *MealType
}

// Totals are always derived from a day's meals.
type Totals struct {
	Calories float64 `json:"totalCalories"`
	Protein  float64 `json:"totalProtein"`
	Carbs    float64 `json:"totalCarbs"`
	Fat      float64 `json:"totalFat"`
}

// DailyLog aggregates one calendar date. It has no settable totals; see
// Totals.
type DailyLog struct {
	Date        string      `firestore:"date" validate:"omitempty,datetime=2006-01-02"`
	Meals       []MealEntry `firestore:"meals" validate:"dive"`
	WaterIntake float64     `firestore:"waterIntake" validate:"gte=0"`
	MoodRating  *int        `firestore:"moodRating" validate:"omitempty,min=1,max=5"`
	Notes       string      `firestore:"notes"`
}

type dailyLogJSON struct {
	Date          string      `json:"date"`
	Meals         []MealEntry `json:"meals"`
	TotalCalories float64     `json:"totalCalories"`
	TotalProtein  float64     `json:"totalProtein"`
	TotalCarbs    float64     `json:"totalCarbs"`
	TotalFat      float64     `json:"totalFat"`
	WaterIntake   float64     `json:"waterIntake"`
	MoodRating    *int        `json:"moodRating,omitempty"`
	Notes         string      `json:"notes,omitempty"`
}

func (d DailyLog) MarshalJSON() ([]byte, error) {
	t := d.Totals()
	meals := d.Meals
	if meals == nil {
		meals = []MealEntry{}
	}
	return json.Marshal(dailyLogJSON{
		Date:          d.Date,
		Meals:         meals,
		TotalCalories: t.Calories,
		TotalProtein:  t.Protein,
		TotalCarbs:    t.Carbs,
		TotalFat:      t.Fat,
		WaterIntake:   d.WaterIntake,
		MoodRating:    d.MoodRating,
		Notes:         d.Notes,
	})
}

// UnmarshalJSON drops any totals present on the wire; they are recomputed.
func (d *DailyLog) UnmarshalJSON(b []byte) error {
	var w dailyLogJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = DailyLog{
		Date:        w.Date,
		Meals:       w.Meals,
		WaterIntake: w.WaterIntake,
		MoodRating:  w.MoodRating,
		Notes:       w.Notes,
	}
	return nil
}

func (d DailyLog) clone() DailyLog {
	out := d
	if d.Meals != nil {
		out.Meals = make([]MealEntry, len(d.Meals))
		copy(out.Meals, d.Meals)
	}
	if d.MoodRating != nil {
		r := *d.MoodRating
		out.MoodRating = &r
	}
	return out
}

// DaySummary is one point on the history charts.
type DaySummary struct {
	Date        string  `json:"date"`
	Totals      Totals  `json:"totals"`
	WaterIntake float64 `json:"waterIntake"`
	MealCount   int     `json:"mealCount"`
	MoodRating  *int    `json:"moodRating,omitempty"`
}

// Snapshot is the serialized form of a Ledger.
type Snapshot struct {
	Goals         Goals               `json:"goals"`
	DailyLogs     map[string]DailyLog `json:"dailyLogs"`
	FavoriteFoods []food.Item         `json:"favoriteFoods"`
	CurrentDate   string              `json:"currentDate"`
}

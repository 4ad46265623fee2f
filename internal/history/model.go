// Package history maintains a per-day summary table derived from each
// user's nutrition document, used for charts and tag lookups.
package history

import (
	"time"

	"github.com/lib/pq"
)

// DailySummary is one row of the projection. It is rebuilt from the stored
// document and never edited directly.
type DailySummary struct {
	UserID uint64 `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Date   string `gorm:"primaryKey;type:text" json:"date"`

	Calories float64 `gorm:"not null;default:0" json:"totalCalories"`
	Protein  float64 `gorm:"not null;default:0" json:"totalProtein"`
	Carbs    float64 `gorm:"not null;default:0" json:"totalCarbs"`
	Fat      float64 `gorm:"not null;default:0" json:"totalFat"`

	WaterIntake float64 `gorm:"not null;default:0" json:"waterIntake"`
	MoodRating  *int    `json:"moodRating,omitempty"`
	MealCount   int     `gorm:"not null;default:0" json:"mealCount"`

	MealTypes pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"mealTypes"`
	Tags      pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags"`

	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`
}

// TagCount is how many days carry a tag.
type TagCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

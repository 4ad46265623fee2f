package food

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source tells where an Item came from.
type Source string

const (
	SourcePlain   Source = "plain"
	SourceUSDA    Source = "usda"
	SourceBarcode Source = "barcode"
	SourceCustom  Source = "custom"
)

func (s Source) Valid() bool {
	switch s {
	case SourcePlain, SourceUSDA, SourceBarcode, SourceCustom:
		return true
	}
	return false
}

var ErrInvalidItem = errors.New("invalid food item")

// Item is a nutrition fact sheet. Macros are grams per serving, calories are
// kcal per serving.
type Item struct {
	ID          string    `json:"id" firestore:"id"`
	Name        string    `json:"name" firestore:"name"`
	Calories    float64   `json:"calories" firestore:"calories"`
	Protein     float64   `json:"protein" firestore:"protein"`
	Carbs       float64   `json:"carbs" firestore:"carbs"`
	Fat         float64   `json:"fat" firestore:"fat"`
	ServingSize string    `json:"servingSize" firestore:"servingSize"`
	Favorite    bool      `json:"favorite" firestore:"favorite"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	Category    string    `json:"category,omitempty" firestore:"category,omitempty"`

	Source Source `json:"source" firestore:"source"`
	// Set for SourceUSDA.
	FdcID int64 `json:"fdcId,omitempty" firestore:"fdcId,omitempty"`
	// Set for SourceBarcode.
	Barcode string `json:"barcode,omitempty" firestore:"barcode,omitempty"`
	Brand   string `json:"brand,omitempty" firestore:"brand,omitempty"`
}

// NewCustom builds a user-entered item with a fresh id.
func NewCustom(name string, calories, protein, carbs, fat float64, servingSize string) Item {
	return Item{
		ID:          "custom-" + uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Calories:    calories,
		Protein:     protein,
		Carbs:       carbs,
		Fat:         fat,
		ServingSize: strings.TrimSpace(servingSize),
		CreatedAt:   time.Now().UTC(),
		Source:      SourceCustom,
	}
}

// Validate applies the custom food form rules.
func (it Item) Validate() error {
	switch {
	case strings.TrimSpace(it.Name) == "":
		return errors.Join(ErrInvalidItem, errors.New("name is required"))
	case it.Calories < 0 || it.Protein < 0 || it.Carbs < 0 || it.Fat < 0:
		return errors.Join(ErrInvalidItem, errors.New("nutrition values must not be negative"))
	case !it.Source.Valid():
		return errors.Join(ErrInvalidItem, errors.New("unknown source "+string(it.Source)))
	}
	return nil
}

// SearchResult is one page of catalog results. When a category filter is
// applied to a page after it is fetched, TotalHits and TotalPages still count
// the unfiltered upstream results.
type SearchResult struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalHits  int    `json:"totalHits"`
	TotalPages int    `json:"totalPages"`
}

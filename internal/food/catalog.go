package food

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogEntry struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	ServingSize string  `yaml:"servingSize"`
	Calories    float64 `yaml:"calories"`
	Protein     float64 `yaml:"protein"`
	Carbs       float64 `yaml:"carbs"`
	Fat         float64 `yaml:"fat"`
}

// Catalog is the static, in-memory food list.
type Catalog struct {
	items []Item
}

// LoadCatalog parses the embedded food list.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var entries []catalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("food: parse catalog: %w", err)
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		it := Item{
			ID:          e.ID,
			Name:        e.Name,
			Category:    e.Category,
			ServingSize: e.ServingSize,
			Calories:    e.Calories,
			Protein:     e.Protein,
			Carbs:       e.Carbs,
			Fat:         e.Fat,
			Source:      SourcePlain,
		}
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("food: catalog entry %q: %w", e.ID, err)
		}
		items = append(items, it)
	}
	return &Catalog{items: items}, nil
}

// Search returns items whose name contains query, ignoring case.
func (c *Catalog) Search(query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Item, 0)
	for _, it := range c.items {
		if q == "" || strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}

// Get looks an item up by id.
func (c *Catalog) Get(id string) (Item, bool) {
	for _, it := range c.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

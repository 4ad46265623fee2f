package food

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultOpenFoodFactsURL = "https://world.openfoodfacts.org"

var ErrInvalidBarcode = errors.New("barcode must be 8 to 14 digits")

// ValidBarcode reports whether code is 8 to 14 ASCII digits.
func ValidBarcode(code string) bool {
	if len(code) < 8 || len(code) > 14 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// knownBarcodes is used when the remote product database misses or fails.
var knownBarcodes = map[string]Item{
	"8850329112224": {Name: "Instant Noodles, Tom Yum Shrimp", Brand: "Mama", Calories: 310, Protein: 6, Carbs: 42, Fat: 13, ServingSize: "1 pack (55g)"},
	"8851959132012": {Name: "Green Tea, Honey Lemon", Brand: "Oishi", Calories: 100, Protein: 0, Carbs: 25, Fat: 0, ServingSize: "1 bottle (500ml)"},
	"5449000000996": {Name: "Coca-Cola Original", Brand: "Coca-Cola", Calories: 139, Protein: 0, Carbs: 35, Fat: 0, ServingSize: "1 can (330ml)"},
	"3017620422003": {Name: "Nutella", Brand: "Ferrero", Calories: 80, Protein: 0.9, Carbs: 8.6, Fat: 4.6, ServingSize: "1 tbsp (15g)"},
	"7622210449283": {Name: "Oreo Original", Brand: "Oreo", Calories: 160, Protein: 1.5, Carbs: 25, Fat: 7, ServingSize: "3 cookies (34g)"},
	"0049000028911": {Name: "Diet Coke", Brand: "Coca-Cola", Calories: 0, Protein: 0, Carbs: 0, Fat: 0, ServingSize: "1 can (355ml)"},
}

type BarcodeConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Barcodes resolves barcodes against Open Food Facts.
type Barcodes struct {
	baseURL string
	fetch   *fetcher
	log     *zap.Logger
}

func NewBarcodes(cfg BarcodeConfig, log *zap.Logger) *Barcodes {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenFoodFactsURL
	}
	return &Barcodes{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		fetch:   newFetcher(cfg.HTTPClient),
		log:     log,
	}
}

type offResponse struct {
	Code    string      `json:"code"`
	Status  int         `json:"status"`
	Product *offProduct `json:"product"`
}

type offProduct struct {
	ProductName string        `json:"product_name"`
	Brands      string        `json:"brands"`
	Categories  string        `json:"categories"`
	ServingSize string        `json:"serving_size"`
	Quantity    string        `json:"quantity"`
	Nutriments  offNutriments `json:"nutriments"`
}

type offNutriments struct {
	EnergyKcal100g float64 `json:"energy-kcal_100g"`
	Energy100g     float64 `json:"energy_100g"`
	Proteins100g   float64 `json:"proteins_100g"`
	Carbs100g      float64 `json:"carbohydrates_100g"`
	Fat100g        float64 `json:"fat_100g"`
}

// Lookup resolves code to an Item. A product that cannot be found anywhere
// yields (nil, nil); only a malformed barcode is an error.
func (b *Barcodes) Lookup(ctx context.Context, code string) (*Item, error) {
	code = strings.TrimSpace(code)
	if !ValidBarcode(code) {
		return nil, ErrInvalidBarcode
	}

	it, err := b.remote(ctx, code)
	if err != nil {
		b.log.Warn("barcode lookup failed, using fallback table", zap.String("barcode", code), zap.Error(err))
	}
	if it != nil {
		return it, nil
	}
	return fallbackItem(code), nil
}

func (b *Barcodes) remote(ctx context.Context, code string) (*Item, error) {
	u := fmt.Sprintf("%s/api/v2/product/%s.json?fields=%s", b.baseURL, url.PathEscape(code),
		url.QueryEscape("code,product_name,brands,categories,serving_size,quantity,nutriments"))

	var resp offResponse
	if err := b.fetch.getJSON(ctx, u, &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if resp.Status != 1 || resp.Product == nil || strings.TrimSpace(resp.Product.ProductName) == "" {
		return nil, nil
	}

	p := resp.Product
	kcal := p.Nutriments.EnergyKcal100g
	if kcal == 0 && p.Nutriments.Energy100g > 0 {
		// energy_100g is in kJ.
		kcal = p.Nutriments.Energy100g / 4.184
	}
	return &Item{
		ID:          "barcode-" + code,
		Name:        strings.TrimSpace(p.ProductName),
		Calories:    kcal,
		Protein:     p.Nutriments.Proteins100g,
		Carbs:       p.Nutriments.Carbs100g,
		Fat:         p.Nutriments.Fat100g,
		ServingSize: "100g",
		Category:    firstCSV(p.Categories),
		CreatedAt:   time.Now().UTC(),
		Source:      SourceBarcode,
		Barcode:     code,
		Brand:       firstCSV(p.Brands),
	}, nil
}

func fallbackItem(code string) *Item {
	known, ok := knownBarcodes[code]
	if !ok {
		return nil
	}
	it := known
	it.ID = "barcode-" + code
	it.Source = SourceBarcode
	it.Barcode = code
	it.CreatedAt = time.Now().UTC()
	return &it
}

func firstCSV(s string) string {
	first, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(first)
}

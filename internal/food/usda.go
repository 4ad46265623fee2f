package food

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultUSDABaseURL = "https://api.nal.usda.gov/fdc/v1"
	defaultPageSize    = 25
	maxPageSize        = 200
	maxCacheEntries    = 512
	fetchTimeout       = 20 * time.Second
)

// FoodData Central nutrient identifiers, in order of preference.
var (
	energyIDs  = []int{1008, 2047, 2048}
	proteinIDs = []int{1003}
	carbIDs    = []int{1005}
	fatIDs     = []int{1004}
)

// Query describes one external nutrition search.
type Query struct {
	Text      string
	Page      int
	PageSize  int
	DataTypes []string
	Category  string
}

func (q Query) normalize() Query {
	q.Text = strings.TrimSpace(q.Text)
	q.Category = strings.TrimSpace(q.Category)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

func (q Query) cacheKey() string {
	return strings.Join([]string{
		strings.ToLower(q.Text),
		strconv.Itoa(q.Page),
		strconv.Itoa(q.PageSize),
		strings.Join(q.DataTypes, ","),
		strings.ToLower(q.Category),
	}, "|")
}

type USDAConfig struct {
	APIKey     string
	BaseURL    string
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

type cacheEntry struct {
	res     SearchResult
	expires time.Time
}

// USDA searches FoodData Central and caches results per query and page.
type USDA struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	fetch   *fetcher
	log     *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
	group singleflight.Group
}

func NewUSDA(cfg USDAConfig, log *zap.Logger) *USDA {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultUSDABaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "DEMO_KEY"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &USDA{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		ttl:     cfg.CacheTTL,
		fetch:   newFetcher(cfg.HTTPClient),
		log:     log,
		now:     time.Now,
		cache:   map[string]cacheEntry{},
	}
}

type usdaSearchResponse struct {
	TotalHits   int        `json:"totalHits"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
	Foods       []usdaFood `json:"foods"`
}

type usdaFood struct {
	FdcID         int64          `json:"fdcId"`
	Description   string         `json:"description"`
	DataType      string         `json:"dataType"`
	BrandOwner    string         `json:"brandOwner"`
	BrandName     string         `json:"brandName"`
	FoodCategory  string         `json:"foodCategory"`
	FoodNutrients []usdaNutrient `json:"foodNutrients"`
}

type usdaNutrient struct {
	NutrientID     int     `json:"nutrientId"`
	NutrientName   string  `json:"nutrientName"`
	NutrientNumber string  `json:"nutrientNumber"`
	UnitName       string  `json:"unitName"`
	Value          float64 `json:"value"`
}

// Search runs q against FoodData Central. An empty query yields an empty page.
// Category is matched against each food's category within the fetched page;
// see SearchResult for how that affects the counts.
func (u *USDA) Search(ctx context.Context, q Query) (SearchResult, error) {
	q = q.normalize()
	if q.Text == "" {
		return SearchResult{Items: []Item{}, Page: q.Page, PageSize: q.PageSize}, nil
	}

	key := q.cacheKey()
	if res, ok := u.cached(key); ok {
		return res, nil
	}

	// The shared fetch is not tied to any one caller; a caller whose ctx
	// ends stops waiting without failing the others.
	ch := u.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		res, err := u.search(fctx, q)
		if err != nil {
			return nil, err
		}
		u.store(key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return SearchResult{}, fmt.Errorf("food: usda search: %w", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			u.log.Warn("usda search failed", zap.String("query", q.Text), zap.Int("page", q.Page), zap.Error(r.Err))
			return SearchResult{}, fmt.Errorf("food: usda search: %w", r.Err)
		}
		return r.Val.(SearchResult).clone(), nil
	}
}

// clone copies Items so callers never share a slice with the cache.
func (r SearchResult) clone() SearchResult {
	r.Items = slices.Clone(r.Items)
	return r
}

func (u *USDA) search(ctx context.Context, q Query) (SearchResult, error) {
	params := url.Values{}
	params.Set("api_key", u.apiKey)
	params.Set("query", q.Text)
	params.Set("pageNumber", strconv.Itoa(q.Page))
	params.Set("pageSize", strconv.Itoa(q.PageSize))
	if len(q.DataTypes) > 0 {
		params.Set("dataType", strings.Join(q.DataTypes, ","))
	}

	var resp usdaSearchResponse
	if err := u.fetch.getJSON(ctx, u.baseURL+"/foods/search?"+params.Encode(), &resp); err != nil {
		return SearchResult{}, err
	}

	items := make([]Item, 0, len(resp.Foods))
	for _, f := range resp.Foods {
		if q.Category != "" && !strings.EqualFold(f.FoodCategory, q.Category) {
			continue
		}
		items = append(items, mapUSDAFood(f))
	}
	return SearchResult{
		Items:      items,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalHits:  resp.TotalHits,
		TotalPages: resp.TotalPages,
	}, nil
}

func mapUSDAFood(f usdaFood) Item {
	brand := f.BrandName
	if brand == "" {
		brand = f.BrandOwner
	}
	return Item{
		ID:          "usda-" + strconv.FormatInt(f.FdcID, 10),
		Name:        f.Description,
		Calories:    nutrientValue(f.FoodNutrients, energyIDs, isEnergyName),
		Protein:     nutrientValue(f.FoodNutrients, proteinIDs, isProteinName),
		Carbs:       nutrientValue(f.FoodNutrients, carbIDs, isCarbName),
		Fat:         nutrientValue(f.FoodNutrients, fatIDs, isFatName),
		ServingSize: "100g",
		Category:    f.FoodCategory,
		Source:      SourceUSDA,
		FdcID:       f.FdcID,
		Brand:       brand,
	}
}

// nutrientValue matches by identifier first, then by name; 0 when absent.
func nutrientValue(ns []usdaNutrient, ids []int, byName func(usdaNutrient) bool) float64 {
	for _, id := range ids {
		for _, n := range ns {
			if n.NutrientID == id && (!isEnergyID(id) || strings.EqualFold(n.UnitName, "KCAL")) {
				return n.Value
			}
		}
	}
	for _, n := range ns {
		if byName(n) {
			return n.Value
		}
	}
	return 0
}

func isEnergyID(id int) bool {
	for _, e := range energyIDs {
		if e == id {
			return true
		}
	}
	return false
}

func isEnergyName(n usdaNutrient) bool {
	return strings.HasPrefix(strings.ToLower(n.NutrientName), "energy") && strings.EqualFold(n.UnitName, "KCAL")
}

func isProteinName(n usdaNutrient) bool {
	return strings.EqualFold(n.NutrientName, "protein")
}

func isCarbName(n usdaNutrient) bool {
	return strings.HasPrefix(strings.ToLower(n.NutrientName), "carbohydrate")
}

func isFatName(n usdaNutrient) bool {
	name := strings.ToLower(n.NutrientName)
	return strings.HasPrefix(name, "total lipid") || name == "fat" || name == "total fat"
}

func (u *USDA) cached(key string) (SearchResult, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.cache[key]
	if !ok {
		return SearchResult{}, false
	}
	if u.now().After(e.expires) {
		delete(u.cache, key)
		return SearchResult{}, false
	}
	return e.res.clone(), true
}

func (u *USDA) store(key string, res SearchResult) {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := u.now()
	if len(u.cache) >= maxCacheEntries {
		for k, e := range u.cache {
			if now.After(e.expires) {
				delete(u.cache, k)
			}
		}
	}
	if len(u.cache) >= maxCacheEntries {
		return
	}
	u.cache[key] = cacheEntry{res: res, expires: now.Add(u.ttl)}
}

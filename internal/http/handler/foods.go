package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nutrilog/internal/food"
)

// FoodSearcher is the external nutrition database.
type FoodSearcher interface {
	Search(ctx context.Context, q food.Query) (food.SearchResult, error)
}

type BarcodeLookup interface {
	Lookup(ctx context.Context, code string) (*food.Item, error)
}

type FoodsHandler struct {
	Catalog  *food.Catalog
	USDA     FoodSearcher
	Barcodes BarcodeLookup
	Log      *zap.Logger
}

func (h *FoodsHandler) Search(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := food.Query{
		Text:      qs.Get("q"),
		Page:      atoiDefault(qs.Get("page"), 1),
		PageSize:  atoiDefault(qs.Get("pageSize"), 25),
		DataTypes: splitValues(qs["dataType"]),
		Category:  qs.Get("category"),
	}

	switch source := strings.ToLower(strings.TrimSpace(qs.Get("source"))); source {
	case "", "local":
		writeJSON(w, http.StatusOK, h.searchLocal(q))
	case "usda":
		res, err := h.USDA.Search(r.Context(), q)
		if err != nil {
			h.Log.Warn("usda search", zap.String("query", q.Text), zap.Error(err))
			var se *food.StatusError
			if errors.As(err, &se) && se.Status == http.StatusTooManyRequests {
				http.Error(w, "nutrition database rate limited", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "nutrition database unavailable", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, res)
	default:
		http.Error(w, "unknown source", http.StatusBadRequest)
	}
}

func (h *FoodsHandler) searchLocal(q food.Query) food.SearchResult {
	items := h.Catalog.Search(q.Text)
	if c := strings.TrimSpace(q.Category); c != "" {
		filtered := items[:0:0]
		for _, it := range items {
			if strings.EqualFold(it.Category, c) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	return paginate(items, q.Page, q.PageSize)
}

func paginate(items []food.Item, page, size int) food.SearchResult {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 25
	}
	res := food.SearchResult{
		Items:      []food.Item{},
		Page:       page,
		PageSize:   size,
		TotalHits:  len(items),
		TotalPages: (len(items) + size - 1) / size,
	}
	start := (page - 1) * size
	if start < len(items) {
		res.Items = items[start:min(start+size, len(items))]
	}
	return res
}

func (h *FoodsHandler) Barcode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	it, err := h.Barcodes.Lookup(r.Context(), code)
	switch {
	case errors.Is(err, food.ErrInvalidBarcode):
		http.Error(w, "invalid barcode", http.StatusBadRequest)
	case err != nil:
		h.Log.Error("barcode lookup", zap.String("code", code), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
	case it == nil:
		http.Error(w, "product not found", http.StatusNotFound)
	default:
		writeJSON(w, http.StatusOK, it)
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// splitValues accepts both repeated and comma-separated query values.
func splitValues(vs []string) []string {
	var out []string
	for _, v := range vs {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

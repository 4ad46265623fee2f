package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nutrilog/internal/auth"
	"nutrilog/internal/config"
	"nutrilog/internal/cooldown"
	"nutrilog/internal/food"
	"nutrilog/internal/history"
	"nutrilog/internal/nutrition"
)

type fakeUSDA struct {
	got food.Query
	err error
}

func (f *fakeUSDA) Search(_ context.Context, q food.Query) (food.SearchResult, error) {
	f.got = q
	if f.err != nil {
		return food.SearchResult{}, f.err
	}
	return food.SearchResult{Items: []food.Item{{ID: "usda-1", Name: "Apples, raw", Source: food.SourceUSDA}}, Page: 1, PageSize: 25, TotalHits: 1, TotalPages: 1}, nil
}

type fakeBarcodes struct{}

func (fakeBarcodes) Lookup(_ context.Context, code string) (*food.Item, error) {
	switch {
	case !food.ValidBarcode(code):
		return nil, food.ErrInvalidBarcode
	case code == "8850329112224":
		return &food.Item{ID: "barcode-" + code, Name: "Instant Noodles", Source: food.SourceBarcode}, nil
	}
	return nil, nil
}

type fakeHistory struct {
	from, to string
}

func (f *fakeHistory) Range(_ context.Context, _ uint64, from, to string) ([]history.DailySummary, error) {
	f.from, f.to = from, to
	return []history.DailySummary{{Date: to, Calories: 1800}}, nil
}

func (f *fakeHistory) TagCounts(context.Context, uint64, string, int) ([]history.TagCount, error) {
	return []history.TagCount{{Name: "gym", Count: 3}}, nil
}

type testServer struct {
	*httptest.Server
	usda    *fakeUSDA
	history *fakeHistory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zaptest.NewLogger(t)
	v := validator.New()
	catalog, err := food.LoadCatalog()
	require.NoError(t, err)

	ts := &testServer{usda: &fakeUSDA{}, history: &fakeHistory{}}
	ts.Server = httptest.NewServer(NewRouter(Deps{
		Config:    config.Config{},
		JWT:       auth.NewJWT("test-secret"),
		Users:     auth.NewMemoryUsers(),
		Nutrition: nutrition.NewService(nutrition.NewMemoryStore(), cooldown.New(5*time.Minute), nil, v, log),
		Catalog:   catalog,
		USDA:      ts.usda,
		Barcodes:  fakeBarcodes{},
		History:   ts.history,
		Validate:  v,
		Log:       log,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if s, ok := body.(string); ok {
		rd = bytes.NewReader([]byte(s))
	} else if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func (ts *testServer) register(t *testing.T, email string) string {
	resp, body := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out struct{ Token string }
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "Ann@Example.com")

	resp, body := ts.do(t, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"user_id":1}`, string(body))

	resp, _ = ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "ann@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ann@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ann@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body any
		want string
	}{
		{"short password", map[string]string{"email": "a@b.co", "password": "short"}, `[{"Password":"must be at least 8 characters long"}]`},
		{"bad email", map[string]string{"email": "nope", "password": "password123"}, `[{"Email":"must be a valid email address"}]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPost, "/auth/register", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.JSONEq(t, tc.want, string(body))
		})
	}

	resp, _ := ts.do(t, http.MethodPost, "/auth/register", "", "{bad json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNutrition_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	for _, m := range []string{http.MethodGet, http.MethodPost} {
		resp, _ := ts.do(t, m, "/nutrition", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ := ts.do(t, http.MethodGet, "/nutrition", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNutrition_PullPushCooldown(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "sync@example.com")

	resp, body := ts.do(t, http.MethodGet, "/nutrition", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pulled struct {
		Success bool
		Data    struct {
			Goals struct {
				DailyCalories float64 `json:"dailyCalories"`
			} `json:"goals"`
			DailyLogs     map[string]any `json:"dailyLogs"`
			FavoriteFoods []any          `json:"favoriteFoods"`
		}
	}
	require.NoError(t, json.Unmarshal(body, &pulled))
	assert.True(t, pulled.Success)
	assert.Equal(t, 2000.0, pulled.Data.Goals.DailyCalories)
	assert.Empty(t, pulled.Data.DailyLogs)

	push := `{"goals":{"dailyCalories":1800,"macros":{"protein":30,"carbs":40,"fat":30},"waterMl":2000,"weightKg":65},
	 "dailyLogs":{"2024-06-01":{"date":"2024-06-01","totalCalories":1,"waterIntake":250,"meals":[
	  {"id":"m1","mealType":"breakfast","quantity":2,"date":"2024-06-01",
	   "foodItem":{"id":"oats","name":"Oats","calories":150,"protein":5,"carbs":27,"fat":3,"servingSize":"1 cup","source":"plain"}}]}},
	 "favoriteFoods":[]}`
	resp, body = ts.do(t, http.MethodPost, "/nutrition", token, push)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var pushed map[string]any
	require.NoError(t, json.Unmarshal(body, &pushed))
	day := pushed["data"].(map[string]any)["dailyLogs"].(map[string]any)["2024-06-01"].(map[string]any)
	assert.Equal(t, 300.0, day["totalCalories"], "totals are recomputed")

	resp, body = ts.do(t, http.MethodPost, "/nutrition", token, push)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	var limited map[string]any
	require.NoError(t, json.Unmarshal(body, &limited))
	assert.Equal(t, false, limited["success"])
	assert.Greater(t, limited["retryAfterSeconds"].(float64), 0.0)

	// pulling is not subject to the cooldown
	resp, _ = ts.do(t, http.MethodGet, "/nutrition", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNutrition_PushValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "v@example.com")

	resp, body := ts.do(t, http.MethodPost, "/nutrition", token,
		`{"dailyLogs":{"2024-06-01":{"meals":[{"id":"m","mealType":"brunch","quantity":1,"date":"2024-06-01","foodItem":{}}]}}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"error":"invalid document","errors":[{"MealType":"must be one of breakfast, lunch, dinner, snack"}]}`, string(body))

	resp, _ = ts.do(t, http.MethodPost, "/nutrition", token, "not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFoods_LocalSearch(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodGet, "/foods/search?q=rice", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res food.SearchResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 2, res.TotalHits)
	assert.Len(t, res.Items, 2)

	resp, body = ts.do(t, http.MethodGet, "/foods/search?q=rice&pageSize=1&page=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 2, res.TotalPages)

	resp, body = ts.do(t, http.MethodGet, "/foods/search?q=rice&page=9", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Empty(t, res.Items)
}

func TestFoods_USDASearch(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodGet, "/foods/search?source=usda&q=apple&page=2&pageSize=10&dataType=Foundation,SR%20Legacy&category=Fruits", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "usda-1")
	assert.Equal(t, food.Query{Text: "apple", Page: 2, PageSize: 10, DataTypes: []string{"Foundation", "SR Legacy"}, Category: "Fruits"}, ts.usda.got)

	ts.usda.err = &food.StatusError{Status: http.StatusInternalServerError}
	resp, _ = ts.do(t, http.MethodGet, "/foods/search?source=usda&q=apple", "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/foods/search?source=web&q=apple", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFoods_Barcode(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		code string
		want int
	}{
		{"abc123", http.StatusBadRequest},
		{"1234", http.StatusBadRequest},
		{"00000000", http.StatusNotFound},
		{"8850329112224", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			resp, _ := ts.do(t, http.MethodGet, "/foods/barcode/"+tc.code, "", nil)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "h@example.com")

	resp, body := ts.do(t, http.MethodGet, "/history?from=2024-06-01&to=2024-06-07", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-06-01", ts.history.from)
	assert.Equal(t, "2024-06-07", ts.history.to)
	assert.Contains(t, string(body), `"totalCalories":1800`)

	resp, _ = ts.do(t, http.MethodGet, "/history?to=2024-06-07", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-06-01", ts.history.from, "defaults to seven days")

	resp, _ = ts.do(t, http.MethodGet, "/history?from=2024-06-08&to=2024-06-07", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodGet, "/history?from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, http.MethodGet, "/history/tags", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"name":"gym","count":3}]`, string(body))

	resp, _ = ts.do(t, http.MethodGet, "/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

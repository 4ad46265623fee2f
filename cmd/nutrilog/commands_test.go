package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
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
	httpx "nutrilog/internal/http"
	"nutrilog/internal/ledger"
	"nutrilog/internal/nutrition"
	"nutrilog/internal/syncclient"
)

func newTestApp(t *testing.T, home, server string) (*app, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	a, err := newApp(config.Client{
		ServerURL:    server,
		Home:         home,
		SyncCooldown: 5 * time.Minute,
	}, out, zaptest.NewLogger(t))
	require.NoError(t, err)
	return a, out
}

func runCmd(t *testing.T, a *app, args ...string) error {
	t.Helper()
	return a.run(context.Background(), args[0], args[1:])
}

var idPattern = regexp.MustCompile(`\(([0-9a-f-]{36})\)`)

func TestCLI_LocalLedgerPersists(t *testing.T) {
	home := t.TempDir()
	a, out := newTestApp(t, home, "http://127.0.0.1:0")

	require.NoError(t, runCmd(t, a, "date", "2024-03-10"))
	require.NoError(t, runCmd(t, a, "add", "-meal", "breakfast", "-food", "apple", "-qty", "2"))
	m := idPattern.FindStringSubmatch(out.String())
	require.Len(t, m, 2, out.String())
	id := m[1]

	require.NoError(t, runCmd(t, a, "add", "-meal", "lunch", "-name", "Tofu bowl", "-cal", "420", "-protein", "25", "-carbs", "40", "-fat", "15", "-save"))
	require.NoError(t, runCmd(t, a, "water", "500"))
	require.NoError(t, runCmd(t, a, "mood", "4", "slept", "well"))
	require.NoError(t, runCmd(t, a, "edit", "-qty", "1", id))

	// a new process sees the same ledger
	b, out := newTestApp(t, home, "http://127.0.0.1:0")
	assert.Equal(t, "2024-03-10", b.ledger.CurrentDate())
	day := b.ledger.Day("2024-03-10")
	require.Len(t, day.Meals, 2)
	assert.Equal(t, 515.0, day.Totals().Calories)
	assert.Equal(t, 500.0, day.WaterIntake)
	require.NotNil(t, day.MoodRating)
	assert.Equal(t, 4, *day.MoodRating)
	assert.Equal(t, "slept well", day.Notes)
	require.Len(t, b.ledger.Favorites(), 1)

	require.NoError(t, runCmd(t, b, "show"))
	assert.Contains(t, out.String(), "Tofu bowl")
	assert.Contains(t, out.String(), "mood      4/5")

	require.NoError(t, runCmd(t, b, "remove", id))
	require.NoError(t, runCmd(t, b, "clear"))
	day = b.ledger.Day("2024-03-10")
	assert.Empty(t, day.Meals)
	assert.Equal(t, 500.0, day.WaterIntake)
}

func TestCLI_Validation(t *testing.T) {
	a, _ := newTestApp(t, t.TempDir(), "http://127.0.0.1:0")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"macro split", []string{"goals", "-protein", "50"}, ledger.ErrMacroSplit},
		{"mood range", []string{"mood", "6"}, ledger.ErrMoodRating},
		{"water amount", []string{"water", "0"}, ledger.ErrWaterAmount},
		{"bad date", []string{"date", "10/03/2024"}, ledger.ErrInvalidDate},
		{"meal type", []string{"add", "-meal", "brunch", "-food", "apple"}, errUsage},
		{"zero quantity", []string{"add", "-qty", "0", "-food", "apple"}, errUsage},
		{"no food", []string{"add"}, errUsage},
		{"custom food", []string{"add", "-name", "Bad", "-cal", "-5"}, food.ErrInvalidItem},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, runCmd(t, a, tc.args...), tc.want)
		})
	}
	assert.Equal(t, ledger.DefaultGoals(), a.ledger.Goals())
	assert.Empty(t, a.ledger.Dates())
}

func TestCLI_GoalsUpdate(t *testing.T) {
	a, out := newTestApp(t, t.TempDir(), "http://127.0.0.1:0")

	require.NoError(t, runCmd(t, a, "goals", "-calories", "1800", "-protein", "40", "-carbs", "30"))
	g := a.ledger.Goals()
	assert.Equal(t, 1800.0, g.DailyCalories)
	assert.Equal(t, ledger.MacroSplit{Protein: 40, Carbs: 30, Fat: 30}, g.Macros)
	assert.Contains(t, out.String(), "protein   40% (180 g)")
}

func TestCLI_SyncWithoutToken(t *testing.T) {
	a, _ := newTestApp(t, t.TempDir(), "http://127.0.0.1:0")
	err := runCmd(t, a, "sync")
	assert.ErrorIs(t, err, syncclient.ErrUnauthorized)
	assert.Equal(t, "not signed in, run nutrilog login", describe(err))
	assert.ErrorIs(t, runCmd(t, a, "watch"), syncclient.ErrUnauthorized)
}

func TestCLI_RoundTripThroughServer(t *testing.T) {
	log := zaptest.NewLogger(t)
	v := validator.New()
	catalog, err := food.LoadCatalog()
	require.NoError(t, err)
	srv := httptest.NewServer(httpx.NewRouter(httpx.Deps{
		JWT:       auth.NewJWT("test-secret"),
		Users:     auth.NewMemoryUsers(),
		Nutrition: nutrition.NewService(nutrition.NewMemoryStore(), cooldown.New(5*time.Minute), nil, v, log),
		Catalog:   catalog,
		Validate:  v,
		Log:       log,
	}))
	defer srv.Close()

	homeA := t.TempDir()
	a, _ := newTestApp(t, homeA, srv.URL)
	require.NoError(t, runCmd(t, a, "register", "ana@example.com", "password123"))
	_, err = os.Stat(filepath.Join(homeA, tokenFile))
	require.NoError(t, err)

	a, _ = newTestApp(t, homeA, srv.URL)
	require.NoError(t, runCmd(t, a, "add", "-meal", "dinner", "-food", "banana", "-date", "2024-03-09"))
	require.NoError(t, runCmd(t, a, "push"))

	// local cooldown
	err = runCmd(t, a, "sync")
	var ce *syncclient.CooldownError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, describe(err), "please wait")

	b, _ := newTestApp(t, t.TempDir(), srv.URL)
	require.NoError(t, runCmd(t, b, "login", "ana@example.com", "password123"))
	b, _ = newTestApp(t, b.cfg.Home, srv.URL)
	require.NoError(t, runCmd(t, b, "pull"))

	day := b.ledger.Day("2024-03-09")
	require.Len(t, day.Meals, 1)
	assert.Equal(t, "Banana", day.Meals[0].FoodItem.Name)
	assert.Equal(t, 105.0, day.Totals().Calories)
}

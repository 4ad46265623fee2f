package syncclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"nutrilog/internal/cooldown"
	"nutrilog/internal/food"
	"nutrilog/internal/ledger"
)

type fakeRemote struct {
	mu       sync.Mutex
	token    bool
	healthy  bool
	pulls    int
	pushes   []Payload
	pullResp Payload
	err      error
}

func (f *fakeRemote) HasToken() bool { return f.token }

func (f *fakeRemote) Health(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.healthy {
		return errors.New("offline")
	}
	return nil
}

func (f *fakeRemote) Pull(context.Context) (Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	return f.pullResp, f.err
}

func (f *fakeRemote) Push(_ context.Context, p Payload) (Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, p)
	return p, f.err
}

func (f *fakeRemote) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulls, len(f.pushes)
}

func (f *fakeRemote) setHealthy(v bool) {
	f.mu.Lock()
	f.healthy = v
	f.mu.Unlock()
}

type memState struct {
	mu   sync.Mutex
	last *time.Time
}

func (m *memState) MarkSynced(at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &at
	return nil
}

func (m *memState) LastSync() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return time.Time{}, false
	}
	return *m.last, true
}

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	ledger *ledger.Ledger
	remote *fakeRemote
	state  *memState
	syncer *Syncer
	clock  time.Time
}

func newHarness(t *testing.T, remote *fakeRemote, log *zap.Logger) *harness {
	h := &harness{remote: remote, state: &memState{}, clock: t0}
	h.ledger = ledger.New(ledger.WithClock(func() time.Time { return t0 }))
	if log == nil {
		log = zaptest.NewLogger(t)
	}
	h.syncer = NewSyncer(h.ledger, remote, cooldown.New(5*time.Minute), h.state, log, Options{StartupDelay: time.Millisecond, ProbeInterval: 5 * time.Millisecond})
	h.syncer.now = func() time.Time { return h.clock }
	return h
}

func oats() food.Item {
	return food.Item{ID: "oats", Name: "Oats", Calories: 250, Protein: 10, Carbs: 30, Fat: 5}
}

func TestSyncer_PushSendsWholeLedger(t *testing.T) {
	h := newHarness(t, &fakeRemote{token: true}, nil)
	h.ledger.AddMeal(ledger.MealEntry{MealType: ledger.Lunch, FoodItem: oats(), Quantity: 2})
	h.ledger.AddFavorite(oats())

	require.NoError(t, h.syncer.Push(context.Background()))
	require.Len(t, h.remote.pushes, 1)
	p := h.remote.pushes[0]
	assert.Equal(t, 500.0, p.DailyLogs["2024-06-01"].Totals().Calories)
	assert.Len(t, p.FavoriteFoods, 1)
	assert.Equal(t, ledger.DefaultGoals(), p.Goals)

	last, ok := h.state.LastSync()
	require.True(t, ok)
	assert.Equal(t, t0, last)
}

func TestSyncer_CooldownRejectsLocally(t *testing.T) {
	h := newHarness(t, &fakeRemote{token: true}, nil)
	ctx := context.Background()
	require.NoError(t, h.syncer.Push(ctx))

	h.clock = t0.Add(time.Minute)
	r1 := h.syncer.Remaining()
	err := h.syncer.Pull(ctx)
	var ce *CooldownError
	require.ErrorAs(t, err, &ce)
	assert.Greater(t, ce.Remaining, time.Duration(0))

	h.clock = t0.Add(2 * time.Minute)
	r2 := h.syncer.Remaining()
	assert.Greater(t, r1, r2, "remaining wait decreases")

	pulls, pushes := h.remote.calls()
	assert.Equal(t, 0, pulls, "no network call during cooldown")
	assert.Equal(t, 1, pushes)

	h.clock = t0.Add(5*time.Minute + time.Second)
	assert.Zero(t, h.syncer.Remaining())
	assert.NoError(t, h.syncer.Pull(ctx))
}

func TestSyncer_FailedAttemptStillStartsCooldown(t *testing.T) {
	h := newHarness(t, &fakeRemote{token: true, err: errors.New("network down")}, nil)
	ctx := context.Background()

	assert.EqualError(t, h.syncer.Push(ctx), "network down")
	var ce *CooldownError
	assert.ErrorAs(t, h.syncer.Push(ctx), &ce)
}

func TestSyncer_CooldownSurvivesRestart(t *testing.T) {
	state := &memState{}
	require.NoError(t, state.MarkSynced(t0))
	remote := &fakeRemote{token: true}
	s := NewSyncer(ledger.New(), remote, cooldown.New(5*time.Minute), state, zaptest.NewLogger(t), Options{})
	s.now = func() time.Time { return t0.Add(time.Minute) }

	var ce *CooldownError
	assert.ErrorAs(t, s.Push(context.Background()), &ce)
	_, pushes := remote.calls()
	assert.Zero(t, pushes)
}

func TestSyncer_PullReplacesGoalsAndLogs(t *testing.T) {
	g := ledger.DefaultGoals()
	g.DailyCalories = 1600
	remote := &fakeRemote{token: true, pullResp: Payload{
		Goals:     g,
		DailyLogs: map[string]ledger.DailyLog{"2024-05-30": {WaterIntake: 900}},
	}}
	h := newHarness(t, remote, nil)
	h.ledger.AddMeal(ledger.MealEntry{ID: "local", MealType: ledger.Dinner, FoodItem: oats(), Quantity: 1})
	h.ledger.AddFavorite(oats())

	require.NoError(t, h.syncer.Pull(context.Background()))
	assert.Equal(t, 1600.0, h.ledger.Goals().DailyCalories)
	assert.Equal(t, []string{"2024-05-30"}, h.ledger.Dates())
	assert.Len(t, h.ledger.Favorites(), 1)
}

func TestSyncer_SyncChoosesDirection(t *testing.T) {
	h := newHarness(t, &fakeRemote{token: true}, nil)
	require.NoError(t, h.syncer.Sync(context.Background()))
	pulls, pushes := h.remote.calls()
	assert.Equal(t, 1, pulls)
	assert.Equal(t, 0, pushes)

	h2 := newHarness(t, &fakeRemote{token: true}, nil)
	_, _ = h2.ledger.AddWaterIntake("2024-06-01", 250)
	require.NoError(t, h2.syncer.Sync(context.Background()))
	pulls, pushes = h2.remote.calls()
	assert.Equal(t, 0, pulls)
	assert.Equal(t, 1, pushes)
}

func TestSyncer_SyncAfterReadStillPulls(t *testing.T) {
	remote := &fakeRemote{token: true, pullResp: Payload{
		Goals:     ledger.DefaultGoals(),
		DailyLogs: map[string]ledger.DailyLog{"2024-05-31": {WaterIntake: 1200}},
	}}
	h := newHarness(t, remote, nil)
	h.ledger.Day(h.ledger.CurrentDate())

	require.NoError(t, h.syncer.Sync(context.Background()))
	pulls, pushes := remote.calls()
	assert.Equal(t, 1, pulls)
	assert.Zero(t, pushes, "an unused ledger must not overwrite the server copy")
	assert.Equal(t, 1200.0, h.ledger.Day("2024-05-31").WaterIntake)
}

func TestSyncer_NoToken(t *testing.T) {
	h := newHarness(t, &fakeRemote{}, nil)
	assert.ErrorIs(t, h.syncer.Push(context.Background()), ErrUnauthorized)
	h.syncer.AutoSync(context.Background())
	h.syncer.Run(context.Background())

	pulls, pushes := h.remote.calls()
	assert.Zero(t, pulls+pushes)
	_, ok := h.state.LastSync()
	assert.False(t, ok)
}

func TestSyncer_AutoSyncSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newHarness(t, &fakeRemote{token: true, err: errors.New("500")}, zap.New(core))

	h.syncer.AutoSync(context.Background())

	require.Equal(t, 1, logs.FilterMessage("auto sync skipped").Len())
}

func TestSyncer_RunSyncsAtStartupAndOnReconnect(t *testing.T) {
	remote := &fakeRemote{token: true}
	h := newHarness(t, remote, nil)
	_, _ = h.ledger.AddWaterIntake("2024-06-01", 250)
	// each attempt happens well outside the previous window
	var mu sync.Mutex
	h.syncer.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		h.clock = h.clock.Add(time.Hour)
		return h.clock
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.syncer.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, pushes := remote.calls()
		return pushes == 1
	}, 2*time.Second, time.Millisecond, "start-up sync")

	remote.setHealthy(true)
	require.Eventually(t, func() bool {
		_, pushes := remote.calls()
		return pushes == 2
	}, 2*time.Second, time.Millisecond, "sync on reconnect")

	// staying online does not trigger more syncs
	time.Sleep(30 * time.Millisecond)
	_, pushes := remote.calls()
	assert.Equal(t, 2, pushes)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

// Package ledger keeps a user's nutrition log: a map from date to DailyLog,
// the user's goals and favorite foods, and the date currently on screen.
package ledger

import (
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nutrilog/internal/food"
)

var (
	ErrMoodRating  = errors.New("mood rating must be between 1 and 5")
	ErrWaterAmount = errors.New("water amount must be positive")
)

// Persister stores a snapshot after every mutation.
type Persister interface {
	Save(Snapshot) error
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithPersister(p Persister) Option {
	return func(l *Ledger) { l.persister = p }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

type Ledger struct {
	mu          sync.RWMutex
	logs        map[string]*DailyLog
	goals       Goals
	favorites   []food.Item
	currentDate string

	now       func() time.Time
	persister Persister
	log       *zap.Logger
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		logs:  map[string]*DailyLog{},
		goals: DefaultGoals(),
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	l.currentDate = l.today()
	return l
}

func (l *Ledger) today() string {
	return l.now().Format(DateLayout)
}

// day returns the log for date, creating it on first reference.
// Caller holds the write lock.
func (l *Ledger) day(date string) *DailyLog {
	d, ok := l.logs[date]
	if !ok {
		d = &DailyLog{Date: date}
		l.logs[date] = d
	}
	return d
}

// persist must be called with the write lock held so that snapshots reach
// the persister in mutation order.
func (l *Ledger) persist() {
	if l.persister == nil {
		return
	}
	if err := l.persister.Save(l.snapshot()); err != nil {
		l.log.Error("persist ledger", zap.Error(err))
	}
}

// AddMeal appends entry to its day. A missing id is generated and a missing
// date defaults to the current date.
func (l *Ledger) AddMeal(entry MealEntry) MealEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Date == "" {
		entry.Date = l.currentDate
	}
	d := l.day(entry.Date)
	d.Meals = append(d.Meals, entry)
	l.persist()
	return entry
}

// find locates a meal by id across every date.
func (l *Ledger) find(id string) (*DailyLog, int) {
	for _, d := range l.logs {
		for i, m := range d.Meals {
			if m.ID == id {
				return d, i
			}
		}
	}
	return nil, -1
}

// RemoveMeal deletes the meal with id from whichever date holds it.
// It reports whether a meal was removed.
func (l *Ledger) RemoveMeal(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, i := l.find(id)
	if d == nil {
		return false
	}
	d.Meals = slices.Delete(d.Meals, i, i+1)
	l.persist()
	return true
}

// UpdateMealEntry applies changes to the meal with id.
func (l *Ledger) UpdateMealEntry(id string, changes MealUpdate) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, i := l.find(id)
	if d == nil {
		return false
	}
	if changes.Quantity != nil {
		d.Meals[i].Quantity = *changes.Quantity
	}
	if changes.MealType != nil {
		d.Meals[i].MealType = *changes.MealType
	}
	l.persist()
	return true
}

// Meal returns the meal with id, wherever it is logged.
func (l *Ledger) Meal(id string) (MealEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	d, i := l.find(id)
	if d == nil {
		return MealEntry{}, false
	}
	return d.Meals[i], true
}

func (l *Ledger) SetCurrentDate(date string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentDate = date
	l.persist()
	return nil
}

func (l *Ledger) CurrentDate() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentDate
}

// UpdateGoals merges p into the goals without validating them; see
// ValidateGoals.
func (l *Ledger) UpdateGoals(p GoalsPatch) Goals {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.goals = l.goals.apply(p)
	l.persist()
	return l.goals
}

func (l *Ledger) Goals() Goals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.goals
}

func (l *Ledger) AddWaterIntake(date string, ml float64) (float64, error) {
	if _, err := ParseDate(date); err != nil {
		return 0, err
	}
	if ml <= 0 {
		return 0, ErrWaterAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.day(date)
	d.WaterIntake += ml
	l.persist()
	return d.WaterIntake, nil
}

func (l *Ledger) ResetWaterIntake(date string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.day(date).WaterIntake = 0
	l.persist()
	return nil
}

// ClearTodayData empties the current date's meals. Water, mood and notes
// are kept.
func (l *Ledger) ClearTodayData() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.day(l.currentDate).Meals = nil
	l.persist()
}

func (l *Ledger) UpdateDailyMood(date string, rating int, notes string) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	if rating < 1 || rating > 5 {
		return ErrMoodRating
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.day(date)
	d.MoodRating = &rating
	d.Notes = notes
	l.persist()
	return nil
}

// Day returns a copy of the log for date.
func (l *Ledger) Day(date string) DailyLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.day(date).clone()
}

// Dates lists every date with a log, oldest first.
func (l *Ledger) Dates() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.logs))
	for d := range l.logs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// HasEntries reports whether any day holds something the user logged: a
// meal, water, a mood or notes. Days created by reads alone do not count.
func (l *Ledger) HasEntries() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, d := range l.logs {
		if len(d.Meals) > 0 || d.WaterIntake > 0 || d.MoodRating != nil || d.Notes != "" {
			return true
		}
	}
	return false
}

// Week returns seven daily summaries ending at end, oldest first. Dates
// without a log are reported as zeros.
func (l *Ledger) Week(end string) ([]DaySummary, error) {
	endT, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]DaySummary, 0, 7)
	for i := 6; i >= 0; i-- {
		date := endT.AddDate(0, 0, -i).Format(DateLayout)
		if d, ok := l.logs[date]; ok {
			out = append(out, d.Summary())
			continue
		}
		out = append(out, DaySummary{Date: date})
	}
	return out, nil
}

// AddFavorite stores it as a favorite, replacing any favorite with the same id.
func (l *Ledger) AddFavorite(it food.Item) food.Item {
	l.mu.Lock()
	defer l.mu.Unlock()

	it.Favorite = true
	if it.CreatedAt.IsZero() {
		it.CreatedAt = l.now().UTC()
	}
	i := slices.IndexFunc(l.favorites, func(f food.Item) bool { return f.ID == it.ID })
	if i >= 0 {
		l.favorites[i] = it
	} else {
		l.favorites = append(l.favorites, it)
	}
	l.persist()
	return it
}

func (l *Ledger) RemoveFavorite(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := slices.IndexFunc(l.favorites, func(f food.Item) bool { return f.ID == id })
	if i < 0 {
		return false
	}
	l.favorites = slices.Delete(l.favorites, i, i+1)
	l.persist()
	return true
}

func (l *Ledger) Favorites() []food.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.favorites)
}

func (l *Ledger) snapshot() Snapshot {
	logs := make(map[string]DailyLog, len(l.logs))
	for k, d := range l.logs {
		logs[k] = d.clone()
	}
	favs := slices.Clone(l.favorites)
	if favs == nil {
		favs = []food.Item{}
	}
	return Snapshot{
		Goals:         l.goals,
		DailyLogs:     logs,
		FavoriteFoods: favs,
		CurrentDate:   l.currentDate,
	}
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot()
}

// Restore replaces the whole ledger with s without persisting it.
func (l *Ledger) Restore(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.goals = s.Goals
	if l.goals == (Goals{}) {
		l.goals = DefaultGoals()
	}
	l.logs = toLogMap(s.DailyLogs)
	l.favorites = slices.Clone(s.FavoriteFoods)
	l.currentDate = s.CurrentDate
	if _, err := ParseDate(l.currentDate); err != nil {
		l.currentDate = l.today()
	}
}

// ReplaceRemote overwrites goals and logs with a copy fetched from the
// server. Favorites and the current date stay local.
func (l *Ledger) ReplaceRemote(goals Goals, logs map[string]DailyLog) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.goals = goals
	l.logs = toLogMap(logs)
	l.persist()
}

func toLogMap(in map[string]DailyLog) map[string]*DailyLog {
	out := make(map[string]*DailyLog, len(in))
	for k, d := range in {
		c := d.clone()
		if c.Date == "" {
			c.Date = k
		}
		out[k] = &c
	}
	return out
}

package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilog/internal/jobs"
	"nutrilog/internal/ledger"
	"nutrilog/internal/nutrition"
)

type fakeSummaries struct {
	rows map[uint64][]DailySummary
	err  error
}

func (f *fakeSummaries) Replace(_ context.Context, userID uint64, rows []DailySummary) error {
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = map[uint64][]DailySummary{}
	}
	f.rows[userID] = rows
	return nil
}

func TestRefresher_Handle(t *testing.T) {
	ctx := context.Background()
	docs := nutrition.NewMemoryStore()
	doc := nutrition.DefaultDocument()
	doc.DailyLogs["2024-06-01"] = ledger.DailyLog{Date: "2024-06-01", WaterIntake: 500, Notes: "#hydrated"}
	require.NoError(t, docs.Save(ctx, 4, doc))

	sums := &fakeSummaries{}
	r := &Refresher{Docs: docs, Summaries: sums}

	err := r.Handle(ctx, &jobs.Job{UserID: 4, Type: jobs.TypeSummaryRefresh, Payload: []byte(`{"user_id":4}`)})
	require.NoError(t, err)
	require.Len(t, sums.rows[4], 1)
	assert.Equal(t, []string{"hydrated"}, []string(sums.rows[4][0].Tags))
}

func TestRefresher_MissingDocumentClearsRows(t *testing.T) {
	sums := &fakeSummaries{rows: map[uint64][]DailySummary{5: {{Date: "2024-01-01"}}}}
	r := &Refresher{Docs: nutrition.NewMemoryStore(), Summaries: sums}

	err := r.Handle(context.Background(), &jobs.Job{UserID: 5, Payload: []byte(`{}`)})
	require.NoError(t, err)
	assert.Empty(t, sums.rows[5])
}

func TestRefresher_Errors(t *testing.T) {
	r := &Refresher{Docs: nutrition.NewMemoryStore(), Summaries: &fakeSummaries{}}
	err := r.Handle(context.Background(), &jobs.Job{Payload: []byte(`not json`)})
	assert.ErrorIs(t, err, jobs.ErrPermanent)

	boom := errors.New("db down")
	r.Summaries = &fakeSummaries{err: boom}
	err = r.Handle(context.Background(), &jobs.Job{UserID: 1, Payload: []byte(`{"user_id":1}`)})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, jobs.ErrPermanent)
}

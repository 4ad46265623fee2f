package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nutrilog/internal/jobs"
	"nutrilog/internal/nutrition"
)

// Summaries is where projected rows are written.
type Summaries interface {
	Replace(ctx context.Context, userID uint64, rows []DailySummary) error
}

// Refresher rebuilds a user's summaries from their stored document.
type Refresher struct {
	Docs      nutrition.Store
	Summaries Summaries
	Now       func() time.Time
}

// Handle is the jobs.Handler for jobs.TypeSummaryRefresh.
func (r *Refresher) Handle(ctx context.Context, job *jobs.Job) error {
	var p jobs.SummaryRefresh
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("%w: bad payload: %v", jobs.ErrPermanent, err)
	}
	if p.UserID == 0 {
		p.UserID = job.UserID
	}

	doc, err := r.Docs.Load(ctx, p.UserID)
	if errors.Is(err, nutrition.ErrNotFound) {
		return r.Summaries.Replace(ctx, p.UserID, nil)
	}
	if err != nil {
		return err
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return r.Summaries.Replace(ctx, p.UserID, Project(p.UserID, doc, now().UTC()))
}

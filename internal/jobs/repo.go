package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

// EnqueueSummaryRefresh schedules a projection rebuild for userID. A refresh
// that is still pending for the same user is replaced.
func (r *Repo) EnqueueSummaryRefresh(ctx context.Context, userID uint64) error {
	payload, err := json.Marshal(SummaryRefresh{UserID: userID})
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`delete from jobs where user_id=? and type=? and status=?`,
			userID, TypeSummaryRefresh, StatusPending).Error; err != nil {
			return fmt.Errorf("jobs: drop pending refresh: %w", err)
		}
		j := Job{
			UserID:  userID,
			Type:    TypeSummaryRefresh,
			Payload: payload,
			RunAt:   time.Now(),
			Status:  StatusPending,
		}
		if err := tx.Create(&j).Error; err != nil {
			return fmt.Errorf("jobs: enqueue refresh: %w", err)
		}
		return nil
	})
}

// Claim takes one due job using SKIP LOCKED so concurrent workers never
// share a job. Jobs stuck in RUNNING for five minutes are requeued first.
func (r *Repo) Claim(ctx context.Context, workerID string) (*Job, error) {
	var job Job
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`).Error; err != nil {
			return err
		}

		return tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID).Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Exec(`update jobs set status='DONE', locked_by=null, locked_at=null, updated_at=now() where id=?`, id).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`update jobs set status='FAILED', last_error=?, locked_by=null, locked_at=null, updated_at=now() where id=?`, errMsg, id).Error
}

func (r *Repo) RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`
update jobs
set status='PENDING',
    attempts=?,
    run_at=?,
    locked_by=null,
    locked_at=null,
    last_error=?,
    updated_at=now()
where id=?`, attempts, runAt, errMsg, id).Error
}

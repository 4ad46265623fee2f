package jobs

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
)

// ErrPermanent marks a handler failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

// Queue is the part of Repo the worker drives.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error
}

type Handler func(ctx context.Context, job *Job) error

type Worker struct {
	ID       string
	Queue    Queue
	Handlers map[string]Handler
	Interval time.Duration
	Log      *zap.Logger

	now func() time.Time
}

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll claims and handles at most one job.
func (w *Worker) poll(ctx context.Context) bool {
	job, err := w.Queue.Claim(ctx, w.ID)
	if err != nil {
		w.Log.Error("worker claim", zap.String("worker", w.ID), zap.Error(err))
		return false
	}
	if job == nil {
		return false
	}
	w.handle(ctx, job)
	return true
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	log := w.Log.With(zap.Uint64("job_id", job.ID), zap.String("type", job.Type), zap.Uint64("user_id", job.UserID))

	h, ok := w.Handlers[job.Type]
	if !ok {
		log.Warn("unknown job type")
		w.report(log, w.Queue.MarkFailed(ctx, job.ID, "unknown job type"))
		return
	}

	err := h(ctx, job)
	switch {
	case err == nil:
		w.report(log, w.Queue.MarkDone(ctx, job.ID))
	case errors.Is(err, ErrPermanent):
		log.Warn("job failed", zap.Error(err))
		w.report(log, w.Queue.MarkFailed(ctx, job.ID, err.Error()))
	default:
		w.retry(ctx, log, job, err)
	}
}

func (w *Worker) retry(ctx context.Context, log *zap.Logger, job *Job, cause error) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		log.Error("job exhausted retries", zap.Int("attempts", attempts), zap.Error(cause))
		w.report(log, w.Queue.MarkFailed(ctx, job.ID, cause.Error()))
		return
	}

	log.Info("job retry scheduled", zap.Int("attempts", attempts), zap.Error(cause))
	w.report(log, w.Queue.RetryLater(ctx, job.ID, attempts, w.clock().Add(RetryDelay(attempts)), cause.Error()))
}

func (w *Worker) report(log *zap.Logger, err error) {
	if err != nil {
		log.Error("update job status", zap.Error(err))
	}
}

func (w *Worker) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

// RetryDelay is 2^attempts seconds, capped at ten minutes.
func RetryDelay(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	return time.Duration(sec) * time.Second
}

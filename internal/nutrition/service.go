package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"nutrilog/internal/cooldown"
)

// Enqueuer schedules a rebuild of a user's history projection.
type Enqueuer interface {
	EnqueueSummaryRefresh(ctx context.Context, userID uint64) error
}

type Service struct {
	store    Store
	gate     *cooldown.Gate
	jobs     Enqueuer
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

// NewService wires a Service. jobs may be nil when no projection runs.
func NewService(store Store, gate *cooldown.Gate, jobs Enqueuer, v *validator.Validate, log *zap.Logger) *Service {
	return &Service{store: store, gate: gate, jobs: jobs, validate: v, log: log, now: time.Now}
}

// Pull returns the user's document, creating the default one on first access.
func (s *Service) Pull(ctx context.Context, userID uint64) (Document, error) {
	doc, err := s.store.Load(ctx, userID)
	if err == nil {
		doc.normalize()
		return doc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Document{}, err
	}

	doc = DefaultDocument()
	doc.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, userID, doc); err != nil {
		return Document{}, err
	}
	s.log.Info("created nutrition document", zap.Uint64("user_id", userID))
	return doc, nil
}

// Push overwrites the stored document with doc. It returns a *CooldownError
// when the user pushed less than the cooldown interval ago, and the
// validator's errors when doc is malformed.
func (s *Service) Push(ctx context.Context, userID uint64, doc Document) (Document, error) {
	doc.normalize()
	if err := s.validate.Struct(doc); err != nil {
		return Document{}, err
	}

	key := strconv.FormatUint(userID, 10)
	now := s.now()
	if ok, wait := s.gate.Allow(key, now); !ok {
		return Document{}, &CooldownError{Remaining: wait}
	}

	doc.UpdatedAt = now.UTC()
	if err := s.store.Save(ctx, userID, doc); err != nil {
		s.gate.Forget(key)
		return Document{}, fmt.Errorf("nutrition: push: %w", err)
	}

	if s.jobs != nil {
		if err := s.jobs.EnqueueSummaryRefresh(ctx, userID); err != nil {
			s.log.Warn("enqueue summary refresh", zap.Uint64("user_id", userID), zap.Error(err))
		}
	}
	return doc, nil
}

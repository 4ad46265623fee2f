package syncclient

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nutrilog/internal/cooldown"
	"nutrilog/internal/ledger"
)

const gateKey = "sync"

// Remote is the server as the Syncer sees it.
type Remote interface {
	HasToken() bool
	Health(ctx context.Context) error
	Pull(ctx context.Context) (Payload, error)
	Push(ctx context.Context, p Payload) (Payload, error)
}

// StateStore remembers when the last sync attempt was admitted.
type StateStore interface {
	MarkSynced(at time.Time) error
	LastSync() (time.Time, bool)
}

type Options struct {
	StartupDelay  time.Duration
	ProbeInterval time.Duration
}

type Syncer struct {
	ledger *ledger.Ledger
	remote Remote
	gate   *cooldown.Gate
	state  StateStore
	log    *zap.Logger
	opts   Options
	now    func() time.Time
}

// NewSyncer restores the cooldown window from state so it survives restarts.
func NewSyncer(l *ledger.Ledger, remote Remote, gate *cooldown.Gate, state StateStore, log *zap.Logger, opts Options) *Syncer {
	if last, ok := state.LastSync(); ok {
		gate.Seed(gateKey, last)
	}
	return &Syncer{ledger: l, remote: remote, gate: gate, state: state, log: log, opts: opts, now: time.Now}
}

// Remaining is the wait before the next sync is allowed.
func (s *Syncer) Remaining() time.Duration {
	return s.gate.Remaining(gateKey, s.now())
}

// admit checks sign-in and the cooldown. Admitted attempts start a new
// window whether or not they succeed.
func (s *Syncer) admit() error {
	if !s.remote.HasToken() {
		return ErrUnauthorized
	}
	now := s.now()
	if ok, wait := s.gate.Allow(gateKey, now); !ok {
		return &CooldownError{Remaining: wait}
	}
	if err := s.state.MarkSynced(now); err != nil {
		s.log.Warn("record sync time", zap.Error(err))
	}
	return nil
}

// Push uploads the whole local ledger.
func (s *Syncer) Push(ctx context.Context) error {
	if err := s.admit(); err != nil {
		return err
	}
	return s.push(ctx)
}

// Pull replaces local goals and logs with the server copy.
func (s *Syncer) Pull(ctx context.Context) error {
	if err := s.admit(); err != nil {
		return err
	}
	return s.pull(ctx)
}

// Sync pulls when nothing has been logged locally yet and pushes otherwise.
// Empty days left behind by reads do not count as logged.
func (s *Syncer) Sync(ctx context.Context) error {
	if err := s.admit(); err != nil {
		return err
	}
	if !s.ledger.HasEntries() {
		return s.pull(ctx)
	}
	return s.push(ctx)
}

// AutoSync is Sync for background triggers: failures are logged only.
func (s *Syncer) AutoSync(ctx context.Context) {
	if !s.remote.HasToken() {
		return
	}
	if err := s.Sync(ctx); err != nil {
		s.log.Info("auto sync skipped", zap.Error(err))
		return
	}
	s.log.Info("auto sync done")
}

func (s *Syncer) push(ctx context.Context) error {
	snap := s.ledger.Snapshot()
	_, err := s.remote.Push(ctx, Payload{
		Goals:         snap.Goals,
		DailyLogs:     snap.DailyLogs,
		FavoriteFoods: snap.FavoriteFoods,
	})
	return err
}

func (s *Syncer) pull(ctx context.Context) error {
	p, err := s.remote.Pull(ctx)
	if err != nil {
		return err
	}
	s.ledger.ReplaceRemote(p.Goals, p.DailyLogs)
	return nil
}

// Run auto-syncs once after the start-up delay and again every time the
// server becomes reachable after being unreachable. It returns when ctx is
// done or immediately when there is no token.
func (s *Syncer) Run(ctx context.Context) {
	if !s.remote.HasToken() {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.opts.StartupDelay):
	}
	online := s.remote.Health(ctx) == nil
	s.AutoSync(ctx)

	interval := s.opts.ProbeInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			up := s.remote.Health(ctx) == nil
			if up && !online {
				s.log.Info("connection restored")
				s.AutoSync(ctx)
			}
			online = up
		}
	}
}

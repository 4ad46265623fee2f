// Package cooldown rate-limits synchronization attempts per key.
package cooldown

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate admits at most one attempt per key per interval.
type Gate struct {
	every time.Duration

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func New(every time.Duration) *Gate {
	return &Gate{every: every, buckets: map[string]*rate.Limiter{}}
}

func (g *Gate) Interval() time.Duration { return g.every }

func (g *Gate) limiter(key string) *rate.Limiter {
	l, ok := g.buckets[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(g.every), 1)
		g.buckets[key] = l
	}
	return l
}

// Allow consumes the key's token if one is available. Otherwise it reports
// how long until the next attempt is admitted and leaves the bucket as it
// was.
func (g *Gate) Allow(key string, now time.Time) (bool, time.Duration) {
	if g.every <= 0 {
		return true, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	l := g.limiter(key)
	r := l.ReserveN(now, 1)
	if !r.OK() {
		return false, g.every
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Remaining is the wait before key is admitted again, or 0.
func (g *Gate) Remaining(key string, now time.Time) time.Duration {
	if g.every <= 0 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	tokens := g.limiter(key).TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(g.every))
}

// Seed marks key as having been admitted at at.
func (g *Gate) Seed(key string, at time.Time) {
	if g.every <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	l := rate.NewLimiter(rate.Every(g.every), 1)
	l.AllowN(at, 1)
	g.buckets[key] = l
}

// Forget drops key's state so its next attempt is admitted immediately.
func (g *Gate) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.buckets, key)
}

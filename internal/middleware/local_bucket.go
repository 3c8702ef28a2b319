package middleware

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/visitor-tracker/internal/config"
)

// localBucket keeps one rate.Limiter per key in process memory.  Keys not
// seen for idle are dropped by sweep.
type localBucket struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	clients map[string]*localClient
}

type localClient struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBucket(cfg config.RateLimitConfig) *localBucket {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &localBucket{
		limit:   rate.Limit(cfg.RefillPerSecond()),
		burst:   cfg.Capacity,
		idle:    cfg.TTL,
		clients: make(map[string]*localClient),
	}
}

func (b *localBucket) limiter(key string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	cl, ok := b.clients[key]
	if !ok {
		cl = &localClient{lim: rate.NewLimiter(b.limit, b.burst)}
		b.clients[key] = cl
	}
	cl.seen = now
	return cl.lim
}

func (b *localBucket) take(_ context.Context, key string) (verdict, error) {
	now := time.Now()
	lim := b.limiter(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return verdict{wait: time.Second}, nil
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return verdict{wait: wait}, nil
	}
	left := math.Max(0, math.Floor(lim.TokensAt(now)))
	return verdict{allowed: true, remaining: int64(left)}, nil
}

// sweep drops clients idle since before now-idle and reports how many
// remain.
func (b *localBucket) sweep(now time.Time) int {
	cutoff := now.Add(-b.idle)

	b.mu.Lock()
	defer b.mu.Unlock()
	for key, cl := range b.clients {
		if cl.seen.Before(cutoff) {
			delete(b.clients, key)
		}
	}
	return len(b.clients)
}

// sweepEvery calls sweep on a ticker until ctx is done.
func (b *localBucket) sweepEvery(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			b.sweep(now)
		}
	}
}

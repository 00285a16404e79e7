package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/akolanti/DocQA/internal/config"
)

var (
	limiterInstance = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)
	// POST /ingest is budgeted per minute
	ingestLimiterInstance = NewIPRateLimiter(rate.Every(time.Minute/config.INGEST_RATE_LIMIT_PER_MINUTE), config.INGEST_RATE_LIMIT_PER_MINUTE)
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client ip. Buckets idle for longer than
// config.RateLimiterIdleTTL are evicted on the next sweep.
type IPRateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		rateLimit: r,
		burstRate: b,
		now:       time.Now,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	if now.Sub(i.lastSweep) > config.RateLimiterIdleTTL {
		i.evictIdle(now)
		i.lastSweep = now
	}

	v, exists := i.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Tracked is the number of ips currently holding a bucket.
func (i *IPRateLimiter) Tracked() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.visitors)
}

func (i *IPRateLimiter) evictIdle(now time.Time) {
	for ip, v := range i.visitors {
		if now.Sub(v.lastSeen) > config.RateLimiterIdleTTL {
			delete(i.visitors, ip)
		}
	}
}

func limiterFor(req *http.Request) *IPRateLimiter {
	if req.Method == http.MethodPost && req.URL.Path == "/ingest" {
		return ingestLimiterInstance
	}
	return limiterInstance
}

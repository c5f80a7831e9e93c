package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/examind/examind-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// bucket tracks one client's remaining tokens and last refill time.
type bucket struct {
	tokens   int
	refilled time.Time
}

// RateLimiter grants each client IP a fixed number of requests per window,
// refilled in whole windows. State is in-process only.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
}

// NewRateLimiter returns a limiter allowing limit requests per window per IP
// and starts a goroutine that evicts idle buckets.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.evictIdle(3 * time.Minute)
		}
	}()

	return rl
}

// Middleware rejects requests over the per-IP budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.limit, refilled: time.Now()}
		rl.buckets[ip] = b
	}

	if windows := int(time.Since(b.refilled) / rl.window); windows > 0 {
		b.tokens += windows * rl.limit
		if b.tokens > rl.limit {
			b.tokens = rl.limit
		}
		b.refilled = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) evictIdle(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.buckets {
		if time.Since(b.refilled) > maxIdle {
			delete(rl.buckets, ip)
		}
	}
}

package rest

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClientLimiter rate limits requests per client IP with one token bucket per
// client. Each bucket refills max tokens per window and holds at most max.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	limit   rate.Limit
	burst   int
	window  time.Duration
	pruned  time.Time
	now     func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a limiter allowing max requests per window per
// client. Non-positive values disable limiting.
func NewClientLimiter(maxRequests int, window time.Duration) *ClientLimiter {
	l := &ClientLimiter{
		clients: make(map[string]*clientBucket),
		burst:   maxRequests,
		window:  window,
		now:     time.Now,
	}
	if maxRequests > 0 && window > 0 {
		l.limit = rate.Limit(float64(maxRequests) / window.Seconds())
	}
	return l
}

// Enabled reports whether requests are limited at all.
func (l *ClientLimiter) Enabled() bool {
	return l.limit > 0
}

// Allow consumes one token for key and reports whether the request may
// proceed. When it may not, the returned duration is the wait until the next
// token.
func (l *ClientLimiter) Allow(key string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.window
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// prune drops buckets idle for a full window, at most once per window;
// a dropped bucket would be full again (caller must hold lock).
func (l *ClientLimiter) prune(now time.Time) {
	if now.Sub(l.pruned) < l.window {
		return
	}
	l.pruned = now
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.clients, key)
		}
	}
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware answers 429 with Retry-After once a client is over budget.
func (l *ClientLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.Allow(c.ClientIP())
		if ok {
			c.Next()
			return
		}

		secs := int(math.Ceil(wait.Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error:  "Too many requests from this IP, please try again later",
			Status: http.StatusTooManyRequests,
		})
	}
}

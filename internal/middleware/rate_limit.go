package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	visitorIdleTTL = 3 * time.Minute
	sweepInterval  = time.Minute
)

// visitor tracks the remaining request allowance for one client IP
type visitor struct {
	allowance float64
	lastSeen  time.Time
}

// RateLimiter throttles clients to a sustained per-minute rate with a burst
// allowance, one lazily refilled bucket per client IP. Buckets idle past
// visitorIdleTTL are evicted on the next sweep so the map does not grow with
// every address ever seen.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perSecond float64
	burst     float64
	lastSweep time.Time
}

// NewRateLimiter creates a rate limiter allowing requestsPerMinute sustained
// with bursts up to burstSize
func NewRateLimiter(requestsPerMinute, burstSize int) *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		perSecond: float64(requestsPerMinute) / 60,
		burst:     float64(burstSize),
		lastSweep: time.Now(),
	}
}

// Allow reports whether the client may proceed. When denied it also returns
// how long the client should wait before retrying.
func (l *RateLimiter) Allow(clientIP string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		for ip, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTTL {
				delete(l.visitors, ip)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[clientIP]
	if !ok {
		v = &visitor{allowance: l.burst, lastSeen: now}
		l.visitors[clientIP] = v
	} else {
		v.allowance += now.Sub(v.lastSeen).Seconds() * l.perSecond
		if v.allowance > l.burst {
			v.allowance = l.burst
		}
		v.lastSeen = now
	}

	if v.allowance < 1 {
		wait := time.Duration((1 - v.allowance) / l.perSecond * float64(time.Second))
		return false, wait
	}
	v.allowance--
	return true, 0
}

// RateLimit creates middleware that rejects over-limit clients with 429 and a
// Retry-After hint
func RateLimit(requestsPerMinute, burstSize int) gin.HandlerFunc {
	limiter := NewRateLimiter(requestsPerMinute, burstSize)

	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(c.ClientIP())
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

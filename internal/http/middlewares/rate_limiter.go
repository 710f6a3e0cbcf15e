package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window counter per key, kept in process memory.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	buckets map[string]*bucket
	now     func() time.Time

	lastSweep time.Time
}

type bucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// allow reports whether key may proceed and, if not, how long until it can.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok || now.After(b.windowEnd) {
		rl.buckets[key] = &bucket{count: 1, windowEnd: now.Add(rl.window)}
		return true, 0
	}

	if b.count >= rl.limit {
		return false, b.windowEnd.Sub(now)
	}

	b.count++
	return true, 0
}

// sweep drops expired buckets at most once per window. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now

	for k, b := range rl.buckets {
		if now.After(b.windowEnd) {
			delete(rl.buckets, k)
		}
	}
}

func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		ok, retry := rl.allow(key)
		if !ok {
			secs := int(retry.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			abortError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

// KeyByIP is for unauthenticated endpoints such as login and signup.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := UserIDFromContext(c); ok {
		return "user:" + id
	}
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}

	return ip
}

package api

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipRateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than the cleanup window are dropped so the map cannot grow without
// bound.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiterEntry
	rps      rate.Limit
	burst    int
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(rps rate.Limit, burst int) *ipRateLimiter {
	l := &ipRateLimiter{
		limiters: make(map[string]*ipLimiterEntry),
		rps:      rps,
		burst:    burst,
	}
	go l.cleanupLoop()
	return l
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (l *ipRateLimiter) cleanupLoop() {
	for {
		time.Sleep(time.Minute)

		l.mu.Lock()
		for ip, entry := range l.limiters {
			if time.Since(entry.lastSeen) > 3*time.Minute {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimitMiddleware limits each client IP. Enabled by ENABLE_RATE_LIMIT;
// USER_RATE_LIMIT sets requests per second (default 10, burst 2x).
func RateLimitMiddleware() gin.HandlerFunc {
	if os.Getenv("ENABLE_RATE_LIMIT") != "true" {
		return func(ctx *gin.Context) { ctx.Next() }
	}

	rps := 10
	if v := os.Getenv("USER_RATE_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			rps = parsed
		}
	}

	limiter := newIPRateLimiter(rate.Limit(rps), rps*2)

	return func(ctx *gin.Context) {
		if !limiter.get(ctx.ClientIP()).Allow() {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests, slow down",
			})
			return
		}
		ctx.Next()
	}
}

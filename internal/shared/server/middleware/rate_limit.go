package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"ocrdocs-backend/internal/shared/server/respond"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	// idle buckets are swept once per this many Allow calls
	sweepInterval = 1024
)

// RateLimitRule is a token bucket refilled at Rate tokens per second up to
// Burst. A non-positive Rate or Burst means unlimited.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

func (r RateLimitRule) unlimited() bool {
	return r.Rate <= 0 || r.Burst <= 0
}

// refill is how long an empty bucket takes to become full.
func (r RateLimitRule) refill() time.Duration {
	return time.Duration(float64(r.Burst) / r.Rate * float64(time.Second))
}

// RateLimitConfig selects a rule per request. GroupFor maps a request to a
// rule name; KeyFor identifies the caller and defaults to the client IP.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	KeyFor       func(*gin.Context) string
	Limiter      *RateLimiter
}

func (cfg RateLimitConfig) group(c *gin.Context) string {
	if cfg.GroupFor != nil {
		if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
			return g
		}
	}
	return cfg.DefaultGroup
}

func (cfg RateLimitConfig) caller(c *gin.Context) string {
	if cfg.KeyFor != nil {
		if k := strings.TrimSpace(cfg.KeyFor(c)); k != "" {
			return k
		}
	}
	return c.ClientIP()
}

// RateLimiter holds one token bucket per caller and group.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
	calls   int
}

type rateBucket struct {
	tokens float64
	seen   time.Time
	refill time.Duration
}

// take consumes a token, or returns how long until one is available.
func (b *rateBucket) take(now time.Time, rule RateLimitRule) time.Duration {
	if dt := now.Sub(b.seen).Seconds(); dt > 0 {
		b.tokens = math.Min(float64(rule.Burst), b.tokens+dt*rule.Rate)
		b.seen = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return 0
	}
	wait := (1 - b.tokens) / rule.Rate
	return time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// NewRateLimiter constructs a RateLimiter; a nil clock uses time.Now.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: make(map[string]*rateBucket), now: now}
}

// Allow consumes one token for key, or reports how long until one is available.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.unlimited() {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls%sweepInterval == 0 {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &rateBucket{tokens: float64(rule.Burst), seen: now, refill: rule.refill()}
		l.buckets[key] = b
	}
	wait := b.take(now, rule)
	return wait == 0, wait
}

// sweep drops buckets idle long enough to have refilled; a new bucket starts
// full, so forgetting them changes nothing. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) >= b.refill {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests over budget with 429 and a Retry-After header.
// Requests whose group has no rule pass through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.group(c)
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		if allowed, wait := cfg.Limiter.Allow(cfg.caller(c)+"|"+group, rule); !allowed {
			tooManyRequests(c, wait)
			return
		}
		c.Next()
	}
}

func tooManyRequests(c *gin.Context, wait time.Duration) {
	ms := wait.Milliseconds()
	if ms <= 0 {
		ms = 1000
	}
	c.Header("Retry-After", strconv.FormatInt((ms+999)/1000, 10))
	respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
		"retryAfterMs": ms,
	})
}

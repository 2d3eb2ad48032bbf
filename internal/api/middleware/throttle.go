package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// maxPeekBytes bounds how much of a request body is read to find the team.
const maxPeekBytes = 4 << 10

// Throttle limits how often each team may hit the mutating auction routes.
// Requests are keyed on the "team" field of the JSON body; bodies without one
// fall back to the client IP.  Each key owns a token bucket refilled at rate
// per second and capped at burst.
type Throttle struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
	idle    time.Duration
	now     func() time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewThrottle allows rps requests per second per team, with a burst of at
// least 10 so the flurry of bids before a deadline is not cut off.
func NewThrottle(rps int) *Throttle {
	burst := float64(rps)
	if burst < 10 {
		burst = 10
	}
	return &Throttle{
		buckets: make(map[string]*bucket),
		rate:    float64(rps),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

// Allow spends one token from key's bucket, reporting false when it is empty.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: t.burst, seen: now}
		t.buckets[key] = b
	}
	b.tokens += now.Sub(b.seen).Seconds() * t.rate
	if b.tokens > t.burst {
		b.tokens = t.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Run evicts buckets idle for longer than the idle window until ctx ends.
func (t *Throttle) Run(ctx context.Context) {
	ticker := time.NewTicker(t.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.evict()
		}
	}
}

func (t *Throttle) evict() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.idle)
	for key, b := range t.buckets {
		if b.seen.Before(cutoff) {
			delete(t.buckets, key)
		}
	}
}

// Handler rejects over-limit requests with a 429 envelope.
func (t *Throttle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.Allow(throttleKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many requests, slow down",
				"code":    "ERR_RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// throttleKey reads the team from the body and puts the body back for the
// handler.
func throttleKey(c *gin.Context) string {
	if c.Request.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBytes))
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), c.Request.Body))
		if err == nil {
			var body struct {
				Team string `json:"team"`
			}
			if json.Unmarshal(raw, &body) == nil {
				if team := strings.TrimSpace(body.Team); team != "" {
					return "team:" + team
				}
			}
		}
	}
	return "ip:" + c.ClientIP()
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-client-IP token bucket. Single-node, in-memory; stale
// limiters are dropped once their bucket has been full for a while.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	message  string
	lastSeen time.Duration
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter allows max requests per window for each client IP.
func NewRateLimiter(max int, window time.Duration, message string) *RateLimiter {
	return &RateLimiter{
		clients:  map[string]*clientLimiter{},
		limit:    rate.Limit(float64(max) / window.Seconds()),
		burst:    max,
		message:  message,
		lastSeen: 3 * window,
	}
}

func (rl *RateLimiter) take(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, ok := rl.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = client
	}
	client.seen = now

	if len(rl.clients) > 1024 {
		for key, stale := range rl.clients {
			if now.Sub(stale.seen) > rl.lastSeen {
				delete(rl.clients, key)
			}
		}
	}

	return client.limiter.Allow()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.take(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rl.message})
			return
		}
		c.Next()
	}
}

package echomw

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const limiterIdleTimeout = time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

/*
RateLimiter keeps one token bucket per client IP. Buckets idle for more than
a minute are dropped on the next request.
*/
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientLimiter
	rateLimit   rate.Limit // requests per second
	burst       int        // how many requests are allowed instantly
	lastCleanup time.Time
	now         func() time.Time
}

func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		rateLimit: rate.Limit(requestsPerSecond),
		burst:     burst,
		now:       time.Now,
	}
}

// Allow reports whether the client at ip may make a request now.
func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastCleanup) > limiterIdleTimeout {
		for key, client := range r.clients {
			if now.Sub(client.lastSeen) > limiterIdleTimeout {
				delete(r.clients, key)
			}
		}
		r.lastCleanup = now
	}

	client, exists := r.clients[ip]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(r.rateLimit, r.burst)}
		r.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the client's budget with 429.
func (r *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !r.Allow(c.RealIP()) {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too_many_requests"})
		}
		return next(c)
	}
}

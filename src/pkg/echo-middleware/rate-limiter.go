package echomw

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// limiterTTL is how long an idle client's limiter is kept.
const limiterTTL = time.Minute

// RateLimiter limits requests per client IP address.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit // Number of requests per second
	burst   int        // Burst size (how many requests are allowed instantly)
	ttl     time.Duration
}

func NewRateLimiter(rateLimit int, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rateLimit),
		burst:   burst,
		ttl:     limiterTTL,
	}
}

// limiterFor returns the rate limiter for the given IP address.
func (l *RateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.clients[ip]
	if !exists {
		// Create a new rate limiter for the client
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[ip] = limiter

		// Forget the client after ttl
		time.AfterFunc(l.ttl, func() {
			l.mu.Lock()
			delete(l.clients, ip)
			l.mu.Unlock()
		})
	}
	return limiter
}

// Middleware rejects requests over the client's limit with 429.
func (l *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP() // Get the client's IP address

		// Check if the request is allowed by the rate limiter
		if !l.limiterFor(ip).Allow() {
			return c.String(http.StatusTooManyRequests, "Too many requests")
		}
		return next(c)
	}
}

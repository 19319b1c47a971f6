package middleware

import (
	"sync"
	"time"

	"roomrelay/pkg/config"
	"roomrelay/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore stores per-key (for example, per IP) rate limiters.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burstSize int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiterStore(r rate.Limit, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters:  make(map[string]*limiterEntry),
		rate:      r,
		burstSize: burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *rateLimiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > limiterIdleTTL {
		for k, entry := range s.limiters {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	entry, exists := s.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rate, s.burstSize)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (s *rateLimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// ConnectionCounter reports how many signaling connections are open.
type ConnectionCounter interface {
	ConnectionCount() int
}

func passThrough(c *gin.Context) {
	c.Next()
}

// NewHTTPRateLimitMiddleware returns Gin middleware that applies simple IP-based rate limiting.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return passThrough
	}

	store := newRateLimiterStore(rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond), cfg.RateLimiting.HTTP.Burst)

	var globalSem chan struct{}
	if cfg.RateLimiting.HTTP.MaxConcurrent > 0 {
		globalSem = make(chan struct{}, cfg.RateLimiting.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if globalSem != nil {
			select {
			case globalSem <- struct{}{}:
				defer func() { <-globalSem }()
			default:
				writeAppError(c, errors.NewServiceUnavailableError("too many concurrent requests"))
				return
			}
		}

		if !store.allow(c.ClientIP()) {
			writeAppError(c, errors.NewRateLimitError())
			return
		}
		c.Next()
	}
}

// NewWebSocketRateLimitMiddleware guards the upgrade endpoint: it limits new
// connections per client IP and caps the number of open connections.
func NewWebSocketRateLimitMiddleware(cfg *config.Config, counter ConnectionCounter) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return passThrough
	}

	perMinute := cfg.RateLimiting.WebSocket.ConnectionsPerMinute
	store := newRateLimiterStore(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	maxConcurrent := cfg.RateLimiting.WebSocket.MaxConcurrent

	return func(c *gin.Context) {
		if maxConcurrent > 0 && counter != nil && counter.ConnectionCount() >= maxConcurrent {
			writeAppError(c, errors.NewServiceUnavailableError("too many open connections"))
			return
		}
		if !store.allow(c.ClientIP()) {
			writeAppError(c, errors.NewRateLimitError())
			return
		}
		c.Next()
	}
}

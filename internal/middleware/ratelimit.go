package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BuzzLyutic/tasksync/pkg/respond"
)

type ownerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per owner. Idle buckets are evicted
// by a background loop until Stop.
type RateLimiter struct {
	rate   rate.Limit
	burst  int
	idle   time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*ownerLimiter

	stopCh chan struct{}
	once   sync.Once
}

func NewRateLimiter(rps float64, burst int, idle time.Duration, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		rate:     rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		logger:   logger,
		limiters: make(map[string]*ownerLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// Middleware must sit behind Authenticate.
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, ok := OwnerID(r.Context())
			if !ok {
				respond.Error(w, r, http.StatusUnauthorized, "no token provided")
				return
			}

			if !rl.limiter(ownerID).Allow() {
				rl.logger.Warn("rate limit exceeded", zap.String("owner_id", ownerID))
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
				respond.Error(w, r, http.StatusTooManyRequests, "too many requests, retry later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Len returns how many owners currently have a bucket.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiter(ownerID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ol, ok := rl.limiters[ownerID]
	if !ok {
		ol = &ownerLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ownerID] = ol
	}
	ol.lastAccess = time.Now()
	return ol.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ownerID, ol := range rl.limiters {
		if now.Sub(ol.lastAccess) > rl.idle {
			delete(rl.limiters, ownerID)
		}
	}
}

// retryAfter is the number of seconds until one token is refilled.
func (rl *RateLimiter) retryAfter() int {
	sec := int(math.Ceil(1.0 / float64(rl.rate)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

package resilience

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a seller would exceed its request quota
// within the configured window. The caller defers the unit to a later
// scheduling cycle; no retry slot is consumed.
var ErrRateLimited = errors.New("rate limit exceeded")

// SellerRateLimiter enforces a per-seller request quota of maxRequests per
// window. Limiters are created lazily per seller key.
type SellerRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewSellerRateLimiter creates a limiter allowing maxRequests per window
// for each distinct seller key.
func NewSellerRateLimiter(maxRequests int, window time.Duration) *SellerRateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SellerRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:    maxRequests,
	}
}

func (l *SellerRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// CheckLimit consumes one slot of the seller's quota, failing fast with
// ErrRateLimited when the quota for the window is already spent.
func (l *SellerRateLimiter) CheckLimit(sellerID string) error {
	if !l.limiter(sellerID).Allow() {
		return ErrRateLimited
	}
	return nil
}

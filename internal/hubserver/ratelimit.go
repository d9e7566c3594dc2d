package hubserver

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomcat65/agent-hub/internal/hubtypes"
)

// RateLimiter manages one golang.org/x/time/rate.Limiter per principal
// (API key id, falling back to tenant+user for JWT-authenticated callers),
// mirroring the teacher's per-user token-bucket registry shape but backed
// by the standard rate-limiting library instead of a hand-rolled bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewRateLimiter builds a registry with the given sustained rate (requests
// per second) and burst allowance, applied per principal.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go rl.evictLoop()
	return rl
}

func (rl *RateLimiter) limiterFor(principal string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.limiters[principal]
	if !ok {
		lim = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[principal] = lim
	}
	return lim
}

// evictLoop periodically drops limiters for principals that have gone
// quiet, the same memory-bound concern the teacher's cleanupLoop serves,
// expressed against rate.Limiter's own Tokens()/full-bucket check instead
// of a hand-tracked lastRefill timestamp.
func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		for principal, lim := range rl.limiters {
			if lim.Tokens() >= float64(rl.burst) {
				delete(rl.limiters, principal)
			}
		}
		rl.mu.Unlock()
	}
}

func principalFor(rc hubtypes.RequestContext) string {
	if rc.APIKeyID != "" {
		return rc.APIKeyID
	}
	return rc.TenantID + ":" + rc.UserID
}

// Middleware enforces the per-principal rate limit. It must run after
// ResolveTenantMiddleware so a RequestContext is already attached.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, ok := hubtypes.FromContext(r.Context())
		if !ok || rc.IsPublic() {
			next.ServeHTTP(w, r)
			return
		}

		lim := rl.limiterFor(principalFor(rc))
		if !lim.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package hubauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// MembershipChecker answers whether a principal (the JWT subject) belongs
// to tenantID. It is the pluggable half of the X-Tenant-Id override-header
// check: a deployment with a real identity-provider-side membership API can
// implement this against that API; the default implementation checks an
// in-house membership table maintained by provisioning.
type MembershipChecker interface {
	IsMember(ctx context.Context, subject, tenantID string) (bool, error)
}

// DBMembershipChecker checks the tenant_membership table populated by
// whatever out-of-band provisioning process grants a principal access to a
// tenant.
type DBMembershipChecker struct {
	pool *pgxpool.Pool
}

// NewDBMembershipChecker constructs a MembershipChecker backed by Postgres.
func NewDBMembershipChecker(pool *pgxpool.Pool) *DBMembershipChecker {
	return &DBMembershipChecker{pool: pool}
}

func (c *DBMembershipChecker) IsMember(ctx context.Context, subject, tenantID string) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM tenant_membership WHERE principal = $1 AND tenant_id = $2)
	`, subject, tenantID).Scan(&exists)
	if err != nil && err != pgx.ErrNoRows {
		return false, fmt.Errorf("membership lookup failed: %w", err)
	}
	return exists, nil
}

// membershipCache is a short-TTL in-memory cache of subject+tenant
// authorization decisions, the same shape as the toolbridge TenantAuthCache:
// a flat map guarded by one mutex, with a background goroutine sweeping
// expired entries so the map never grows unbounded.
type membershipCache struct {
	mu    sync.RWMutex
	cache map[string]time.Time
}

func newMembershipCache() *membershipCache {
	c := &membershipCache{cache: make(map[string]time.Time)}
	go c.cleanupExpired()
	return c
}

func (c *membershipCache) get(subject, tenantID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	expiry, ok := c.cache[subject+":"+tenantID]
	return ok && time.Now().Before(expiry)
}

func (c *membershipCache) set(subject, tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[subject+":"+tenantID] = time.Now().Add(5 * time.Minute)
}

func (c *membershipCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, expiry := range c.cache {
			if now.After(expiry) {
				delete(c.cache, key)
			}
		}
		c.mu.Unlock()
	}
}

// checkMembership reports whether subject may switch into tenantID via the
// X-Tenant-Id override header, consulting the cache before calling out to
// the checker.
func checkMembership(ctx context.Context, checker MembershipChecker, cache *membershipCache, subject, tenantID string) bool {
	if cache.get(subject, tenantID) {
		return true
	}
	if checker == nil {
		log.Warn().Str("subject", subject).Str("tenantId", tenantID).
			Msg("no membership checker configured; denying tenant override")
		return false
	}
	ok, err := checker.IsMember(ctx, subject, tenantID)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Str("tenantId", tenantID).Msg("membership check failed")
		return false
	}
	if ok {
		cache.set(subject, tenantID)
	}
	return ok
}

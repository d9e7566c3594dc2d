// Package hubauth implements the TenantResolver: the single place that maps
// an inbound request's credentials to a hubtypes.RequestContext. No other
// package is permitted to mint a RequestContext.
package hubauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/hubtypes"
)

// TenantOverrideHeader is the header a client may send to ask the resolver
// to switch its resolved tenant, honored only after a membership check.
const TenantOverrideHeader = "X-Tenant-Id"

// Resolver implements the TenantResolver contract: two credential modes
// (API key, signed identity token), a public-path bypass, and the
// membership-gated tenant-override header.
type Resolver struct {
	pool          *pgxpool.Pool
	jwt           *JWTValidator
	membership    MembershipChecker
	membershipTTL *membershipCache
	devMode       bool
	defaultTenant string
}

// NewResolver constructs a Resolver. membership may be nil, in which case
// the override header is always refused (fail closed, never fail open on a
// missing dependency).
func NewResolver(pool *pgxpool.Pool, jwt *JWTValidator, membership MembershipChecker, devMode bool, defaultTenant string) *Resolver {
	return &Resolver{
		pool:          pool,
		jwt:           jwt,
		membership:    membership,
		membershipTTL: newMembershipCache(),
		devMode:       devMode,
		defaultTenant: defaultTenant,
	}
}

// publicPaths bypass authentication entirely and resolve to the public
// tenant with no tool scope.
var publicPaths = map[string]bool{
	"/health":      true,
	"/health.json": true,
	"/ready":       true,
}

// Resolve maps an inbound HTTP request to a RequestContext, or returns a
// *huberr.HubError (Unauthorized / UnknownTenant / StorageError) describing
// why it could not. A token's organization claim is used as the tenant id
// as-is; it is not checked against any table of provisioned tenants, so
// UnknownTenant is returned only when the token has no organization claim
// and no default tenant is configured.
func (res *Resolver) Resolve(r *http.Request) (hubtypes.RequestContext, error) {
	if publicPaths[r.URL.Path] {
		return hubtypes.RequestContext{TenantID: hubtypes.PublicTenantID}, nil
	}

	bearer := bearerFrom(r)

	// X-API-Key is unambiguously an API key. A bearer token is ambiguous —
	// it may be an API key (toolbridge clients historically sent either
	// under Authorization: Bearer) or a signed identity token — so an
	// unmatched lookup falls through to JWT validation rather than failing
	// outright.
	if key := r.Header.Get("X-API-Key"); key != "" {
		return res.resolveAPIKey(r.Context(), key)
	}
	if bearer != "" {
		if rc, err := res.resolveAPIKey(r.Context(), bearer); err == nil {
			return rc, nil
		}
	}

	if res.devMode {
		if sub := r.Header.Get("X-Debug-Sub"); sub != "" {
			return res.applyOverride(r, hubtypes.RequestContext{TenantID: res.defaultTenant, UserID: sub})
		}
	}

	if bearer == "" {
		return hubtypes.RequestContext{}, huberr.New(huberr.Unauthorized, "missing credentials", nil)
	}

	identity, err := res.jwt.Validate(bearer)
	if err != nil {
		return hubtypes.RequestContext{}, huberr.New(huberr.Unauthorized, "invalid token: "+err.Error(), nil)
	}

	tenantID := identity.OrgID
	if tenantID == "" {
		tenantID = res.defaultTenant
	}
	if tenantID == "" {
		return hubtypes.RequestContext{}, huberr.New(huberr.UnknownTenant, "token carries no organization claim and no default tenant is configured", nil)
	}

	rc := hubtypes.RequestContext{TenantID: tenantID, UserID: identity.Subject}
	return res.applyOverride(r, rc)
}

// applyOverride honors X-Tenant-Id only when the principal has a recorded
// membership in the requested tenant; otherwise the header is silently
// ignored and rc is returned unchanged — never an error, per the
// tenant-override-header contract.
func (res *Resolver) applyOverride(r *http.Request, rc hubtypes.RequestContext) (hubtypes.RequestContext, error) {
	override := r.Header.Get(TenantOverrideHeader)
	if override == "" || override == rc.TenantID || rc.UserID == "" {
		return rc, nil
	}
	if checkMembership(r.Context(), res.membership, res.membershipTTL, rc.UserID, override) {
		rc.TenantID = override
	}
	return rc, nil
}

func (res *Resolver) resolveAPIKey(ctx context.Context, key string) (hubtypes.RequestContext, error) {
	var tenantID string
	var scopes []string
	var revoked *string
	err := res.pool.QueryRow(ctx, `
		SELECT tenant_id, scopes, revoked_at FROM api_key WHERE id = $1
	`, key).Scan(&tenantID, &scopes, &revoked)
	if err == pgx.ErrNoRows {
		return hubtypes.RequestContext{}, huberr.New(huberr.Unauthorized, "unknown API key", nil)
	}
	if err != nil {
		return hubtypes.RequestContext{}, huberr.New(huberr.StorageError, fmt.Sprintf("api key lookup failed: %v", err), nil)
	}
	if revoked != nil {
		return hubtypes.RequestContext{}, huberr.New(huberr.Unauthorized, "API key revoked", nil)
	}
	return hubtypes.RequestContext{TenantID: tenantID, APIKeyID: key, Scopes: scopes}, nil
}

func bearerFrom(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

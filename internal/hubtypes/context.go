// Package hubtypes holds the handful of types shared across every layer of
// the hub so that auth, storage, routing, and the tool dispatcher don't need
// to import one another just to pass a request's identity around.
package hubtypes

import "context"

// PublicTenantID is the tenant assigned to unauthenticated, health-check-only
// requests. No tool call may execute under it.
const PublicTenantID = "_public"

// RequestContext is the single source of identity for a request, produced by
// the TenantResolver and never reconstructed from a tool's own arguments.
type RequestContext struct {
	TenantID string
	UserID   string // empty for API-key credentials
	APIKeyID string // empty for JWT credentials
	AgentID  string // populated from the X-Agent-Id request header, if present
	Scopes   []string
}

// HasScope reports whether the resolved principal was granted scope s.
// A RequestContext with a nil Scopes slice is treated as unrestricted, the
// same convention the API-key table uses for legacy keys provisioned before
// scopes existed.
func (rc RequestContext) HasScope(s string) bool {
	if rc.Scopes == nil {
		return true
	}
	for _, have := range rc.Scopes {
		if have == s {
			return true
		}
	}
	return false
}

// IsPublic reports whether this context was produced for an unauthenticated
// health-check path.
func (rc RequestContext) IsPublic() bool {
	return rc.TenantID == PublicTenantID
}

type ctxKey int

const (
	ctxKeyRequestContext ctxKey = iota
	ctxKeyCorrelationID
)

// WithRequestContext attaches the resolved identity to ctx.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, ctxKeyRequestContext, rc)
}

// FromContext retrieves the identity attached by the TenantResolver. The
// second return is false if no resolver has run on this ctx, which handler
// code should treat as a bug, not as "_public" tenant.
func FromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(ctxKeyRequestContext).(RequestContext)
	return rc, ok
}

// WithCorrelationID attaches the per-request correlation id used in logs and
// in StorageError payloads.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

// CorrelationID returns the correlation id for ctx, or "" if none was set.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyCorrelationID).(string)
	return id
}

package hubserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/hubtypes"
)

func TestCorrelationMiddleware_GeneratesIDWhenAbsent(t *testing.T) {
	var seen string
	handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = hubtypes.CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Error("expected a generated correlation id in request context")
	}
	if rec.Header().Get("X-Correlation-ID") != seen {
		t.Error("expected the response header to echo the context correlation id")
	}
}

func TestCorrelationMiddleware_PreservesClientSuppliedID(t *testing.T) {
	handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != "client-supplied-id" {
		t.Errorf("X-Correlation-ID = %q, want %q", got, "client-supplied-id")
	}
}

type fakeResolver struct {
	rc  hubtypes.RequestContext
	err error
}

func (f fakeResolver) Resolve(r *http.Request) (hubtypes.RequestContext, error) {
	return f.rc, f.err
}

func TestResolveTenantMiddleware_RejectsOnResolveError(t *testing.T) {
	resolver := fakeResolver{err: huberr.New(huberr.Unauthorized, "missing credentials", nil)}
	handler := ResolveTenantMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run when resolution fails")
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestResolveTenantMiddleware_AttachesAgentIDHeader(t *testing.T) {
	resolver := fakeResolver{rc: hubtypes.RequestContext{TenantID: "tenant-a"}}
	var seen hubtypes.RequestContext
	handler := ResolveTenantMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = hubtypes.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("X-Agent-Id", "agent-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen.AgentID != "agent-1" {
		t.Errorf("expected AgentID to be folded in from header, got %q", seen.AgentID)
	}
	if seen.TenantID != "tenant-a" {
		t.Errorf("expected resolved tenant to be preserved, got %q", seen.TenantID)
	}
}

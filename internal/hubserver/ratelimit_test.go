package hubserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomcat65/agent-hub/internal/hubtypes"
)

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(1, 2) // 1 req/s sustained, burst of 2

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rc := hubtypes.RequestContext{TenantID: "tenant-a", APIKeyID: "key-1"}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/ai-message", nil)
		req = req.WithContext(hubtypes.WithRequestContext(req.Context(), rc))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected the first two burst requests to succeed, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected the third request to be rate limited, got %v", codes)
	}
}

func TestRateLimiter_SeparatesPrincipals(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, key := range []string{"key-a", "key-b"} {
		req := httptest.NewRequest(http.MethodPost, "/ai-message", nil)
		rc := hubtypes.RequestContext{TenantID: "tenant-a", APIKeyID: key}
		req = req.WithContext(hubtypes.WithRequestContext(req.Context(), rc))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("principal %s: expected first request to succeed, got %d", key, rec.Code)
		}
	}
}

func TestRateLimiter_PublicTenantBypassesLimiting(t *testing.T) {
	rl := NewRateLimiter(0, 0) // would block every authenticated request
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = req.WithContext(hubtypes.WithRequestContext(req.Context(), hubtypes.RequestContext{TenantID: hubtypes.PublicTenantID}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected public tenant to bypass limiting, got %d", rec.Code)
	}
}

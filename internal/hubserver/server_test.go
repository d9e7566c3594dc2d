package hubserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomcat65/agent-hub/internal/hubtypes"
	"github.com/tomcat65/agent-hub/internal/tools"
)

func newTestHandler(t *testing.T) *MCPHandler {
	t.Helper()
	registry := tools.NewRegistry()
	registry.MustRegister(tools.Definition{
		Name:        "test.ping",
		Description: "returns a fixed payload",
	}, func(ctx context.Context, tc *tools.Context, raw json.RawMessage) (any, error) {
		return map[string]any{"pong": true}, nil
	})
	return &MCPHandler{Tools: registry, Log: zerolog.Nop()}
}

func withTenant(req *http.Request, tenantID string) *http.Request {
	return req.WithContext(hubtypes.WithRequestContext(req.Context(), hubtypes.RequestContext{TenantID: tenantID}))
}

func postMCP(t *testing.T, h *MCPHandler, body string, tenantID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	if tenantID != "" {
		req = withTenant(req, tenantID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMCPHandler_ToolsList(t *testing.T) {
	h := newTestHandler(t)
	rec := postMCP(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, "tenant-a")

	var resp JSONRPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	var result struct {
		Tools []tools.Descriptor `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(result.Tools) != 1 || result.Tools[0].Name != "test.ping" {
		t.Errorf("unexpected tool list: %+v", result.Tools)
	}
}

func TestMCPHandler_UnresolvedRequestContext(t *testing.T) {
	h := newTestHandler(t)
	rec := postMCP(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, "")

	var resp JSONRPCResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error == nil || resp.Error.Code != InternalError {
		t.Fatalf("expected InternalError, got %+v", resp.Error)
	}
}

func TestMCPHandler_UnknownMethod(t *testing.T) {
	h := newTestHandler(t)
	rec := postMCP(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/explode"}`, "tenant-a")

	var resp JSONRPCResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Fatalf("expected MethodNotFound, got %+v", resp.Error)
	}
}

func TestMCPHandler_ToolsCall_UnknownToolReturnsErrorResult(t *testing.T) {
	h := newTestHandler(t)
	rec := postMCP(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"missing.tool","arguments":{}}}`, "tenant-a")

	var resp JSONRPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("tool-execution failure must not be a JSON-RPC error object, got %+v", resp.Error)
	}
	var callResult tools.CallResult
	if err := json.Unmarshal(resp.Result, &callResult); err != nil {
		t.Fatalf("failed to decode call result: %v", err)
	}
	if !callResult.IsError || len(callResult.Content) == 0 {
		t.Fatalf("expected isError result with content, got %+v", callResult)
	}
	if got := rec.Header().Get("X-Mcp-Error-Kind"); got != "NotFound" {
		t.Errorf("expected X-Mcp-Error-Kind: NotFound, got %q", got)
	}
}

func TestMCPHandler_ToolsCall_Success(t *testing.T) {
	h := newTestHandler(t)
	rec := postMCP(t, h, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"test.ping","arguments":{}}}`, "tenant-a")

	var resp JSONRPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	var callResult tools.CallResult
	if err := json.Unmarshal(resp.Result, &callResult); err != nil {
		t.Fatalf("failed to decode call result: %v", err)
	}
	if len(callResult.Content) != 1 || callResult.IsError {
		t.Fatalf("unexpected call result: %+v", callResult)
	}
}

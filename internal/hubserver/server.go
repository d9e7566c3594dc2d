package hubserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomcat65/agent-hub/internal/agentreg"
	"github.com/tomcat65/agent-hub/internal/hubcache"
	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/hubtypes"
	"github.com/tomcat65/agent-hub/internal/memstore"
	"github.com/tomcat65/agent-hub/internal/router"
	"github.com/tomcat65/agent-hub/internal/sessionmgr"
	"github.com/tomcat65/agent-hub/internal/tools"
)

// MCPHandler answers the /mcp JSON-RPC endpoint: tools/list, tools/call,
// and ping. Unlike the teacher's Streamable HTTP server it has no
// initialize/session-id handshake — every request already carries its
// tenant identity via the TenantResolver, so there is nothing a session
// would add beyond what the request context already holds.
type MCPHandler struct {
	Store    *memstore.Store
	Cache    *hubcache.Cache
	Router   *router.Router
	Sessions *sessionmgr.Manager
	Agents   *agentreg.Registry
	Tools    *tools.Registry
	Log      zerolog.Logger
}

func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc, ok := hubtypes.FromContext(r.Context())
	if !ok {
		h.sendError(w, nil, InternalError, "request context not resolved")
		return
	}
	if rc.IsPublic() {
		h.sendError(w, nil, InvalidRequest, "authentication required")
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, nil, ParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != "2.0" {
		h.sendError(w, req.ID, InvalidRequest, "invalid jsonrpc version")
		return
	}

	logger := h.Log.With().
		Str("tenantId", rc.TenantID).
		Str("method", req.Method).
		Logger()

	switch req.Method {
	case "tools/list":
		h.sendResult(w, req.ID, map[string]any{"tools": h.Tools.List()})

	case "tools/call":
		var callReq tools.CallRequest
		if err := json.Unmarshal(req.Params, &callReq); err != nil {
			h.sendError(w, req.ID, InvalidParams, "invalid tool call parameters")
			return
		}

		tc := &tools.Context{
			RC:       rc,
			Store:    h.Store,
			Cache:    h.Cache,
			Router:   h.Router,
			Sessions: h.Sessions,
			Agents:   h.Agents,
			Log:      &logger,
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		result, err := h.Tools.Call(ctx, tc, callReq)
		if err != nil {
			h.sendToolError(w, r, req.ID, err)
			return
		}
		h.sendResult(w, req.ID, result)

	case "ping":
		h.sendResult(w, req.ID, map[string]any{"status": "ok"})

	default:
		h.sendError(w, req.ID, MethodNotFound, "method not found: "+req.Method)
	}
}

// sendToolError renders a tool-execution failure as a successful JSON-RPC
// response per spec.md's wire format: the envelope itself carries no
// error, result.isError is true, result.content holds a human-readable
// message, and the stable error kind rides the X-Mcp-Error-Kind header
// for automation that wants it without parsing content text. Only a
// genuine protocol-level failure (a non-HubError escaping a handler) is
// raised as a JSON-RPC error object instead.
func (h *MCPHandler) sendToolError(w http.ResponseWriter, r *http.Request, id json.RawMessage, err error) {
	he, ok := huberr.As(err)
	if !ok {
		h.sendError(w, id, InternalError, err.Error())
		return
	}
	if he.Kind == huberr.StorageError {
		he = he.WithData(map[string]any{"correlationId": hubtypes.CorrelationID(r.Context())})
	}
	w.Header().Set("X-Mcp-Error-Kind", string(he.Kind))
	h.sendResult(w, id, tools.CallResult{
		Content: []tools.ContentBlock{{Type: "text", Text: he.Message}},
		IsError: true,
	})
}

func (h *MCPHandler) sendError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	h.sendErrorRaw(w, id, code, message, nil)
}

func (h *MCPHandler) sendErrorRaw(w http.ResponseWriter, id json.RawMessage, code int, message string, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // JSON-RPC errors are still HTTP 200
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message, Data: data},
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *MCPHandler) sendResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: mustMarshal(result)}
	json.NewEncoder(w).Encode(resp)
}

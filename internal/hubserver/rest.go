package hubserver

import (
	"encoding/json"
	"net/http"

	"github.com/tomcat65/agent-hub/internal/hubtypes"
	"github.com/tomcat65/agent-hub/internal/memstore"
	"github.com/tomcat65/agent-hub/internal/router"
)

// writeJSON mirrors the teacher's httpapi.writeJSON helper.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId"`
}

func writeRESTError(w http.ResponseWriter, r *http.Request, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message, CorrelationID: hubtypes.CorrelationID(r.Context())})
}

// HandleHealth answers GET /health, an unauthenticated liveness probe —
// process is up, nothing more. GET /health.json is HandleHealthJSON.
func (h *MCPHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *MCPHandler) HandleHealthJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// HandleReady answers GET /ready: 503 until the MemoryStore is reachable.
func (h *MCPHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type aiMessageRequest struct {
	From           string   `json:"from"`
	To             string   `json:"to"`
	ToCapabilities []string `json:"toCapabilities"`
	Broadcast      bool     `json:"broadcast"`
	Content        string   `json:"content"`
	Type           string   `json:"type"`
	Priority       string   `json:"priority"`
}

// HandleAIMessagePost is the REST convenience wrapper around
// send_ai_message, sharing the Router directly rather than round-tripping
// through the tool dispatcher's JSON-RPC envelope.
func (h *MCPHandler) HandleAIMessagePost(w http.ResponseWriter, r *http.Request) {
	rc, _ := hubtypes.FromContext(r.Context())

	var body aiMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeRESTError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	from := body.From
	if from == "" {
		from = rc.AgentID
	}
	msgType := body.Type
	if msgType == "" {
		msgType = "text"
	}
	priority := body.Priority
	if priority == "" {
		priority = "normal"
	}

	result, err := h.Router.Send(r.Context(), rc.TenantID, router.Request{
		From:         from,
		To:           body.To,
		Capabilities: body.ToCapabilities,
		Broadcast:    body.Broadcast,
		ExcludeSelf:  true,
		Content:      body.Content,
		Type:         msgType,
		Priority:     priority,
	})
	if err != nil {
		writeHubError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messageIds": result.MessageIDs, "recipients": result.Recipients})
}

// HandleAIMessagesGet is the REST convenience wrapper around
// get_ai_messages, reading query params the way the teacher's sync pull
// endpoints read theirs (parseLimit-style defaults, no error on a bad
// value — just fall back).
func (h *MCPHandler) HandleAIMessagesGet(w http.ResponseWriter, r *http.Request, agentID string) {
	rc, _ := hubtypes.FromContext(r.Context())
	q := r.URL.Query()

	opts := memstore.ListMessagesOpts{
		UnreadOnly:    q.Get("unreadOnly") == "true",
		MarkAsRead:    q.Get("markAsRead") == "true",
		Limit:         parseLimit(q.Get("limit"), 100, 500),
		CallerAgentID: rc.AgentID,
	}
	if since := q.Get("sinceId"); since != "" {
		opts.SinceID = since
	}

	messages, err := h.Store.ListMessages(r.Context(), rc.TenantID, agentID, opts)
	if err != nil {
		writeHubError(w, r, err)
		return
	}
	unread := 0
	for _, m := range messages {
		if m.ReadAt == nil {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages, "total": len(messages), "unread": unread})
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// HandleSystemStatus answers GET /system/status: component health plus the
// coarse counters spec.md's supplemented feature set calls for — connected
// agents, open sessions, unread messages, cache hit ratio.
func (h *MCPHandler) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	rc, _ := hubtypes.FromContext(r.Context())

	storeHealthy := h.Store.Ping(r.Context()) == nil
	stats, err := h.Store.Stats(r.Context(), rc.TenantID)
	if err != nil {
		writeHubError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"correlationId":   hubtypes.CorrelationID(r.Context()),
		"storeHealthy":    storeHealthy,
		"connectedAgents": len(h.Agents.ConnectedAgentIDs(rc.TenantID)),
		"openSessions":    stats.OpenSessions,
		"unreadMessages":  stats.UnreadMessages,
		"cacheHitRatio":   h.Cache.HitRatio(),
	})
}

// HandleWebSocket upgrades GET /ws to a long-lived agent connection. The
// agent identity must already be resolved onto the request context (via
// X-Agent-Id, since a raw WebSocket upgrade carries no JSON-RPC body to
// read an agentId argument from).
func (h *MCPHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	rc, _ := hubtypes.FromContext(r.Context())
	if err := h.Agents.ServeWS(w, r, rc); err != nil {
		writeHubError(w, r, err)
	}
}

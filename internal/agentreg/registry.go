package agentreg

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/hubtypes"
	"github.com/tomcat65/agent-hub/internal/memstore"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Registry is the AgentRegistry (C5): the durable Agent directory backed by
// memstore, plus the in-memory Hub of live WebSocket connections that lets a
// Router push notifications without a store round trip.
type Registry struct {
	store *memstore.Store
	hub   *Hub
	ttl   time.Duration
	log   zerolog.Logger
}

// New constructs a Registry and starts its Hub's dispatch loop. ttl is how
// long an agent may go untouched before SweepStale flips it to offline.
func New(store *memstore.Store, ttl time.Duration, log zerolog.Logger) *Registry {
	hub := NewHub(log)
	go hub.Run()
	return &Registry{store: store, hub: hub, ttl: ttl, log: log.With().Str("component", "agentreg").Logger()}
}

// Upsert registers or updates an agent's capabilities and metadata,
// delegating the durable write to memstore.
func (r *Registry) Upsert(ctx context.Context, tenantID string, agent memstore.Agent) (*memstore.Agent, error) {
	return r.store.UpsertAgent(ctx, tenantID, agent)
}

// List returns every agent registered for a tenant.
func (r *Registry) List(ctx context.Context, tenantID string) ([]memstore.Agent, error) {
	return r.store.ListAgents(ctx, tenantID)
}

// Get fetches a single agent, or NotFound if it has never registered.
func (r *Registry) Get(ctx context.Context, tenantID, agentID string) (*memstore.Agent, error) {
	return r.store.GetAgent(ctx, tenantID, agentID)
}

// Touch records activity from an agent, flipping a stale offline entry back
// to online. Call on every tool invocation attributable to an agent.
func (r *Registry) Touch(ctx context.Context, tenantID, agentID string) error {
	return r.store.TouchAgent(ctx, tenantID, agentID)
}

// Close shuts down the Hub's dispatch loop and every open connection. Call
// once during graceful shutdown.
func (r *Registry) Close() {
	r.hub.Close()
}

// SweepStale flips agents untouched past the configured TTL to offline.
// Intended to run on a periodic ticker from the composition root.
func (r *Registry) SweepStale(ctx context.Context) (int64, error) {
	n, err := r.store.MarkStaleOffline(ctx, time.Now().Add(-r.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Info().Int64("count", n).Msg("marked stale agents offline")
	}
	return n, nil
}

// ConnectedAgentIDs returns the agentIDs with at least one open connection
// for a tenant, used by GET /system/status for its connected-agents count.
func (r *Registry) ConnectedAgentIDs(tenantID string) []string {
	r.hub.mu.RLock()
	defer r.hub.mu.RUnlock()
	var ids []string
	seen := map[string]bool{}
	for c := range r.hub.clients {
		if c.tenantID == tenantID && !seen[c.agentID] {
			seen[c.agentID] = true
			ids = append(ids, c.agentID)
		}
	}
	return ids
}

// Notification is the payload pushed over an agent's WebSocket when a new
// message lands for it: a notification type ("message"), the message id,
// sender and content. It is a summary, not the full row get_ai_messages
// returns (no priority or readAt), and the Router leaves CreatedAt at its
// zero value.
type Notification struct {
	Type      string    `json:"type"`
	MessageID string    `json:"messageId"`
	From      string    `json:"from"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Push delivers a notification to a single agent's open connections, if
// any. A miss (no open connection) is not an error — the message already
// landed in storage and the agent will see it on its next poll.
func (r *Registry) Push(tenantID, agentID string, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to marshal notification")
		return
	}
	r.hub.Push(tenantID, agentID, payload)
}

// Broadcast delivers a notification to every one of the given agents that
// currently has an open connection within tenantID.
func (r *Registry) Broadcast(tenantID string, agentIDs []string, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to marshal notification")
		return
	}
	r.hub.BroadcastTenant(tenantID, agentIDs, payload)
}

// ServeWS upgrades an HTTP request to a WebSocket bound to the caller's
// resolved identity and registers it with the Hub. rc.AgentID must already
// be set by the caller (the ws route requires an X-Agent-Id header or
// equivalent, validated before this is reached).
func (r *Registry) ServeWS(w http.ResponseWriter, req *http.Request, rc hubtypes.RequestContext) error {
	if rc.AgentID == "" {
		return huberr.New(huberr.InvalidArgument, "agent identity is required to open a websocket", nil)
	}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return huberr.New(huberr.StorageError, "websocket upgrade failed: "+err.Error(), nil)
	}
	r.hub.Serve(conn, rc.TenantID, rc.AgentID)
	return nil
}

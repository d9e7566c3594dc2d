package memstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

// AgentStatus is one of the four lifecycle states an Agent row may hold.
type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentOffline AgentStatus = "offline"
	AgentBusy    AgentStatus = "busy"
	AgentError   AgentStatus = "error"
)

// Agent mirrors the Agent entity.
type Agent struct {
	ID           string
	Name         string
	Capabilities []string
	Status       AgentStatus
	LastSeen     time.Time
	Metadata     map[string]any
}

// UpsertAgent registers or updates an agent's declared identity. Unlike
// entities, agent id is client-chosen (or bridge-generated), so this is a
// plain upsert rather than a name-uniqueness check.
func (s *Store) UpsertAgent(ctx context.Context, tenantID string, a Agent) (*Agent, error) {
	if a.ID == "" || a.Name == "" {
		return nil, huberr.Invalidf("id", "agent id and name are required")
	}
	if a.Status == "" {
		a.Status = AgentOnline
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		metadata = []byte(`{}`)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO agent (tenant_id, id, name, capabilities, status, last_seen, metadata)
		VALUES ($1, $2, $3, $4, $5, now(), $6)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			capabilities = EXCLUDED.capabilities,
			status = EXCLUDED.status,
			last_seen = now(),
			metadata = EXCLUDED.metadata
	`, tenantID, a.ID, a.Name, a.Capabilities, string(a.Status), metadata)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "upsert agent failed: "+err.Error(), nil)
	}
	a.LastSeen = time.Now()
	return &a, nil
}

// ListAgents returns every agent registered for the tenant, ordered by name
// for deterministic output.
func (s *Store) ListAgents(ctx context.Context, tenantID string) ([]Agent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, capabilities, status, last_seen, metadata
		FROM agent WHERE tenant_id = $1 ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "list agents failed: "+err.Error(), nil)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		var status string
		var metadata []byte
		if err := rows.Scan(&a.ID, &a.Name, &a.Capabilities, &status, &a.LastSeen, &metadata); err != nil {
			return nil, huberr.New(huberr.StorageError, "scan agent failed: "+err.Error(), nil)
		}
		a.Status = AgentStatus(status)
		_ = json.Unmarshal(metadata, &a.Metadata)
		agents = append(agents, a)
	}
	return agents, nil
}

// GetAgent looks up a single agent by id within the tenant.
func (s *Store) GetAgent(ctx context.Context, tenantID, agentID string) (*Agent, error) {
	var a Agent
	var status string
	var metadata []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, capabilities, status, last_seen, metadata
		FROM agent WHERE tenant_id = $1 AND id = $2
	`, tenantID, agentID).Scan(&a.ID, &a.Name, &a.Capabilities, &status, &a.LastSeen, &metadata)
	if err == pgx.ErrNoRows {
		return nil, huberr.New(huberr.NotFound, "agent not found: "+agentID, map[string]any{"agentId": agentID})
	}
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "get agent failed: "+err.Error(), nil)
	}
	a.Status = AgentStatus(status)
	_ = json.Unmarshal(metadata, &a.Metadata)
	return &a, nil
}

// SetAgentIdentity updates an existing agent's display name and metadata
// without touching its declared capabilities or status, for clients that
// want to relabel an identity already registered via UpsertAgent.
func (s *Store) SetAgentIdentity(ctx context.Context, tenantID, agentID, name string, metadata map[string]any) (*Agent, error) {
	meta, err := json.Marshal(metadata)
	if err != nil {
		meta = []byte(`{}`)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE agent SET name = $3, metadata = $4 WHERE tenant_id = $1 AND id = $2
	`, tenantID, agentID, name, meta)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "set agent identity failed: "+err.Error(), nil)
	}
	if tag.RowsAffected() == 0 {
		return nil, huberr.New(huberr.NotFound, "agent not found: "+agentID, map[string]any{"agentId": agentID})
	}
	return s.GetAgent(ctx, tenantID, agentID)
}

// TouchAgent updates lastSeen, called on every tool call whose
// RequestContext carries a known agentId.
func (s *Store) TouchAgent(ctx context.Context, tenantID, agentID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE agent SET last_seen = now(), status = CASE WHEN status = 'offline' THEN 'online' ELSE status END
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, agentID)
	if err != nil {
		return huberr.New(huberr.StorageError, "touch agent failed: "+err.Error(), nil)
	}
	return nil
}

// MarkStaleOffline transitions agents whose lastSeen predates the cutoff to
// offline. Stale entries are never deleted.
func (s *Store) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE agent SET status = 'offline'
		WHERE status != 'offline' AND last_seen < $1
	`, cutoff)
	if err != nil {
		return 0, huberr.New(huberr.StorageError, "mark stale offline failed: "+err.Error(), nil)
	}
	return tag.RowsAffected(), nil
}

package memstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

// Session mirrors the Session entity. At most one row per
// (tenantId, agentId, projectId) has ClosedAt == nil (INV-S), enforced by
// session_open_singleton_idx.
type Session struct {
	ProjectID string
	AgentID   string
	OpenedAt  time.Time
	ClosedAt  *time.Time
}

// FindOpenSession returns the currently open session for
// (tenantId, agentId, projectId), or nil if none is open.
func (s *Store) FindOpenSession(ctx context.Context, tenantID, agentID, projectID string) (*Session, error) {
	var sess Session
	sess.AgentID = agentID
	sess.ProjectID = projectID
	err := s.pool.QueryRow(ctx, `
		SELECT opened_at FROM session
		WHERE tenant_id = $1 AND agent_id = $2 AND project_id = $3 AND closed_at IS NULL
	`, tenantID, agentID, projectID).Scan(&sess.OpenedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "find open session failed: "+err.Error(), nil)
	}
	return &sess, nil
}

// OpenSession opens a new session. The unique partial index guards against
// a racing duplicate open; when the insert fails, OpenSession re-reads via
// FindOpenSession and returns the session that won, if there is one.
func (s *Store) OpenSession(ctx context.Context, tenantID, agentID, projectID string) (*Session, error) {
	var openedAt time.Time
	err := s.pool.QueryRow(ctx, `
		INSERT INTO session (tenant_id, project_id, agent_id, opened_at)
		VALUES ($1, $2, $3, now())
		RETURNING opened_at
	`, tenantID, projectID, agentID).Scan(&openedAt)
	if err != nil {
		if existing, findErr := s.FindOpenSession(ctx, tenantID, agentID, projectID); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, huberr.New(huberr.StorageError, "open session failed: "+err.Error(), nil)
	}
	return &Session{ProjectID: projectID, AgentID: agentID, OpenedAt: openedAt}, nil
}

// CloseSession closes the open session for (tenantId, agentId, projectId),
// a no-op if none is open.
func (s *Store) CloseSession(ctx context.Context, tenantID, agentID, projectID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE session SET closed_at = now()
		WHERE tenant_id = $1 AND agent_id = $2 AND project_id = $3 AND closed_at IS NULL
	`, tenantID, agentID, projectID)
	if err != nil {
		return huberr.New(huberr.StorageError, "close session failed: "+err.Error(), nil)
	}
	return nil
}

// Handoff mirrors the Handoff entity.
type Handoff struct {
	ID               string
	ProjectID        string
	AuthoringAgentID string
	Summary          string
	OpenItems        []string
	CreatedAt        time.Time
	ConsumedAt       *time.Time
}

// WriteHandoff records the note an end_session call leaves for the next
// begin_session on the same project.
func (s *Store) WriteHandoff(ctx context.Context, tenantID string, h Handoff) (*Handoff, error) {
	h.ID = uuid.New().String()
	items, err := json.Marshal(h.OpenItems)
	if err != nil {
		items = []byte(`[]`)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO handoff (tenant_id, id, project_id, authoring_agent_id, summary, open_items)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tenantID, h.ID, h.ProjectID, h.AuthoringAgentID, h.Summary, items)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "write handoff failed: "+err.Error(), nil)
	}
	h.CreatedAt = time.Now()
	return &h, nil
}

// LastHandoff returns the most recently written handoff for a project,
// regardless of consumption state, used to seed a context bundle's WARM
// tier with the prior session's summary even after that handoff has
// already been consumed by a begin_session call.
func (s *Store) LastHandoff(ctx context.Context, tenantID, projectID string) (*Handoff, error) {
	var h Handoff
	var items []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, authoring_agent_id, summary, open_items, created_at, consumed_at
		FROM handoff
		WHERE tenant_id = $1 AND project_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, projectID).Scan(&h.ID, &h.ProjectID, &h.AuthoringAgentID, &h.Summary, &items, &h.CreatedAt, &h.ConsumedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "last handoff failed: "+err.Error(), nil)
	}
	_ = json.Unmarshal(items, &h.OpenItems)
	return &h, nil
}

// PeekUnconsumedHandoff returns the most recent unconsumed handoff for a
// project without claiming it, used by get_agent_context — unlike
// begin_session, a context-bundle read must never have the side effect of
// consuming a handoff.
func (s *Store) PeekUnconsumedHandoff(ctx context.Context, tenantID, projectID string) (*Handoff, error) {
	var h Handoff
	var items []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, authoring_agent_id, summary, open_items, created_at, consumed_at
		FROM handoff
		WHERE tenant_id = $1 AND project_id = $2 AND consumed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, projectID).Scan(&h.ID, &h.ProjectID, &h.AuthoringAgentID, &h.Summary, &items, &h.CreatedAt, &h.ConsumedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "peek handoff failed: "+err.Error(), nil)
	}
	_ = json.Unmarshal(items, &h.OpenItems)
	return &h, nil
}

// ConsumeHandoff atomically claims the most recent unconsumed handoff for a
// project via a conditional update, enforcing INV-H under concurrent
// begin_session calls: only the caller whose UPDATE actually matches a row
// (consumed_at IS NULL at the moment of the statement) gets a non-nil
// result back.
func (s *Store) ConsumeHandoff(ctx context.Context, tenantID, projectID string) (*Handoff, error) {
	var h Handoff
	var items []byte
	err := s.pool.QueryRow(ctx, `
		UPDATE handoff SET consumed_at = now()
		WHERE id = (
			SELECT id FROM handoff
			WHERE tenant_id = $1 AND project_id = $2 AND consumed_at IS NULL
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, project_id, authoring_agent_id, summary, open_items, created_at, consumed_at
	`, tenantID, projectID).Scan(&h.ID, &h.ProjectID, &h.AuthoringAgentID, &h.Summary, &items, &h.CreatedAt, &h.ConsumedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "consume handoff failed: "+err.Error(), nil)
	}
	_ = json.Unmarshal(items, &h.OpenItems)
	return &h, nil
}

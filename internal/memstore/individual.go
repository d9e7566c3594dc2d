package memstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

// Learning is a durable, agent-private note used to seed later context
// bundles.
type Learning struct {
	ID         string
	AgentID    string
	Context    string
	Lesson     string
	Confidence float64
	CreatedAt  time.Time
}

// RecordLearning appends a Learning row; learnings are create-and-retain,
// never mutated.
func (s *Store) RecordLearning(ctx context.Context, tenantID string, l Learning) (*Learning, error) {
	if l.Confidence < 0 || l.Confidence > 1 {
		return nil, huberr.Invalidf("confidence", "confidence must be within [0,1]")
	}
	l.ID = uuid.New().String()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO learning (tenant_id, id, agent_id, context, lesson, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tenantID, l.ID, l.AgentID, l.Context, l.Lesson, l.Confidence)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "record learning failed: "+err.Error(), nil)
	}
	l.CreatedAt = time.Now()
	return &l, nil
}

// TopLearnings returns an agent's learnings ranked by recency × confidence,
// used to populate the WARM tier of a context bundle.
func (s *Store) TopLearnings(ctx context.Context, tenantID, agentID string, limit int) ([]Learning, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, agent_id, context, lesson, confidence, created_at
		FROM learning
		WHERE tenant_id = $1 AND agent_id = $2
		ORDER BY confidence * (1.0 / (1.0 + EXTRACT(EPOCH FROM (now() - created_at)) / 86400.0)) DESC, created_at DESC
		LIMIT $3
	`, tenantID, agentID, limit)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "top learnings failed: "+err.Error(), nil)
	}
	defer rows.Close()

	var learnings []Learning
	for rows.Next() {
		var l Learning
		if err := rows.Scan(&l.ID, &l.AgentID, &l.Context, &l.Lesson, &l.Confidence, &l.CreatedAt); err != nil {
			return nil, huberr.New(huberr.StorageError, "scan learning failed: "+err.Error(), nil)
		}
		learnings = append(learnings, l)
	}
	return learnings, nil
}

// SetPreferences writes last-writer-wins key/value pairs for an agent.
func (s *Store) SetPreferences(ctx context.Context, tenantID, agentID string, prefs map[string]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return huberr.New(huberr.StorageError, "could not start transaction", nil)
	}
	defer tx.Rollback(ctx)

	for k, v := range prefs {
		value, err := json.Marshal(v)
		if err != nil {
			return huberr.Invalidf("preferences."+k, "value is not JSON-serializable")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO preference (tenant_id, agent_id, key, value, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (tenant_id, agent_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		`, tenantID, agentID, k, value); err != nil {
			return huberr.New(huberr.StorageError, "set preference failed: "+err.Error(), nil)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return huberr.New(huberr.StorageError, "commit failed: "+err.Error(), nil)
	}
	return nil
}

// GetPreferences returns every preference key/value pair for an agent.
func (s *Store) GetPreferences(ctx context.Context, tenantID, agentID string) (map[string]any, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, value FROM preference WHERE tenant_id = $1 AND agent_id = $2
	`, tenantID, agentID)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "get preferences failed: "+err.Error(), nil)
	}
	defer rows.Close()

	prefs := make(map[string]any)
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, huberr.New(huberr.StorageError, "scan preference failed: "+err.Error(), nil)
		}
		var v any
		_ = json.Unmarshal(raw, &v)
		prefs[key] = v
	}
	return prefs, nil
}

// IndividualMemory bundles an agent's private state: learnings and
// preferences, used by get_individual_memory and by the WARM context tier.
type IndividualMemory struct {
	Learnings   []Learning
	Preferences map[string]any
}

// ReadIndividualMemory assembles an agent's private memory.
func (s *Store) ReadIndividualMemory(ctx context.Context, tenantID, agentID string) (*IndividualMemory, error) {
	learnings, err := s.TopLearnings(ctx, tenantID, agentID, 50)
	if err != nil {
		return nil, err
	}
	prefs, err := s.GetPreferences(ctx, tenantID, agentID)
	if err != nil {
		return nil, err
	}
	return &IndividualMemory{Learnings: learnings, Preferences: prefs}, nil
}

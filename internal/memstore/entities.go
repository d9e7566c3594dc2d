package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

// EntityInput is one element of an upsertEntities call.
type EntityInput struct {
	Name string
	Type string
}

// Entity is a knowledge-graph node, always scoped to the tenant that owns it.
type Entity struct {
	ID        string
	Name      string
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertResult reports which rows were newly created versus already present,
// satisfying the idempotent-upsert round-trip law.
type UpsertResult struct {
	CreatedIDs  []string
	ExistingIDs []string
}

// UpsertEntities is idempotent on (tenantId, type, name): a duplicate name
// within a type returns the existing row's id instead of erroring (INV-E).
func (s *Store) UpsertEntities(ctx context.Context, tenantID string, entities []EntityInput) (*UpsertResult, error) {
	if len(entities) == 0 {
		return &UpsertResult{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "could not start transaction", nil)
	}
	defer tx.Rollback(ctx)

	result := &UpsertResult{}
	for _, e := range entities {
		if e.Name == "" || e.Type == "" {
			return nil, huberr.Invalidf("entities[].name", "name and type are required")
		}

		id := uuid.New().String()
		var returnedID string
		var inserted bool
		row := tx.QueryRow(ctx, `
			INSERT INTO entity (tenant_id, id, name, type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tenant_id, type, name) DO UPDATE SET type = entity.type
			RETURNING id, (xmax = 0) AS inserted
		`, tenantID, id, e.Name, e.Type)
		if err := row.Scan(&returnedID, &inserted); err != nil {
			return nil, huberr.New(huberr.StorageError, "upsert entity failed: "+err.Error(), nil)
		}

		if inserted {
			result.CreatedIDs = append(result.CreatedIDs, returnedID)
		} else {
			result.ExistingIDs = append(result.ExistingIDs, returnedID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, huberr.New(huberr.StorageError, "commit failed: "+err.Error(), nil)
	}
	return result, nil
}

// AddObservations appends zero or more observation rows to an existing
// entity, looked up by name within the tenant. Observations are never
// mutated once written.
func (s *Store) AddObservations(ctx context.Context, tenantID, entityName string, observations []string) error {
	var entityID string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM entity WHERE tenant_id = $1 AND name = $2
	`, tenantID, entityName).Scan(&entityID)
	if err == pgx.ErrNoRows {
		return huberr.New(huberr.NotFound, "entity not found: "+entityName, map[string]any{"entityName": entityName})
	}
	if err != nil {
		return huberr.New(huberr.StorageError, "lookup failed: "+err.Error(), nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return huberr.New(huberr.StorageError, "could not start transaction", nil)
	}
	defer tx.Rollback(ctx)

	for _, content := range observations {
		if _, err := tx.Exec(ctx, `
			INSERT INTO observation (tenant_id, id, entity_id, content)
			VALUES ($1, $2, $3, $4)
		`, tenantID, uuid.New().String(), entityID, content); err != nil {
			return huberr.New(huberr.StorageError, "insert observation failed: "+err.Error(), nil)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return huberr.New(huberr.StorageError, "commit failed: "+err.Error(), nil)
	}

	if s.vector != nil {
		for _, content := range observations {
			if err := s.vector.Upsert(ctx, tenantID, entityID, content); err != nil {
				s.log.Warn().Err(err).Str("tenantId", tenantID).Msg("vector upsert failed, continuing without semantic index update")
			}
		}
	}
	return nil
}

// RelationInput is one element of a createRelations call.
type RelationInput struct {
	FromName     string
	ToName       string
	RelationType string
}

// Relation is a directed typed edge between two entities of the same tenant
// (INV-R).
type Relation struct {
	ID           string
	FromEntityID string
	ToEntityID   string
	RelationType string
	CreatedAt    time.Time
}

// CreateRelations is idempotent on (tenantId, from, to, type); both
// endpoints are resolved and verified to belong to the calling tenant.
func (s *Store) CreateRelations(ctx context.Context, tenantID string, triples []RelationInput) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "could not start transaction", nil)
	}
	defer tx.Rollback(ctx)

	var ids []string
	for _, t := range triples {
		var fromID, toID string
		if err := tx.QueryRow(ctx, `SELECT id FROM entity WHERE tenant_id=$1 AND name=$2`, tenantID, t.FromName).Scan(&fromID); err != nil {
			return nil, huberr.New(huberr.NotFound, "relation source entity not found: "+t.FromName, nil)
		}
		if err := tx.QueryRow(ctx, `SELECT id FROM entity WHERE tenant_id=$1 AND name=$2`, tenantID, t.ToName).Scan(&toID); err != nil {
			return nil, huberr.New(huberr.NotFound, "relation target entity not found: "+t.ToName, nil)
		}

		id := uuid.New().String()
		var returnedID string
		err := tx.QueryRow(ctx, `
			INSERT INTO relation (tenant_id, id, from_entity_id, to_entity_id, relation_type)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (tenant_id, from_entity_id, to_entity_id, relation_type) DO UPDATE SET relation_type = relation.relation_type
			RETURNING id
		`, tenantID, id, fromID, toID, t.RelationType).Scan(&returnedID)
		if err != nil {
			return nil, huberr.New(huberr.StorageError, "create relation failed: "+err.Error(), nil)
		}
		ids = append(ids, returnedID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, huberr.New(huberr.StorageError, "commit failed: "+err.Error(), nil)
	}
	return ids, nil
}

// GraphStats summarizes a readGraph response for clients that want counts
// without the full payload.
type GraphStats struct {
	EntityCount   int
	RelationCount int
}

// GraphResult is the full tenant-scoped knowledge graph.
type GraphResult struct {
	Entities  []Entity
	Relations []Relation
	Stats     GraphStats
}

// ReadGraph returns only the calling tenant's entities and relations,
// ordered deterministically by (createdAt, id) so repeated calls against an
// unchanged database are byte-identical.
func (s *Store) ReadGraph(ctx context.Context, tenantID string) (*GraphResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, created_at, updated_at FROM entity
		WHERE tenant_id = $1 ORDER BY created_at, id
	`, tenantID)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "read entities failed: "+err.Error(), nil)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, huberr.New(huberr.StorageError, "scan entity failed: "+err.Error(), nil)
		}
		entities = append(entities, e)
	}

	relRows, err := s.pool.Query(ctx, `
		SELECT id, from_entity_id, to_entity_id, relation_type, created_at FROM relation
		WHERE tenant_id = $1 ORDER BY created_at, id
	`, tenantID)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "read relations failed: "+err.Error(), nil)
	}
	defer relRows.Close()

	var relations []Relation
	for relRows.Next() {
		var r Relation
		if err := relRows.Scan(&r.ID, &r.FromEntityID, &r.ToEntityID, &r.RelationType, &r.CreatedAt); err != nil {
			return nil, huberr.New(huberr.StorageError, "scan relation failed: "+err.Error(), nil)
		}
		relations = append(relations, r)
	}

	return &GraphResult{
		Entities:  entities,
		Relations: relations,
		Stats:     GraphStats{EntityCount: len(entities), RelationCount: len(relations)},
	}, nil
}

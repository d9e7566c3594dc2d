// Package memstore is the tenant-scoped MemoryStore: persistence of
// entities, relations, observations, messages, agents, learnings,
// preferences, sessions, and handoffs, every per-tenant query filtered by
// tenant_id at the SQL layer. MarkStaleOffline is the one cross-tenant
// statement: its offline sweep covers every tenant's agents.
package memstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ScoredEntityID is one hit from a VectorStore similarity query.
type ScoredEntityID struct {
	EntityID string
	Score    float64
}

// VectorStore is the optional semantic-search capability. Its absence must
// be handled at every call site; Store.searchSemantic degrades to an empty
// result set with ModeUsed "none" rather than erroring.
type VectorStore interface {
	Upsert(ctx context.Context, tenantID, entityID, text string) error
	QuerySimilar(ctx context.Context, tenantID, query string, limit int) ([]ScoredEntityID, error)
}

// Store is the MemoryStore implementation: a pgx pool plus an optional
// vector sidecar. It carries no per-request state — every method takes the
// tenant id explicitly, so a single Store is shared by every request the
// way a single *pgxpool.Pool is.
type Store struct {
	pool   *pgxpool.Pool
	vector VectorStore // nil when VECTOR_STORE_URL is unset
	log    zerolog.Logger
}

// New constructs a Store. vector may be nil.
func New(pool *pgxpool.Pool, vector VectorStore, log zerolog.Logger) *Store {
	return &Store{pool: pool, vector: vector, log: log.With().Str("component", "memstore").Logger()}
}

// Ping reports whether the primary store is reachable, used by /ready.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

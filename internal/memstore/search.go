package memstore

import (
	"context"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

// SearchMode selects one of the four search strategies described in the
// component design.
type SearchMode string

const (
	SearchExact    SearchMode = "exact"
	SearchSemantic SearchMode = "semantic"
	SearchGraph    SearchMode = "graph"
	SearchHybrid   SearchMode = "hybrid"
)

// graphSearchDepth bounds relation traversal; the specification fixes this
// at 2 hops from a seed match.
const graphSearchDepth = 2

// SearchResult is one matched entity, optionally carrying a vector score.
type SearchResult struct {
	EntityID string
	Name     string
	Type     string
	Score    float64 // 0 for pure exact/graph matches
}

// SearchOutcome reports both the hits and which mode actually produced them
// — "mode_used" degrades to "none" when semantic search was requested but
// no VectorStore is configured.
type SearchOutcome struct {
	Results []SearchResult
	ModeUsed string
}

// SearchEntities dispatches to the requested mode. Every branch applies the
// tenant filter at the SQL layer; a VectorStore's opinion is always
// intersected with the tenant's own entity ids before being trusted (INV-T
// holds even for the advisory semantic re-ranker).
func (s *Store) SearchEntities(ctx context.Context, tenantID, query string, mode SearchMode, limit int) (*SearchOutcome, error) {
	if limit <= 0 {
		limit = 20
	}

	switch mode {
	case SearchExact, "":
		r, err := s.searchExact(ctx, tenantID, query, limit)
		if err != nil {
			return nil, err
		}
		return &SearchOutcome{Results: r, ModeUsed: string(SearchExact)}, nil

	case SearchSemantic:
		return s.searchSemantic(ctx, tenantID, query, limit)

	case SearchGraph:
		r, err := s.searchGraph(ctx, tenantID, query, limit)
		if err != nil {
			return nil, err
		}
		return &SearchOutcome{Results: r, ModeUsed: string(SearchGraph)}, nil

	case SearchHybrid:
		return s.searchHybrid(ctx, tenantID, query, limit)

	default:
		return nil, huberr.Invalidf("mode", "unknown search mode: "+string(mode))
	}
}

func (s *Store) searchExact(ctx context.Context, tenantID, query string, limit int) ([]SearchResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT e.id, e.name, e.type
		FROM entity e
		LEFT JOIN observation o ON o.entity_id = e.id AND o.tenant_id = e.tenant_id
		WHERE e.tenant_id = $1
		  AND (e.name ILIKE '%' || $2 || '%' OR o.content ILIKE '%' || $2 || '%')
		ORDER BY e.name
		LIMIT $3
	`, tenantID, query, limit)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "exact search failed: "+err.Error(), nil)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.EntityID, &r.Name, &r.Type); err != nil {
			return nil, huberr.New(huberr.StorageError, "scan search result failed: "+err.Error(), nil)
		}
		results = append(results, r)
	}
	return results, nil
}

// searchSemantic degrades to an empty set with mode_used "none" whenever no
// VectorStore is configured, or when the vector query itself fails — read
// failures on the vector store are never propagated to the client.
func (s *Store) searchSemantic(ctx context.Context, tenantID, query string, limit int) (*SearchOutcome, error) {
	if s.vector == nil {
		return &SearchOutcome{Results: nil, ModeUsed: "none"}, nil
	}

	scored, err := s.vector.QuerySimilar(ctx, tenantID, query, limit)
	if err != nil {
		s.log.Warn().Err(err).Str("tenantId", tenantID).Msg("vector query failed, degrading to none")
		return &SearchOutcome{Results: nil, ModeUsed: "none"}, nil
	}

	results, err := s.intersectWithTenant(ctx, tenantID, scored)
	if err != nil {
		return nil, err
	}
	return &SearchOutcome{Results: results, ModeUsed: string(SearchSemantic)}, nil
}

// intersectWithTenant re-validates every vector hit against this tenant's
// own entity table, so a vector store bug (or a stale/foreign index) can
// never leak a cross-tenant entity id into a result.
func (s *Store) intersectWithTenant(ctx context.Context, tenantID string, scored []ScoredEntityID) ([]SearchResult, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	scoreByID := make(map[string]float64, len(scored))
	ids := make([]string, 0, len(scored))
	for _, sc := range scored {
		scoreByID[sc.EntityID] = sc.Score
		ids = append(ids, sc.EntityID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type FROM entity WHERE tenant_id = $1 AND id = ANY($2)
	`, tenantID, ids)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "tenant intersection failed: "+err.Error(), nil)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.EntityID, &r.Name, &r.Type); err != nil {
			return nil, huberr.New(huberr.StorageError, "scan entity failed: "+err.Error(), nil)
		}
		r.Score = scoreByID[r.EntityID]
		results = append(results, r)
	}
	return results, nil
}

// searchGraph finds seed matches by exact substring, then walks outgoing
// relations breadth-first up to graphSearchDepth hops, tracking visited ids
// so a cyclic graph terminates.
func (s *Store) searchGraph(ctx context.Context, tenantID, query string, limit int) ([]SearchResult, error) {
	seeds, err := s.searchExact(ctx, tenantID, query, limit)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]SearchResult, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		visited[seed.EntityID] = seed
		frontier = append(frontier, seed.EntityID)
	}

	for depth := 0; depth < graphSearchDepth && len(frontier) > 0 && len(visited) < limit; depth++ {
		rows, err := s.pool.Query(ctx, `
			SELECT e.id, e.name, e.type
			FROM relation r
			JOIN entity e ON e.id = r.to_entity_id AND e.tenant_id = r.tenant_id
			WHERE r.tenant_id = $1 AND r.from_entity_id = ANY($2)
		`, tenantID, frontier)
		if err != nil {
			return nil, huberr.New(huberr.StorageError, "graph walk failed: "+err.Error(), nil)
		}

		var next []string
		for rows.Next() {
			var r SearchResult
			if err := rows.Scan(&r.EntityID, &r.Name, &r.Type); err != nil {
				rows.Close()
				return nil, huberr.New(huberr.StorageError, "scan graph hop failed: "+err.Error(), nil)
			}
			if _, seen := visited[r.EntityID]; !seen {
				visited[r.EntityID] = r
				next = append(next, r.EntityID)
			}
		}
		rows.Close()
		frontier = next
	}

	results := make([]SearchResult, 0, len(visited))
	for _, r := range visited {
		results = append(results, r)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// searchHybrid unions exact and semantic hits, re-ranking by exact boost
// plus vector score, and reports mode_used "hybrid" even when the vector
// half degraded to empty — the exact half still ran.
func (s *Store) searchHybrid(ctx context.Context, tenantID, query string, limit int) (*SearchOutcome, error) {
	exact, err := s.searchExact(ctx, tenantID, query, limit)
	if err != nil {
		return nil, err
	}
	semantic, err := s.searchSemantic(ctx, tenantID, query, limit)
	if err != nil {
		return nil, err
	}

	const exactBoost = 1.0
	byID := make(map[string]*SearchResult)
	for _, r := range exact {
		rc := r
		rc.Score += exactBoost
		byID[rc.EntityID] = &rc
	}
	for _, r := range semantic.Results {
		if existing, ok := byID[r.EntityID]; ok {
			existing.Score += r.Score
			continue
		}
		rc := r
		byID[rc.EntityID] = &rc
	}

	merged := make([]SearchResult, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, *r)
	}
	sortSearchResultsByScoreDesc(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return &SearchOutcome{Results: merged, ModeUsed: string(SearchHybrid)}, nil
}

func sortSearchResultsByScoreDesc(results []SearchResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0; j-- {
			a, b := results[j], results[j-1]
			if a.Score < b.Score || (a.Score == b.Score && a.EntityID >= b.EntityID) {
				break
			}
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

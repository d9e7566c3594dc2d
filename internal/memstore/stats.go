package memstore

import "context"

// TenantStats is the coarse, cheap-to-compute snapshot GET /system/status
// surfaces, the same "a handful of COUNT(*) queries, not a report" shape
// the teacher's GetSyncState handler returns for sync state.
type TenantStats struct {
	OpenSessions   int64
	UnreadMessages int64
}

// Stats computes TenantStats for a tenant with two independent COUNT
// queries rather than a join, since open sessions and unread messages have
// no natural relation to combine on.
func (s *Store) Stats(ctx context.Context, tenantID string) (TenantStats, error) {
	var stats TenantStats
	if err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM session WHERE tenant_id = $1 AND closed_at IS NULL
	`, tenantID).Scan(&stats.OpenSessions); err != nil {
		return TenantStats{}, err
	}
	if err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM message WHERE tenant_id = $1 AND read_at IS NULL
	`, tenantID).Scan(&stats.UnreadMessages); err != nil {
		return TenantStats{}, err
	}
	return stats, nil
}

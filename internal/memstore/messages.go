package memstore

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

// Message mirrors the Message entity; only ReadAt may change after insert
// (INV-M).
type Message struct {
	ID        string
	From      string
	To        string
	Content   string
	Type      string
	Priority  string
	CreatedAt time.Time
	ReadAt    *time.Time
}

// Pool exposes the underlying pool for callers (the Router) that open their
// own transaction around InsertMessagesTx.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// InsertMessagesTx inserts one immutable row per recipient inside an
// already-open transaction, so the Router's fan-out writes all rows or none.
// Recipient resolution is not part of that transaction: the Router resolves
// recipients on the pool before opening it. Returns the generated message
// ids in recipient order.
func (s *Store) InsertMessagesTx(ctx context.Context, tx pgx.Tx, tenantID, from string, recipients []string, content, msgType, priority string) ([]string, error) {
	ids := make([]string, 0, len(recipients))
	for _, to := range recipients {
		id := uuid.New().String()
		_, err := tx.Exec(ctx, `
			INSERT INTO message (tenant_id, id, from_agent, to_agent, content, type, priority)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, tenantID, id, from, to, content, msgType, priority)
		if err != nil {
			return nil, huberr.New(huberr.StorageError, "insert message failed: "+err.Error(), nil)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListMessagesOpts controls listMessages filtering and the optional
// read-stamping side effect.
type ListMessagesOpts struct {
	UnreadOnly bool
	SinceID    string
	Limit      int
	MarkAsRead bool
	// CallerAgentID is the identity of whoever is making the call; MarkAsRead
	// only takes effect when CallerAgentID equals the inbox owner.
	CallerAgentID string
}

// ListMessages returns an agent's inbox, optionally stamping readAt on
// exactly the returned rows. markAsRead is honored only when the caller is
// the inbox owner; otherwise it is silently ignored, never an error.
func (s *Store) ListMessages(ctx context.Context, tenantID, agentID string, opts ListMessagesOpts) ([]Message, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	shouldMark := opts.MarkAsRead && opts.CallerAgentID == agentID

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "could not start transaction", nil)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT id, from_agent, to_agent, content, type, priority, created_at, read_at
		FROM message
		WHERE tenant_id = $1 AND to_agent = $2
	`
	args := []any{tenantID, agentID}
	if opts.UnreadOnly {
		query += ` AND read_at IS NULL`
	}
	if opts.SinceID != "" {
		query += ` AND id > $3`
		args = append(args, opts.SinceID)
	}
	query += ` ORDER BY created_at, id LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, huberr.New(huberr.StorageError, "list messages failed: "+err.Error(), nil)
	}

	var messages []Message
	var toMark []string
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Content, &m.Type, &m.Priority, &m.CreatedAt, &m.ReadAt); err != nil {
			rows.Close()
			return nil, huberr.New(huberr.StorageError, "scan message failed: "+err.Error(), nil)
		}
		messages = append(messages, m)
		if shouldMark && m.ReadAt == nil {
			toMark = append(toMark, m.ID)
		}
	}
	rows.Close()

	if len(toMark) > 0 {
		now := time.Now()
		if _, err := tx.Exec(ctx, `
			UPDATE message SET read_at = $1 WHERE tenant_id = $2 AND id = ANY($3)
		`, now, tenantID, toMark); err != nil {
			return nil, huberr.New(huberr.StorageError, "mark read failed: "+err.Error(), nil)
		}
		for i := range messages {
			for _, id := range toMark {
				if messages[i].ID == id {
					t := now
					messages[i].ReadAt = &t
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, huberr.New(huberr.StorageError, "commit failed: "+err.Error(), nil)
	}
	return messages, nil
}

// MarkRead stamps readAt on those of the named message ids whose inbox owner
// is the caller; ids addressed to another agent are silently left unread.
func (s *Store) MarkRead(ctx context.Context, tenantID, callerAgentID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE message SET read_at = now()
		WHERE tenant_id = $1 AND id = ANY($2) AND to_agent = $3 AND read_at IS NULL
	`, tenantID, ids, callerAgentID)
	if err != nil {
		return huberr.New(huberr.StorageError, "mark read failed: "+err.Error(), nil)
	}
	return nil
}

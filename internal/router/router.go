// Package router is the Router (C6): it resolves the recipient set for a
// send_message call and writes one immutable message row per recipient
// inside a single transaction, then pushes best-effort over any open
// WebSocket connection.
package router

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomcat65/agent-hub/internal/agentreg"
	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/memstore"
)

// Request is the normalized send_message input. Exactly one recipient
// selector is honored, in the order Broadcast, Capabilities, To — the same
// precedence ToolDispatcher's field-alias normalization feeds in.
type Request struct {
	From         string
	To           string
	Capabilities []string
	Broadcast    bool
	ExcludeSelf  bool // defaults true at the tool layer; carried through as given here
	Content      string
	Type         string
	Priority     string
}

// Result is what send_message reports back to the caller.
type Result struct {
	MessageIDs []string
	Recipients []string
}

// Router resolves recipients and performs the transactional fan-out write.
type Router struct {
	store    *memstore.Store
	registry *agentreg.Registry
	log      zerolog.Logger
}

// New constructs a Router.
func New(store *memstore.Store, registry *agentreg.Registry, log zerolog.Logger) *Router {
	return &Router{store: store, registry: registry, log: log.With().Str("component", "router").Logger()}
}

// Send resolves req's recipient set, writes one Message row per recipient
// in one transaction, and returns once the write has committed. WebSocket
// delivery happens after commit and never affects the returned error.
func (rt *Router) Send(ctx context.Context, tenantID string, req Request) (Result, error) {
	recipients, err := rt.resolveRecipients(ctx, tenantID, req)
	if err != nil {
		return Result{}, err
	}
	if len(recipients) == 0 {
		return Result{}, huberr.New(huberr.NoRecipient, "no agent matched the requested recipient selector", nil)
	}

	tx, err := rt.store.Pool().Begin(ctx)
	if err != nil {
		return Result{}, huberr.New(huberr.StorageError, "could not start transaction", nil)
	}
	defer tx.Rollback(ctx)

	ids, err := rt.store.InsertMessagesTx(ctx, tx, tenantID, req.From, recipients, req.Content, req.Type, req.Priority)
	if err != nil {
		return Result{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Result{}, huberr.New(huberr.StorageError, "commit failed: "+err.Error(), nil)
	}

	rt.notify(tenantID, req.From, req.Content, recipients, ids)

	return Result{MessageIDs: ids, Recipients: recipients}, nil
}

// resolveRecipients implements the three-path selector in priority order:
// broadcast, then capability-AND-match, then direct to.
func (rt *Router) resolveRecipients(ctx context.Context, tenantID string, req Request) ([]string, error) {
	switch {
	case req.Broadcast || req.To == "*":
		return rt.resolveBroadcast(ctx, tenantID, req.From, req.ExcludeSelf)

	case len(req.Capabilities) > 0:
		return rt.resolveCapabilities(ctx, tenantID, req.Capabilities)

	case req.To != "":
		return []string{req.To}, nil

	default:
		return nil, nil
	}
}

func (rt *Router) resolveBroadcast(ctx context.Context, tenantID, from string, excludeSelf bool) ([]string, error) {
	agents, err := rt.store.ListAgents(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	recipients := make([]string, 0, len(agents))
	for _, a := range agents {
		if excludeSelf && a.ID == from {
			continue
		}
		recipients = append(recipients, a.ID)
	}
	return recipients, nil
}

// resolveCapabilities selects every agent whose declared capability set is
// a superset of want — AND semantics, not OR: an agent must carry every
// requested tag, not merely one of them.
func (rt *Router) resolveCapabilities(ctx context.Context, tenantID string, want []string) ([]string, error) {
	agents, err := rt.store.ListAgents(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(agents))
	for _, a := range agents {
		if hasAll(a.Capabilities, want) {
			recipients = append(recipients, a.ID)
		}
	}
	return recipients, nil
}

func hasAll(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[c] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

// notify pushes a best-effort WebSocket notification to each recipient. It
// never returns an error: a missed push means the recipient sees the
// message on its next get_ai_messages poll, nothing more.
func (rt *Router) notify(tenantID, from, content string, recipients, ids []string) {
	if rt.registry == nil {
		return
	}
	for i, to := range recipients {
		rt.registry.Push(tenantID, to, agentreg.Notification{
			Type:      "message",
			MessageID: ids[i],
			From:      from,
			Content:   content,
		})
	}
}

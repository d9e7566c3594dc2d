package tools

import (
	"context"
	"encoding/json"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/hubcache"
	"github.com/tomcat65/agent-hub/internal/memstore"
	"github.com/tomcat65/agent-hub/internal/router"
)

// sendAIMessageParams accepts both the current field names and the legacy
// aliases older bridge clients still send (agentId -> to, message ->
// content), normalized before the Router ever sees the request.
type sendAIMessageParams struct {
	From           string   `json:"from"`
	To             string   `json:"to"`
	AgentID        string   `json:"agentId"`
	ToCapabilities []string `json:"toCapabilities"`
	Broadcast      bool     `json:"broadcast"`
	ExcludeSelf    *bool    `json:"excludeSelf"`
	Content        string   `json:"content"`
	Message        string   `json:"message"`
	Type           string   `json:"type"`
	Priority       string   `json:"priority"`
}

func handleSendAIMessage(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p sendAIMessageParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("content", "invalid arguments: "+err.Error())
	}

	to := p.To
	if to == "" {
		to = p.AgentID
	}
	content := p.Content
	if content == "" {
		content = p.Message
	}
	excludeSelf := true
	if p.ExcludeSelf != nil {
		excludeSelf = *p.ExcludeSelf
	}

	from := p.From
	if from == "" {
		from = tc.RC.AgentID
	}

	msgType := p.Type
	if msgType == "" {
		msgType = "text"
	}
	priority := p.Priority
	if priority == "" {
		priority = "normal"
	}

	result, err := tc.Router.Send(ctx, tc.RC.TenantID, router.Request{
		From:         from,
		To:           to,
		Capabilities: p.ToCapabilities,
		Broadcast:    p.Broadcast,
		ExcludeSelf:  excludeSelf,
		Content:      content,
		Type:         msgType,
		Priority:     priority,
	})
	if err != nil {
		return nil, err
	}
	if tc.Cache != nil {
		for _, recipient := range result.Recipients {
			tc.Cache.InvalidateAgent(ctx, tc.RC.TenantID, recipient)
		}
	}
	return map[string]any{"messageIds": result.MessageIDs, "recipients": result.Recipients}, nil
}

type getAIMessagesParams struct {
	AgentID    string `json:"agentId"`
	UnreadOnly bool   `json:"unreadOnly"`
	SinceID    string `json:"sinceId"`
	Limit      int    `json:"limit"`
	MarkAsRead bool   `json:"markAsRead"`
}

func handleGetAIMessages(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p getAIMessagesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("agentId", "invalid arguments: "+err.Error())
	}
	if p.AgentID == "" {
		return nil, huberr.Invalidf("agentId", "agentId is required")
	}

	// Only the plain, non-mutating "give me the inbox" call is cacheable:
	// markAsRead mutates storage and sinceId/unreadOnly each need a result
	// set the single cached blob can't represent, so those always go
	// straight to the store.
	cacheable := tc.Cache != nil && !p.MarkAsRead && p.SinceID == "" && !p.UnreadOnly
	key := hubcache.Key(tc.RC.TenantID, p.AgentID, hubcache.KindInbox)

	if cacheable {
		var cached []memstore.Message
		if tc.Cache.Get(ctx, key, &cached) {
			return map[string]any{"messages": limitMessages(cached, p.Limit)}, nil
		}
	}

	messages, err := tc.Store.ListMessages(ctx, tc.RC.TenantID, p.AgentID, memstore.ListMessagesOpts{
		UnreadOnly:    p.UnreadOnly,
		SinceID:       p.SinceID,
		Limit:         p.Limit,
		MarkAsRead:    p.MarkAsRead,
		CallerAgentID: tc.RC.AgentID,
	})
	if err != nil {
		return nil, err
	}
	if cacheable {
		tc.Cache.Set(ctx, key, messages, hubcache.InboxTTL)
	}
	return map[string]any{"messages": messages}, nil
}

func limitMessages(messages []memstore.Message, limit int) []memstore.Message {
	if limit > 0 && limit < len(messages) {
		return messages[:limit]
	}
	return messages
}

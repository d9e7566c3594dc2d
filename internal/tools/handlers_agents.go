package tools

import (
	"context"
	"encoding/json"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/memstore"
)

type registerAgentParams struct {
	AgentID      string         `json:"agentId"`
	Name         string         `json:"name"`
	Capabilities []string       `json:"capabilities"`
	Metadata     map[string]any `json:"metadata"`
}

func handleRegisterAgent(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p registerAgentParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("agentId", "invalid arguments: "+err.Error())
	}
	if p.AgentID == "" {
		return nil, huberr.Invalidf("agentId", "agentId is required")
	}

	agent, err := tc.Agents.Upsert(ctx, tc.RC.TenantID, memstore.Agent{
		ID:           p.AgentID,
		Name:         p.Name,
		Capabilities: p.Capabilities,
		Metadata:     p.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return agent, nil
}

type setAgentIdentityParams struct {
	AgentID  string         `json:"agentId"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

func handleSetAgentIdentity(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p setAgentIdentityParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("agentId", "invalid arguments: "+err.Error())
	}
	if p.AgentID == "" || p.Name == "" {
		return nil, huberr.Invalidf("name", "agentId and name are required")
	}
	return tc.Store.SetAgentIdentity(ctx, tc.RC.TenantID, p.AgentID, p.Name, p.Metadata)
}

type getAgentStatusParams struct {
	AgentID string `json:"agentId"`
}

func handleGetAgentStatus(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p getAgentStatusParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("agentId", "invalid arguments: "+err.Error())
	}
	if p.AgentID == "" {
		return tc.Agents.List(ctx, tc.RC.TenantID)
	}
	return tc.Agents.Get(ctx, tc.RC.TenantID, p.AgentID)
}

package tools

import (
	"context"
	"encoding/json"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/sessionmgr"
)

type contextDepthParams struct {
	AgentID   string `json:"agentId"`
	ProjectID string `json:"projectId"`
	Depth     string `json:"depth"`
}

func handleGetAgentContext(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p contextDepthParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("projectId", "invalid arguments: "+err.Error())
	}
	agentID := p.AgentID
	if agentID == "" {
		agentID = tc.RC.AgentID
	}
	if p.ProjectID == "" {
		return nil, huberr.Invalidf("projectId", "projectId is required")
	}
	return tc.Sessions.GetContext(ctx, tc.RC.TenantID, agentID, p.ProjectID, sessionmgr.Depth(p.Depth))
}

func handleBeginSession(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p contextDepthParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("projectId", "invalid arguments: "+err.Error())
	}
	agentID := p.AgentID
	if agentID == "" {
		agentID = tc.RC.AgentID
	}
	if p.ProjectID == "" {
		return nil, huberr.Invalidf("projectId", "projectId is required")
	}
	result, err := tc.Sessions.Begin(ctx, tc.RC.TenantID, agentID, p.ProjectID, sessionmgr.Depth(p.Depth))
	if err != nil {
		return nil, err
	}
	return map[string]any{"sessionId": result.SessionID, "handoff": result.Handoff, "contextBundle": result.Bundle}, nil
}

type endSessionParams struct {
	AgentID   string   `json:"agentId"`
	ProjectID string   `json:"projectId"`
	Summary   string   `json:"summary"`
	OpenItems []string `json:"openItems"`
}

func handleEndSession(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p endSessionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("summary", "invalid arguments: "+err.Error())
	}
	agentID := p.AgentID
	if agentID == "" {
		agentID = tc.RC.AgentID
	}
	if p.ProjectID == "" {
		return nil, huberr.Invalidf("projectId", "projectId is required")
	}

	handoff, err := tc.Sessions.End(ctx, tc.RC.TenantID, agentID, p.ProjectID, sessionmgr.EndInput{
		Summary:   p.Summary,
		OpenItems: p.OpenItems,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"handoffId": handoff.ID}, nil
}

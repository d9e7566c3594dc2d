package tools

import (
	"context"
	"encoding/json"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/hubcache"
	"github.com/tomcat65/agent-hub/internal/memstore"
)

type recordLearningParams struct {
	AgentID    string  `json:"agentId"`
	Context    string  `json:"context"`
	Lesson     string  `json:"lesson"`
	Confidence float64 `json:"confidence"`
}

func handleRecordLearning(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p recordLearningParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("lesson", "invalid arguments: "+err.Error())
	}
	agentID := p.AgentID
	if agentID == "" {
		agentID = tc.RC.AgentID
	}
	learning, err := tc.Store.RecordLearning(ctx, tc.RC.TenantID, memstore.Learning{
		AgentID:    agentID,
		Context:    p.Context,
		Lesson:     p.Lesson,
		Confidence: p.Confidence,
	})
	if err != nil {
		return nil, err
	}
	if tc.Cache != nil {
		tc.Cache.InvalidateAgent(ctx, tc.RC.TenantID, agentID)
	}
	return learning, nil
}

type setPreferencesParams struct {
	AgentID     string         `json:"agentId"`
	Preferences map[string]any `json:"preferences"`
}

func handleSetPreferences(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p setPreferencesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("preferences", "invalid arguments: "+err.Error())
	}
	agentID := p.AgentID
	if agentID == "" {
		agentID = tc.RC.AgentID
	}
	if err := tc.Store.SetPreferences(ctx, tc.RC.TenantID, agentID, p.Preferences); err != nil {
		return nil, err
	}
	if tc.Cache != nil {
		tc.Cache.InvalidateAgent(ctx, tc.RC.TenantID, agentID)
	}
	return map[string]any{"updated": len(p.Preferences)}, nil
}

type getIndividualMemoryParams struct {
	AgentID string `json:"agentId"`
}

func handleGetIndividualMemory(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p getIndividualMemoryParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("agentId", "invalid arguments: "+err.Error())
	}
	agentID := p.AgentID
	if agentID == "" {
		agentID = tc.RC.AgentID
	}

	key := hubcache.Key(tc.RC.TenantID, agentID, hubcache.KindBundle)
	if tc.Cache != nil {
		var cached memstore.IndividualMemory
		if tc.Cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	bundle, err := tc.Store.ReadIndividualMemory(ctx, tc.RC.TenantID, agentID)
	if err != nil {
		return nil, err
	}
	if tc.Cache != nil {
		tc.Cache.Set(ctx, key, bundle, hubcache.BundleTTL)
	}
	return bundle, nil
}

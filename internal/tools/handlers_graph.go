package tools

import (
	"context"
	"encoding/json"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/memstore"
)

type createEntitiesParams struct {
	Entities []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"entities"`
}

func handleCreateEntities(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p createEntitiesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("entities", "invalid arguments: "+err.Error())
	}
	inputs := make([]memstore.EntityInput, len(p.Entities))
	for i, e := range p.Entities {
		inputs[i] = memstore.EntityInput{Name: e.Name, Type: e.Type}
	}
	result, err := tc.Store.UpsertEntities(ctx, tc.RC.TenantID, inputs)
	if err != nil {
		return nil, err
	}
	return result, nil
}

type addObservationsParams struct {
	EntityName   string   `json:"entityName"`
	Observations []string `json:"observations"`
}

func handleAddObservations(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p addObservationsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("entityName", "invalid arguments: "+err.Error())
	}
	if err := tc.Store.AddObservations(ctx, tc.RC.TenantID, p.EntityName, p.Observations); err != nil {
		return nil, err
	}
	return map[string]any{"added": len(p.Observations)}, nil
}

type createRelationsParams struct {
	Relations []struct {
		From string `json:"from"`
		To   string `json:"to"`
		Type string `json:"type"`
	} `json:"relations"`
}

func handleCreateRelations(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p createRelationsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("relations", "invalid arguments: "+err.Error())
	}
	inputs := make([]memstore.RelationInput, len(p.Relations))
	for i, r := range p.Relations {
		inputs[i] = memstore.RelationInput{FromName: r.From, ToName: r.To, RelationType: r.Type}
	}
	ids, err := tc.Store.CreateRelations(ctx, tc.RC.TenantID, inputs)
	if err != nil {
		return nil, err
	}
	return map[string]any{"relationIds": ids}, nil
}

func handleReadGraph(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	return tc.Store.ReadGraph(ctx, tc.RC.TenantID)
}

type searchEntitiesParams struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
	Limit int    `json:"limit"`
}

func handleSearchEntities(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p searchEntitiesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("query", "invalid arguments: "+err.Error())
	}
	mode := memstore.SearchMode(p.Mode)
	if mode == "" {
		mode = memstore.SearchExact
	}
	outcome, err := tc.Store.SearchEntities(ctx, tc.RC.TenantID, p.Query, mode, p.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": outcome.Results, "modeUsed": outcome.ModeUsed}, nil
}

// handleSearchNodes is the deprecated search_nodes alias: identical to
// search_entities with mode forced to graph, per the spec's
// preserve-the-alias-no-behavioral-difference note.
func handleSearchNodes(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p searchEntitiesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("query", "invalid arguments: "+err.Error())
	}
	outcome, err := tc.Store.SearchEntities(ctx, tc.RC.TenantID, p.Query, memstore.SearchGraph, p.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": outcome.Results, "modeUsed": outcome.ModeUsed}, nil
}

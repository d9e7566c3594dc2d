// Package sessionmgr is the SessionManager (C7): begin_session/end_session
// and the tiered context bundle assembled for a resuming agent.
package sessionmgr

import (
	"context"
	"encoding/json"

	"github.com/tomcat65/agent-hub/internal/memstore"
)

// Depth selects how many tiers of a context bundle are materialized.
type Depth string

const (
	DepthHot  Depth = "hot"
	DepthWarm Depth = "warm"
	DepthCold Depth = "cold"
)

// bytesPerToken is the coarse heuristic used for meta.tokenEstimate: four
// bytes of serialized JSON per token, the same rough ratio the teacher's
// prompt-budgeting code assumes for English text.
const bytesPerToken = 4

// topLearningsLimit bounds the WARM tier's recent-learnings slice.
const topLearningsLimit = 10

// Identity is the HOT tier's agent-identity fragment.
type Identity struct {
	AgentID      string   `json:"agentId"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// Bundle is the tiered context returned by get_agent_context and embedded
// in begin_session. Fields beyond a requested depth are left at zero value,
// and their omitempty tags drop them from the JSON, so callers can tell
// "not materialized" from "materialized and empty" only via the Meta.Depth
// tag.
type Bundle struct {
	Identity       Identity                `json:"identity"`
	UnreadMessages []memstore.Message      `json:"unreadMessages"`
	OpenSession    *memstore.Session       `json:"openSession,omitempty"`
	LatestHandoff  *memstore.Handoff       `json:"latestHandoff,omitempty"`
	Learnings      []memstore.Learning     `json:"learnings,omitempty"`
	Preferences    map[string]any          `json:"preferences,omitempty"`
	LastSummary    string                  `json:"lastSessionSummary,omitempty"`
	Entities       []memstore.SearchResult `json:"entities,omitempty"`
	SearchModeUsed string                  `json:"searchModeUsed,omitempty"`
	Meta           BundleMeta              `json:"meta"`
}

// BundleMeta carries the depth actually materialized and a size estimate.
type BundleMeta struct {
	Depth         Depth `json:"depth"`
	TokenEstimate int   `json:"tokenEstimate"`
}

// assembleBundle builds a Bundle for (tenantID, agentID, projectID) at the
// requested depth. Every tier is additive: WARM includes everything HOT
// does, COLD includes everything WARM does. Ordering within each tier
// follows the store's own deterministic ordering (createdAt, then id; COLD
// entities by score, then entity id). WARM learnings are ranked by
// TopLearnings relative to the current time, so their order can change as
// time passes even when the database state does not.
func (m *Manager) assembleBundle(ctx context.Context, tenantID, agentID, projectID string, depth Depth) (*Bundle, error) {
	b := &Bundle{Meta: BundleMeta{Depth: depth}}

	agent, err := m.store.GetAgent(ctx, tenantID, agentID)
	if err == nil && agent != nil {
		b.Identity = Identity{AgentID: agent.ID, Name: agent.Name, Capabilities: agent.Capabilities}
	} else {
		b.Identity = Identity{AgentID: agentID}
	}

	inbox, err := m.store.ListMessages(ctx, tenantID, agentID, memstore.ListMessagesOpts{UnreadOnly: true, Limit: 50})
	if err != nil {
		return nil, err
	}
	b.UnreadMessages = inbox

	if open, err := m.store.FindOpenSession(ctx, tenantID, agentID, projectID); err == nil {
		b.OpenSession = open
	}

	if h, err := m.store.PeekUnconsumedHandoff(ctx, tenantID, projectID); err == nil {
		b.LatestHandoff = h
	}

	if depth == DepthHot {
		b.Meta.TokenEstimate = estimateTokens(b)
		return b, nil
	}

	learnings, err := m.store.TopLearnings(ctx, tenantID, agentID, topLearningsLimit)
	if err != nil {
		return nil, err
	}
	b.Learnings = learnings

	prefs, err := m.store.GetPreferences(ctx, tenantID, agentID)
	if err != nil {
		return nil, err
	}
	b.Preferences = prefs

	if last, err := m.store.LastHandoff(ctx, tenantID, projectID); err == nil && last != nil {
		b.LastSummary = last.Summary
	}

	if depth == DepthWarm {
		b.Meta.TokenEstimate = estimateTokens(b)
		return b, nil
	}

	outcome, err := m.store.SearchEntities(ctx, tenantID, projectID, memstore.SearchHybrid, 25)
	if err != nil {
		return nil, err
	}
	b.Entities = outcome.Results
	b.SearchModeUsed = outcome.ModeUsed

	b.Meta.TokenEstimate = estimateTokens(b)
	return b, nil
}

// estimateTokens applies the byte/4 heuristic to the bundle's serialized
// size. A marshal failure (which should not happen for this shape) yields
// an estimate of 0 rather than an error — meta.tokenEstimate is advisory.
func estimateTokens(b *Bundle) int {
	raw, err := json.Marshal(b)
	if err != nil {
		return 0
	}
	return len(raw) / bytesPerToken
}

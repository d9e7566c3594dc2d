package sessionmgr

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/memstore"
)

// Manager implements begin_session / end_session and assembles the tiered
// context bundle both embed.
type Manager struct {
	store    *memstore.Store
	notifier SlackNotifier
	log      zerolog.Logger
}

// SlackNotifier is the narrow capability end_session uses to post a
// best-effort handoff summary to an external collaborator channel. A nil
// SlackNotifier disables the notification entirely; a failed post is
// logged and never fails the end_session call.
type SlackNotifier interface {
	NotifyHandoff(ctx context.Context, tenantID, projectID, summary string) error
}

// New constructs a Manager. notifier may be nil.
func New(store *memstore.Store, notifier SlackNotifier, log zerolog.Logger) *Manager {
	return &Manager{store: store, notifier: notifier, log: log.With().Str("component", "sessionmgr").Logger()}
}

// BeginResult is what begin_session reports back.
type BeginResult struct {
	SessionID string // not persisted as a separate id; callers key sessions by (agentId, projectId)
	Handoff   *memstore.Handoff
	Bundle    *Bundle
}

// Begin implements begin_session: reuse or open the session, consume the
// project's most recent unconsumed handoff (from any author), and assemble
// a context bundle at the requested depth.
func (m *Manager) Begin(ctx context.Context, tenantID, agentID, projectID string, depth Depth) (*BeginResult, error) {
	sess, err := m.store.FindOpenSession(ctx, tenantID, agentID, projectID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess, err = m.store.OpenSession(ctx, tenantID, agentID, projectID)
		if err != nil {
			return nil, err
		}
	}

	handoff, err := m.store.ConsumeHandoff(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}

	if depth == "" {
		depth = DepthHot
	}
	bundle, err := m.assembleBundle(ctx, tenantID, agentID, projectID, depth)
	if err != nil {
		return nil, err
	}

	return &BeginResult{SessionID: sess.AgentID + ":" + sess.ProjectID, Handoff: handoff, Bundle: bundle}, nil
}

// EndInput is what end_session accepts beyond the (agentId, projectId) key.
type EndInput struct {
	Summary   string
	OpenItems []string
	// Learnings lets the caller attach derived lessons in the same call
	// rather than a separate record_learning round trip.
	Learnings []memstore.Learning
}

// End implements end_session: close the open session, write a handoff,
// record any attached learnings, and best-effort notify Slack.
func (m *Manager) End(ctx context.Context, tenantID, agentID, projectID string, in EndInput) (*memstore.Handoff, error) {
	if in.Summary == "" {
		return nil, huberr.Invalidf("summary", "summary is required")
	}

	if err := m.store.CloseSession(ctx, tenantID, agentID, projectID); err != nil {
		return nil, err
	}

	handoff, err := m.store.WriteHandoff(ctx, tenantID, memstore.Handoff{
		ProjectID:        projectID,
		AuthoringAgentID: agentID,
		Summary:          in.Summary,
		OpenItems:        in.OpenItems,
	})
	if err != nil {
		return nil, err
	}

	for _, l := range in.Learnings {
		l.AgentID = agentID
		if _, err := m.store.RecordLearning(ctx, tenantID, l); err != nil {
			m.log.Warn().Err(err).Msg("failed to record attached learning during end_session")
		}
	}

	if m.notifier != nil {
		if err := m.notifier.NotifyHandoff(ctx, tenantID, projectID, in.Summary); err != nil {
			m.log.Warn().Err(err).Msg("slack handoff notification failed")
		}
	}

	return handoff, nil
}

// GetContext implements get_agent_context: the same tiered bundle begin_session
// embeds, available standalone without opening or touching a session.
func (m *Manager) GetContext(ctx context.Context, tenantID, agentID, projectID string, depth Depth) (*Bundle, error) {
	if depth == "" {
		depth = DepthHot
	}
	return m.assembleBundle(ctx, tenantID, agentID, projectID, depth)
}

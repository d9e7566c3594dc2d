package hubserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tomcat65/agent-hub/internal/huberr"
	"github.com/tomcat65/agent-hub/internal/hubtypes"
)

// TenantResolver is the subset of hubauth.Resolver that middleware depends
// on, kept narrow so tests can supply a fake without constructing a real
// Postgres-backed resolver.
type TenantResolver interface {
	Resolve(r *http.Request) (hubtypes.RequestContext, error)
}

// CorrelationMiddleware assigns or forwards X-Correlation-ID, the same
// contract the REST surface has always honored, so a request can be
// traced end to end whether it lands on /mcp, /ai-message, or /ws.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", id)

		ctx := hubtypes.WithCorrelationID(r.Context(), id)
		logger := log.With().Str("correlation_id", id).Logger()
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ResolveTenantMiddleware resolves credentials into a RequestContext and
// rejects the request before any handler runs if resolution fails. A
// caller-supplied X-Agent-Id header is folded in afterward: the resolver
// itself has no notion of an agent, only tenants and principals, so the
// agent identity a tool call or websocket upgrade acts on is layered on
// top rather than taught to the resolver.
func ResolveTenantMiddleware(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc, err := resolver.Resolve(r)
			if err != nil {
				writeHubError(w, r, err)
				return
			}
			if agentID := r.Header.Get("X-Agent-Id"); agentID != "" {
				rc.AgentID = agentID
			}
			next.ServeHTTP(w, r.WithContext(hubtypes.WithRequestContext(r.Context(), rc)))
		})
	}
}

// writeHubError renders a HubError (or a bare error, treated as an
// internal failure) as a REST error response. A StorageError gets the
// request's correlation id folded into Data so a support escalation can
// find the matching server log line.
func writeHubError(w http.ResponseWriter, r *http.Request, err error) {
	he, ok := huberr.As(err)
	if !ok {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if he.Kind == huberr.StorageError {
		he = he.WithData(map[string]any{"correlationId": hubtypes.CorrelationID(r.Context())})
	}
	writeRESTError(w, r, he.HTTPStatus(), he.Message)
}

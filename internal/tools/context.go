package tools

import (
	"github.com/rs/zerolog"

	"github.com/tomcat65/agent-hub/internal/agentreg"
	"github.com/tomcat65/agent-hub/internal/hubcache"
	"github.com/tomcat65/agent-hub/internal/hubtypes"
	"github.com/tomcat65/agent-hub/internal/memstore"
	"github.com/tomcat65/agent-hub/internal/router"
	"github.com/tomcat65/agent-hub/internal/sessionmgr"
)

// Context bundles every dependency a handler needs plus the caller's
// resolved identity. ToolDispatcher constructs one per call; handlers never
// reach for a package-level global.
type Context struct {
	RC       hubtypes.RequestContext
	Store    *memstore.Store
	Cache    *hubcache.Cache
	Router   *router.Router
	Sessions *sessionmgr.Manager
	Agents   *agentreg.Registry
	Log      *zerolog.Logger
}

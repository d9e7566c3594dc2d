package tools

import "github.com/tomcat65/agent-hub/internal/huberr"

// methodNotFound is returned when tools/call names an unregistered tool.
// It renders to the caller as an isError tool result with an
// X-Mcp-Error-Kind: NotFound header, not a JSON-RPC protocol error.
func methodNotFound(name string) error {
	return huberr.New(huberr.NotFound, "tool not found: "+name, map[string]any{"tool": name})
}

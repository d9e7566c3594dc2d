package tools

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/tomcat65/agent-hub/internal/huberr"
)

type translatePathParams struct {
	ProjectID    string `json:"projectId"`
	WorkspaceDir string `json:"workspaceDir"`
	Path         string `json:"path"`
}

// handleTranslatePath normalizes an agent-local file path into the hub's
// canonical project-relative form: forward slashes, no "." or ".."
// segments, no leading workspace directory. It performs no storage access
// and has no tenant-scoping concerns — a pure string utility carried over
// for IDE-bridge clients that report paths in whatever form their local OS
// produces.
func handleTranslatePath(ctx context.Context, tc *Context, raw json.RawMessage) (any, error) {
	var p translatePathParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, huberr.Invalidf("path", "invalid arguments: "+err.Error())
	}
	if p.Path == "" {
		return nil, huberr.Invalidf("path", "path is required")
	}

	clean := strings.ReplaceAll(p.Path, `\`, "/")
	if p.WorkspaceDir != "" {
		root := strings.ReplaceAll(p.WorkspaceDir, `\`, "/")
		clean = strings.TrimPrefix(clean, root)
	}
	clean = strings.TrimPrefix(clean, "/")
	clean = path.Clean(clean)
	if clean == "." {
		clean = ""
	}

	return map[string]any{"projectId": p.ProjectID, "translatedPath": clean}, nil
}

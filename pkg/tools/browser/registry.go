package browser

import (
	"github.com/entrhq/lookout/pkg/agent/tools"
	core "github.com/entrhq/lookout/pkg/browser"
)

// ToolRegistry builds the browser tools around one Browser.
type ToolRegistry struct {
	browser     *core.Browser
	projectPath string
	tools       []tools.Tool
}

// NewToolRegistry creates a registry. projectPath is the default project for browser_open.
func NewToolRegistry(b *core.Browser, projectPath string) *ToolRegistry {
	return &ToolRegistry{browser: b, projectPath: projectPath}
}

// RegisterTools creates and returns all browser tools.
func (r *ToolRegistry) RegisterTools() []tools.Tool {
	if len(r.tools) > 0 {
		return r.tools
	}

	// Always offered
	r.tools = append(r.tools,
		NewOpenTool(r.browser, r.projectPath),
		NewStateTool(r.browser),
		NewCloseTool(r.browser),
	)

	// Offered while a session is open
	r.tools = append(r.tools,
		NewNavigateTool(r.browser),
		NewExtractContentTool(r.browser),
		NewGetLinksTool(r.browser),
		NewGetInteractiveTool(r.browser),
		NewClickTool(r.browser),
		NewFillTool(r.browser),
		NewLockTool(r.browser),
		NewUnlockTool(r.browser),
	)

	return r.tools
}

// Register adds every browser tool to reg.
func (r *ToolRegistry) Register(reg *tools.Registry) error {
	return reg.Register(r.RegisterTools()...)
}

// Browser returns the wrapped browser.
func (r *ToolRegistry) Browser() *core.Browser {
	return r.browser
}

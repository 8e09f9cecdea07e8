package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/lookout/pkg/agent/tools"
	core "github.com/entrhq/lookout/pkg/browser"
)

// baseTool carries the shared browser.
type baseTool struct {
	browser *core.Browser
}

// openOnly hides a tool until a session exists.
type openOnly struct {
	baseTool
}

// ShouldShow returns true while a browser session is open.
func (t openOnly) ShouldShow() bool {
	return t.browser.IsOpen()
}

func parseArgs(argsXML []byte, v interface{}) error {
	if len(argsXML) == 0 {
		return nil
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// noArgs accepts an empty <arguments/> element.
type noArgs struct {
	XMLName xml.Name `xml:"arguments"`
}

func agentID(ctx context.Context, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	id, _ := core.AgentFromContext(ctx)
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

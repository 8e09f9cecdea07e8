package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/lookout/pkg/agent/tools"
	core "github.com/entrhq/lookout/pkg/browser"
)

// OpenTool opens the browser or navigates it when already open.
type OpenTool struct {
	baseTool
	projectPath string
}

// NewOpenTool creates the browser_open tool. projectPath is used when the
// call does not name a project.
func NewOpenTool(b *core.Browser, projectPath string) *OpenTool {
	return &OpenTool{baseTool: baseTool{browser: b}, projectPath: projectPath}
}

// Name returns the tool name.
func (t *OpenTool) Name() string { return "browser_open" }

// Description returns the tool description.
func (t *OpenTool) Description() string {
	return "Open the browser at an http or https URL. If the browser is already open this navigates it instead."
}

// Schema returns the tool's JSON schema.
func (t *OpenTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url":          tools.StringProperty("URL to open, including the scheme (e.g., https://example.com)"),
			"project_path": tools.StringProperty("Project directory whose .lookout/sync.json holds the result port. Defaults to the current project."),
		},
		[]string{"url"},
	)
}

// Execute opens the browser.
func (t *OpenTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName     xml.Name `xml:"arguments"`
		URL         string   `xml:"url"`
		ProjectPath string   `xml:"project_path"`
	}
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	projectPath := input.ProjectPath
	if projectPath == "" {
		projectPath = t.projectPath
	}

	result, err := t.browser.Open(ctx, projectPath, strings.TrimSpace(input.URL))
	if err != nil {
		return "", nil, err
	}

	verb := "Opened browser at"
	if result.Action == core.NavigationNavigated {
		verb = "Browser was already open; navigated to"
	}
	msg := fmt.Sprintf("%s %s\n\nThe page is loading. Use browser_extract_content to read it once loaded.", verb, result.URL)
	return msg, map[string]interface{}{"action": result.Action, "url": result.URL}, nil
}

// NavigateTool loads a new URL in the open browser.
type NavigateTool struct {
	openOnly
}

// NewNavigateTool creates the browser_navigate tool.
func NewNavigateTool(b *core.Browser) *NavigateTool {
	return &NavigateTool{openOnly{baseTool{browser: b}}}
}

// Name returns the tool name.
func (t *NavigateTool) Name() string { return "browser_navigate" }

// Description returns the tool description.
func (t *NavigateTool) Description() string {
	return "Navigate the open browser to another http or https URL. The current page is kept in history."
}

// Schema returns the tool's JSON schema.
func (t *NavigateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url": tools.StringProperty("URL to navigate to, including the scheme"),
		},
		[]string{"url"},
	)
}

// Execute navigates.
func (t *NavigateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		URL     string   `xml:"url"`
	}
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	result, err := t.browser.Navigate(ctx, strings.TrimSpace(input.URL))
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Navigating to %s", result.URL), map[string]interface{}{"url": result.URL}, nil
}

// StateTool reports the browser state.
type StateTool struct {
	baseTool
}

// NewStateTool creates the browser_state tool.
func NewStateTool(b *core.Browser) *StateTool {
	return &StateTool{baseTool{browser: b}}
}

// Name returns the tool name.
func (t *StateTool) Name() string { return "browser_state" }

// Description returns the tool description.
func (t *StateTool) Description() string {
	return "Show whether the browser is open, the current page, its load status, the lock holder and recent history."
}

// Schema returns the tool's JSON schema.
func (t *StateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// Execute reports the current snapshot.
func (t *StateTool) Execute(_ context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	if err := parseArgs(argsXML, &noArgs{}); err != nil {
		return "", nil, err
	}

	state := t.browser.GetState()
	if !state.Open {
		return "The browser is closed. Use browser_open to start.", map[string]interface{}{"open": false}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Browser state:\n- URL: %s\n- Title: %s\n- Status: %s\n", state.URL, state.Title, state.Status)
	if state.LockHolder != nil {
		fmt.Fprintf(&b, "- Locked by: %s\n", *state.LockHolder)
	} else {
		b.WriteString("- Locked by: nobody\n")
	}
	fmt.Fprintf(&b, "- History entries: %d\n", state.HistoryLength)
	for i, h := range state.History {
		fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, h.URL, h.Title)
	}
	if state.ExtractedPreview != "" {
		fmt.Fprintf(&b, "\nContent preview:\n%s\n", state.ExtractedPreview)
	}

	return b.String(), map[string]interface{}{
		"open":   true,
		"url":    state.URL,
		"status": string(state.Status),
	}, nil
}

// CloseTool closes the browser.
type CloseTool struct {
	baseTool
}

// NewCloseTool creates the browser_close tool.
func NewCloseTool(b *core.Browser) *CloseTool {
	return &CloseTool{baseTool{browser: b}}
}

// Name returns the tool name.
func (t *CloseTool) Name() string { return "browser_close" }

// Description returns the tool description.
func (t *CloseTool) Description() string {
	return "Close the browser and discard its history and lock. Closing a closed browser does nothing."
}

// Schema returns the tool's JSON schema.
func (t *CloseTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// Execute closes the browser.
func (t *CloseTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	if err := parseArgs(argsXML, &noArgs{}); err != nil {
		return "", nil, err
	}
	wasOpen := t.browser.IsOpen()
	if err := t.browser.Close(ctx); err != nil {
		return "", nil, err
	}
	if !wasOpen {
		return "The browser was already closed.", nil, nil
	}
	return "Browser closed.", nil, nil
}

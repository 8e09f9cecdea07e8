package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/lookout/pkg/agent/tools"
	core "github.com/entrhq/lookout/pkg/browser"
)

// ClickTool clicks an element on the current page.
type ClickTool struct {
	openOnly
}

// NewClickTool creates the browser_click tool.
func NewClickTool(b *core.Browser) *ClickTool {
	return &ClickTool{openOnly{baseTool{browser: b}}}
}

// Name returns the tool name.
func (t *ClickTool) Name() string { return "browser_click" }

// Description returns the tool description.
func (t *ClickTool) Description() string {
	return "Click the first element matching a CSS selector. Use browser_get_interactive to find selectors."
}

// Schema returns the tool's JSON schema.
func (t *ClickTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": tools.StringProperty("CSS selector of the element to click (e.g., '#submit', 'button[name=\"go\"]')"),
		},
		[]string{"selector"},
	)
}

// Execute clicks.
func (t *ClickTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName  xml.Name `xml:"arguments"`
		Selector string   `xml:"selector"`
	}
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	result, err := t.browser.ClickElement(ctx, input.Selector)
	if err != nil {
		return "", nil, err
	}
	return describeAction("Clicked", result), map[string]interface{}{"ok": result.OK, "selector": result.Selector}, nil
}

// FillTool types a value into a form field.
type FillTool struct {
	openOnly
}

// NewFillTool creates the browser_fill tool.
func NewFillTool(b *core.Browser) *FillTool {
	return &FillTool{openOnly{baseTool{browser: b}}}
}

// Name returns the tool name.
func (t *FillTool) Name() string { return "browser_fill" }

// Description returns the tool description.
func (t *FillTool) Description() string {
	return "Set the value of the first input, text area or select matching a CSS selector, firing input and change events."
}

// Schema returns the tool's JSON schema.
func (t *FillTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": tools.StringProperty("CSS selector of the field to fill"),
			"value":    tools.StringProperty("Value to enter"),
		},
		[]string{"selector", "value"},
	)
}

// Execute fills a field.
func (t *FillTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName  xml.Name `xml:"arguments"`
		Selector string   `xml:"selector"`
		Value    string   `xml:"value"`
	}
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	result, err := t.browser.FillField(ctx, input.Selector, input.Value)
	if err != nil {
		return "", nil, err
	}
	return describeAction("Filled", result), map[string]interface{}{"ok": result.OK, "selector": result.Selector}, nil
}

func describeAction(verb string, r *core.ActionResult) string {
	if !r.OK {
		return fmt.Sprintf("No element matched %s (%s). Use browser_get_interactive to list valid selectors.", r.Selector, r.Error)
	}
	return fmt.Sprintf("%s %s. If this changed the page, extract content again to see the result.", verb, r.Selector)
}

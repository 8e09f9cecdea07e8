package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/lookout/pkg/agent/tools"
	core "github.com/entrhq/lookout/pkg/browser"
)

// ExtractContentTool reads the text of the current page.
type ExtractContentTool struct {
	openOnly
}

// NewExtractContentTool creates the browser_extract_content tool.
func NewExtractContentTool(b *core.Browser) *ExtractContentTool {
	return &ExtractContentTool{openOnly{baseTool{browser: b}}}
}

// Name returns the tool name.
func (t *ExtractContentTool) Name() string { return "browser_extract_content" }

// Description returns the tool description.
func (t *ExtractContentTool) Description() string {
	return "Extract readable text from the current page, with navigation, scripts and hidden regions removed. Optionally scope it to a CSS selector."
}

// Schema returns the tool's JSON schema.
func (t *ExtractContentTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector":  tools.StringProperty("Optional CSS selector of the element to read (e.g., 'article', '#main')"),
			"max_chars": tools.IntegerProperty("Maximum characters to return. Default: 8000"),
		},
		nil,
	)
}

// Execute extracts page text.
func (t *ExtractContentTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName  xml.Name `xml:"arguments"`
		Selector string   `xml:"selector"`
		MaxChars int      `xml:"max_chars"`
	}
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	content, err := t.browser.ExtractContent(ctx, core.ExtractOptions{
		Selector: strings.TrimSpace(input.Selector),
		MaxChars: input.MaxChars,
	})
	if err != nil {
		return "", nil, err
	}
	if content.Error != "" {
		return fmt.Sprintf("Could not extract content: %s (selector: %s)", content.Error, content.Selector), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nURL: %s\n", content.Title, content.URL)
	if content.Truncated {
		fmt.Fprintf(&b, "Length: %d characters (truncated)\n", content.CharCount)
	}
	fmt.Fprintf(&b, "\n%s", content.Text)

	return b.String(), map[string]interface{}{
		"url":        content.URL,
		"char_count": content.CharCount,
		"truncated":  content.Truncated,
	}, nil
}

// GetLinksTool lists links on the current page.
type GetLinksTool struct {
	openOnly
}

// NewGetLinksTool creates the browser_get_links tool.
func NewGetLinksTool(b *core.Browser) *GetLinksTool {
	return &GetLinksTool{openOnly{baseTool{browser: b}}}
}

// Name returns the tool name.
func (t *GetLinksTool) Name() string { return "browser_get_links" }

// Description returns the tool description.
func (t *GetLinksTool) Description() string {
	return "List up to 100 links on the current page. An optional filter keeps links whose text or URL contains it (case-insensitive)."
}

// Schema returns the tool's JSON schema.
func (t *GetLinksTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"filter": tools.StringProperty("Optional text to match against link text or URL"),
		},
		nil,
	)
}

// Execute lists links.
func (t *GetLinksTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Filter  string   `xml:"filter"`
	}
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	links, err := t.browser.GetLinks(ctx, input.Filter)
	if err != nil {
		return "", nil, err
	}
	if len(links) == 0 {
		return "No links found.", map[string]interface{}{"count": 0}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d links:\n", len(links))
	for i, l := range links {
		marker := ""
		if l.IsExternal {
			marker = " [external]"
		}
		fmt.Fprintf(&b, "%d. %s -> %s%s\n", i+1, truncate(l.Text, 80), l.Href, marker)
	}
	return b.String(), map[string]interface{}{"count": len(links)}, nil
}

// GetInteractiveTool lists form controls and buttons.
type GetInteractiveTool struct {
	openOnly
}

// NewGetInteractiveTool creates the browser_get_interactive tool.
func NewGetInteractiveTool(b *core.Browser) *GetInteractiveTool {
	return &GetInteractiveTool{openOnly{baseTool{browser: b}}}
}

// Name returns the tool name.
func (t *GetInteractiveTool) Name() string { return "browser_get_interactive" }

// Description returns the tool description.
func (t *GetInteractiveTool) Description() string {
	return "List up to 50 inputs, text areas, selects and buttons on the current page, each with a selector for browser_click or browser_fill."
}

// Schema returns the tool's JSON schema.
func (t *GetInteractiveTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// Execute lists interactive elements.
func (t *GetInteractiveTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	if err := parseArgs(argsXML, &noArgs{}); err != nil {
		return "", nil, err
	}

	elements, err := t.browser.GetInteractive(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(elements) == 0 {
		return "No interactive elements found.", map[string]interface{}{"count": 0}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d interactive elements:\n", len(elements))
	for i, el := range elements {
		label := el.Text
		if label == "" {
			label = el.Name
		}
		kind := el.Type
		if el.InputType != "" && el.InputType != el.Type {
			kind += "/" + el.InputType
		}
		fmt.Fprintf(&b, "%d. [%s] %s  selector: %s", i+1, kind, truncate(label, 60), el.Selector)
		if el.Placeholder != "" {
			fmt.Fprintf(&b, "  placeholder: %q", el.Placeholder)
		}
		b.WriteString("\n")
	}
	return b.String(), map[string]interface{}{"count": len(elements)}, nil
}

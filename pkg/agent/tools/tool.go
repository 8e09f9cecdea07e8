package tools

import (
	"context"
	"encoding/xml"
)

// Tool is a capability an agent can invoke with an XML tool call.
//
// Example call:
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>browser_click</tool_name>
//	<arguments>
//	  <selector>#submit</selector>
//	</arguments>
//	</tool>
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "browser_open")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema for the tool's arguments
	Schema() map[string]interface{}

	// Execute runs the tool with the given XML arguments.
	// Metadata is optional and may be nil.
	Execute(ctx context.Context, argumentsXML []byte) (string, map[string]interface{}, error)
}

// Conditional is implemented by tools that are only offered in some states,
// such as interaction tools that need an open browser.
type Conditional interface {
	ShouldShow() bool
}

// ToolCall represents a parsed tool invocation
type ToolCall struct {
	XMLName    xml.Name       `xml:"tool"`
	ServerName string         `xml:"server_name"`
	ToolName   string         `xml:"tool_name"`
	Arguments  ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock holds the raw XML of the arguments element
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// GetArgumentsXML returns the arguments re-wrapped in <arguments> tags.
func (tc *ToolCall) GetArgumentsXML() []byte {
	const prefix, suffix = "<arguments>", "</arguments>"

	out := make([]byte, 0, len(prefix)+len(tc.Arguments.InnerXML)+len(suffix))
	out = append(out, prefix...)
	out = append(out, tc.Arguments.InnerXML...)
	return append(out, suffix...)
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty is a schema property of type string.
func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// IntegerProperty is a schema property of type integer.
func IntegerProperty(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

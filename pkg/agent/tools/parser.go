package tools

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultServerName = "local"
	maxXMLSize        = 1 << 20 // tool calls carry selectors and short values
)

var toolRegex = regexp.MustCompile(`(?s)<tool>.*?</tool>`)

// entityRegex matches ampersands that already start an XML entity.
var entityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)

// ParseToolCall extracts the first <tool> element from text and returns it
// together with the text that surrounded it.
func ParseToolCall(text string) (*ToolCall, string, error) {
	if len(text) > maxXMLSize {
		return nil, text, fmt.Errorf("tool call XML exceeds maximum size of %d bytes", maxXMLSize)
	}

	loc := toolRegex.FindStringIndex(text)
	if loc == nil {
		return nil, text, fmt.Errorf("no tool call found in text")
	}

	var call ToolCall
	if err := UnmarshalXMLWithFallback([]byte(text[loc[0]:loc[1]]), &call); err != nil {
		return nil, text, fmt.Errorf("failed to unmarshal tool call XML: %w", err)
	}
	if err := ValidateToolCall(&call); err != nil {
		return nil, text, err
	}

	remaining := strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	return &call, remaining, nil
}

// HasToolCall checks if the text contains a tool call.
func HasToolCall(text string) bool {
	return toolRegex.MatchString(text)
}

// ValidateToolCall requires a tool name and fills in the default server.
func ValidateToolCall(tc *ToolCall) error {
	if tc == nil {
		return fmt.Errorf("tool call is nil")
	}
	tc.ToolName = strings.TrimSpace(tc.ToolName)
	if tc.ToolName == "" {
		return fmt.Errorf("tool_name is required in tool call")
	}
	if tc.ServerName == "" {
		tc.ServerName = defaultServerName
	}
	return nil
}

// UnmarshalXMLWithFallback unmarshals data, retrying once with bare
// ampersands escaped. Agents often write URLs with query strings unescaped.
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if retry := xml.Unmarshal(escapeBareAmpersands(data), v); retry != nil {
		return err
	}
	return nil
}

func escapeBareAmpersands(data []byte) []byte {
	text := string(data)
	entities := make(map[int]bool)
	for _, m := range entityRegex.FindAllStringIndex(text, -1) {
		entities[m[0]] = true
	}

	var b strings.Builder
	b.Grow(len(text) + 16)
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entities[i] {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(text[i])
	}
	return []byte(b.String())
}

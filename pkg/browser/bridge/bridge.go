// Package bridge renders the script injected into every page of the controlled
// view, and the invocations that call into it.
//
// The script installs window.__LOOKOUT__ with read primitives (text, links,
// interactive), write primitives (click, fill) and "AndPost" variants that ship
// the primitive's JSON result to the loopback listener as
// {"action": ..., "data": ..., "id": ...}.
package bridge

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// PortPlaceholder is replaced in the template with the loopback port.
	PortPlaceholder = "/*{{LOOKOUT_PORT}}*/"

	// Global is the page-side object the script installs.
	Global = "window.__LOOKOUT__"

	// ResultPath is the loopback route the script posts envelopes to.
	ResultPath = "/browser-result"

	// DefaultMaxChars caps extracted text when the caller does not.
	DefaultMaxChars = 8000
)

// Posting primitives callable through Invocation.
const (
	MethodExtract     = "extractAndPost"
	MethodLinks       = "linksAndPost"
	MethodInteractive = "interactiveAndPost"
	MethodClick       = "clickAndPost"
	MethodFill        = "fillAndPost"
)

// Actions carried in the envelope.
const (
	ActionAuto        = "auto"
	ActionExtract     = "extract"
	ActionLinks       = "links"
	ActionInteractive = "interactive"
	ActionClick       = "click"
	ActionFill        = "fill"
)

// ErrUnknownMethod is returned by Invocation for names the script does not define.
var ErrUnknownMethod = errors.New("unknown bridge method")

//go:embed bridge.js
var template string

var methods = map[string]bool{
	MethodExtract:     true,
	MethodLinks:       true,
	MethodInteractive: true,
	MethodClick:       true,
	MethodFill:        true,
}

// Generate returns the bridge script bound to the given loopback port.
// The output depends only on the port.
func Generate(port uint16) string {
	return strings.Replace(template, PortPlaceholder, strconv.Itoa(int(port)), 1)
}

// Invocation renders a statement calling one of the posting primitives.
//
// Every argument is emitted as a JSON literal. encoding/json escapes quotes,
// backslashes, '<', '>', '&' and the U+2028/U+2029 line separators, so page-
// or agent-supplied selectors and values stay inside their string literal.
func Invocation(method string, args ...any) (string, error) {
	if !methods[method] {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	encoded := make([]string, 0, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("failed to encode argument %d for %s: %w", i, method, err)
		}
		encoded = append(encoded, string(b))
	}

	return fmt.Sprintf("%s && %s.%s(%s);", Global, Global, method, strings.Join(encoded, ", ")), nil
}

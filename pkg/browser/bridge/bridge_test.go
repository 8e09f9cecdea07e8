package bridge

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	script := Generate(43117)

	assert.NotContains(t, script, PortPlaceholder)
	assert.Contains(t, script, "'http://127.0.0.1:' + 43117 + '/browser-result'")
	assert.Contains(t, script, "window.__LOOKOUT__ = {")

	t.Run("deterministic per port", func(t *testing.T) {
		assert.Equal(t, script, Generate(43117))
		assert.NotEqual(t, script, Generate(43118))
	})

	t.Run("disables itself outside http pages", func(t *testing.T) {
		assert.Contains(t, script, "if (!window.location.protocol.startsWith('http')) return;")
	})

	t.Run("auto extraction is tagged", func(t *testing.T) {
		assert.Contains(t, script, "extractAndPost('', 8000, 'auto', '')")
		assert.Contains(t, script, "DOMContentLoaded")
	})

	t.Run("defines every posting primitive", func(t *testing.T) {
		for method := range methods {
			assert.Contains(t, script, method+": function(", method)
		}
	})

	t.Run("caps match extraction limits", func(t *testing.T) {
		assert.Contains(t, script, "links.slice(0, 100)")
		assert.Contains(t, script, "elements.slice(0, 50)")
		assert.Contains(t, script, "maxChars || 8000")
	})
}

func TestTemplateHasPlaceholder(t *testing.T) {
	assert.Equal(t, 1, strings.Count(template, PortPlaceholder))
}

func TestInvocation(t *testing.T) {
	t.Run("extract", func(t *testing.T) {
		got, err := Invocation(MethodExtract, "#main", 100, ActionExtract, "req-1")
		require.NoError(t, err)
		assert.Equal(t,
			`window.__LOOKOUT__ && window.__LOOKOUT__.extractAndPost("#main", 100, "extract", "req-1");`,
			got)
	})

	t.Run("no arguments", func(t *testing.T) {
		got, err := Invocation(MethodInteractive)
		require.NoError(t, err)
		assert.Equal(t, `window.__LOOKOUT__ && window.__LOOKOUT__.interactiveAndPost();`, got)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := Invocation("eval", "x")
		assert.True(t, errors.Is(err, ErrUnknownMethod))
	})

	t.Run("unencodable argument", func(t *testing.T) {
		_, err := Invocation(MethodClick, func() {})
		assert.Error(t, err)
	})
}

func TestInvocation_EscapesHostileInput(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"single quote", `a'); alert(1); ('`, `"a'); alert(1); ('"`},
		{"double quote", `"); alert(1); ("`, `"\"); alert(1); (\""`},
		{"backslash", `\`, `"\\"`},
		{"script close", `</script>`, `"\u003c/script\u003e"`},
		{"ampersand", `a&b`, `"a\u0026b"`},
		{"line separators", "a\u2028b\u2029c", `"a\u2028b\u2029c"`},
		{"newline", "a\nb", `"a\nb"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Invocation(MethodFill, "#q", tt.value, ActionFill, "id")
			require.NoError(t, err)
			assert.Equal(t,
				`window.__LOOKOUT__ && window.__LOOKOUT__.fillAndPost("#q", `+tt.want+`, "fill", "id");`,
				got)
		})
	}
}

package loopback

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/lookout/pkg/agent/tools"
	"github.com/entrhq/lookout/pkg/browser"
	"github.com/entrhq/lookout/pkg/browser/bridge"
	"github.com/entrhq/lookout/pkg/project"
	browsertools "github.com/entrhq/lookout/pkg/tools/browser"
	"github.com/entrhq/lookout/pkg/types"
	"github.com/entrhq/lookout/pkg/webview/webviewtest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// pageReplies maps bridge methods to the data the page would post back.
type pageReplies map[string]string

func newTestServer(t *testing.T, replies pageReplies, opts ...Option) (*Server, *browser.Browser) {
	t.Helper()

	factory := &webviewtest.Factory{}
	var b *browser.Browser
	factory.Prepare = func(v *webviewtest.View) {
		v.OnEval = func(script string) {
			rest := strings.TrimPrefix(script, bridge.Global+" && "+bridge.Global+".")
			open := strings.Index(rest, "(")
			method := rest[:open]
			var args []any
			require.NoError(t, json.Unmarshal([]byte("["+strings.TrimSuffix(rest[open+1:], ");")+"]"), &args))

			data, ok := replies[method]
			if !ok {
				return
			}
			b.HandleResult(bridge.Envelope{
				Action: args[len(args)-2].(string),
				ID:     args[len(args)-1].(string),
				Data:   data,
			})
		}
	}
	b = browser.New(factory, project.StaticPort(7777),
		browser.WithTimeouts(200*time.Millisecond, 200*time.Millisecond),
		browser.WithPollInterval(5*time.Millisecond),
	)

	cfg := DefaultConfig()
	cfg.ProjectPath = "/project"
	return New(b, cfg, opts...), b
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if method == http.MethodPost && body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["browserOpen"])
}

func TestOpenStateAndClose(t *testing.T) {
	s, b := newTestServer(t, nil)
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/browser/open", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "opened", decode(t, w)["action"])
	assert.True(t, b.IsOpen())

	w = do(t, h, http.MethodPost, "/browser/navigate", `{"url":"https://example.com/next"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodGet, "/browser/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)
	assert.Equal(t, true, state["isOpen"])
	assert.Equal(t, "https://example.com/next", state["currentUrl"])
	assert.Equal(t, float64(1), state["historyLength"])
	assert.Nil(t, state["lockHolder"])

	w = do(t, h, http.MethodPost, "/browser/close", `{}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, b.IsOpen())
}

func TestErrorMapping(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		kind   string
	}{
		{"unsafe scheme", "/browser/open", `{"url":"javascript:alert(1)"}`, http.StatusBadRequest, "invalid_input"},
		{"missing url", "/browser/open", `{}`, http.StatusBadRequest, "invalid_input"},
		{"navigate closed", "/browser/navigate", `{"url":"https://example.com"}`, http.StatusConflict, "precondition_failed"},
		{"extract closed", "/browser/extract", `{}`, http.StatusConflict, "precondition_failed"},
		{"bad bounds", "/browser/bounds", `{"x":0,"y":0,"width":-1,"height":10}`, http.StatusBadRequest, "invalid_input"},
		{"visible missing", "/browser/visible", `{}`, http.StatusBadRequest, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, decode(t, w)["kind"])
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{browser.ErrInvalidInput, http.StatusBadRequest},
		{browser.ErrPreconditionFailed, http.StatusConflict},
		{&browser.LockConflictError{Holder: "a"}, http.StatusLocked},
		{&browser.TimeoutError{Op: "extract", Budget: time.Second}, http.StatusGatewayTimeout},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&browser.TransportError{Op: "open", Err: assert.AnError}, http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestCommandsRequireJSON(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s.Handler(), http.MethodPost, "/browser/open", `{"url":"https://example.com"}`,
		"Content-Type", "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestExtractRoundTrip(t *testing.T) {
	s, b := newTestServer(t, pageReplies{
		bridge.MethodExtract: `{"title":"Docs","url":"https://example.com/docs","text":"Hello","charCount":5}`,
		bridge.MethodLinks:   `[{"text":"Home","href":"https://example.com/","isExternal":false}]`,
	})
	h := s.Handler()
	_, err := b.Open(context.Background(), "/project", "https://example.com")
	require.NoError(t, err)

	w := do(t, h, http.MethodPost, "/browser/extract", `{"maxChars":100}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Docs", decode(t, w)["title"])
	assert.Equal(t, browser.StatusReady, b.GetState().Status)

	w = do(t, h, http.MethodPost, "/browser/links", `{"filter":"home"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["links"], 1)
}

func TestExtractTimeout(t *testing.T) {
	s, b := newTestServer(t, nil)
	_, err := b.Open(context.Background(), "/project", "https://example.com")
	require.NoError(t, err)

	w := do(t, s.Handler(), http.MethodPost, "/browser/extract", `{}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "timeout", decode(t, w)["kind"])
}

func TestLockRoutes(t *testing.T) {
	s, b := newTestServer(t, nil)
	h := s.Handler()
	_, err := b.Open(context.Background(), "/project", "https://example.com")
	require.NoError(t, err)

	w := do(t, h, http.MethodPost, "/browser/lock", `{"agentId":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/browser/lock", `{}`, AgentHeader, "bob")
	require.Equal(t, http.StatusLocked, w.Code)
	body := decode(t, w)
	assert.Equal(t, "lock_conflict", body["kind"])
	assert.Equal(t, "alice", body["holder"])

	w = do(t, h, http.MethodPost, "/browser/unlock", `{}`, AgentHeader, "alice")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "", b.LockHolder())
}

func TestResultEndpoint(t *testing.T) {
	s, b := newTestServer(t, nil)
	h := s.Handler()

	w := do(t, h, http.MethodPost, bridge.ResultPath, `not json`, "Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, bridge.ResultPath, `{"data":"{}"}`, "Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code, "action is required")

	_, err := b.Open(context.Background(), "/project", "https://example.com")
	require.NoError(t, err)

	snapshot, err := json.Marshal(bridge.Envelope{
		Action: bridge.ActionAuto,
		Data:   `{"title":"Loaded","url":"https://example.com/","text":"body"}`,
	})
	require.NoError(t, err)
	w = do(t, h, http.MethodPost, bridge.ResultPath, string(snapshot),
		"Content-Type", "text/plain", "Origin", "https://example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	state := b.GetState()
	assert.Equal(t, "Loaded", state.Title)
	assert.Equal(t, browser.StatusReady, state.Status)
}

func TestResultPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s.Handler(), http.MethodOptions, bridge.ResultPath, "",
		"Origin", "https://example.com",
		"Access-Control-Request-Method", "POST")
	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestResultRateLimit(t *testing.T) {
	factory := &webviewtest.Factory{}
	b := browser.New(factory, project.StaticPort(7777))
	cfg := DefaultConfig()
	cfg.RateLimit, cfg.RateBurst = 1, 1
	h := New(b, cfg).Handler()

	body := `{"action":"auto","data":"{}"}`
	first := do(t, h, http.MethodPost, bridge.ResultPath, body, "Content-Type", "text/plain")
	second := do(t, h, http.MethodPost, bridge.ResultPath, body, "Content-Type", "text/plain")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestBodyLimit(t *testing.T) {
	factory := &webviewtest.Factory{}
	b := browser.New(factory, project.StaticPort(7777))
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 16
	h := New(b, cfg).Handler()

	w := do(t, h, http.MethodPost, bridge.ResultPath, `{"action":"auto","data":"`+strings.Repeat("x", 64)+`"}`,
		"Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToolRoutes(t *testing.T) {
	s, b := newTestServer(t, nil)
	reg := tools.NewRegistry()
	require.NoError(t, browsertools.NewToolRegistry(b, "/project").Register(reg))
	s = New(b, s.cfg, WithTools(reg))
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["tools"], 3)

	call, err := json.Marshal(map[string]string{
		"call": "<tool><tool_name>browser_open</tool_name><arguments><url>https://example.com</url></arguments></tool>",
	})
	require.NoError(t, err)
	w = do(t, h, http.MethodPost, "/tools/call", string(call))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["output"], "Opened browser")
	assert.True(t, b.IsOpen())

	w = do(t, h, http.MethodPost, "/tools/call", `{"call":"<tool><tool_name>browser_nope</tool_name><arguments></arguments></tool>"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, http.MethodPost, "/tools/call", `{"call":"no tool here"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToolRoutesDisabled(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := do(t, s.Handler(), http.MethodGet, "/tools", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventStream(t *testing.T) {
	hub := NewHub()
	s, _ := newTestServer(t, nil, WithHub(hub))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/browser/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var name string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "event:") {
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			}
			if line == "" && name != "" {
				return name
			}
		}
	}

	assert.Equal(t, "state", readEvent())
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(types.NewBrowserOpenedEvent("https://example.com"))
	assert.Equal(t, "browser_opened", readEvent())
}

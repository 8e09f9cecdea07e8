package devtools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/entrhq/lookout/pkg/webview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_ImplementsInterfaces(t *testing.T) {
	var _ webview.Factory = NewFactory()
	var _ webview.View = (*View)(nil)
}

func TestFactory_CreateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFactory().Create(ctx, webview.Options{Headless: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestView_InitScriptRunsOnNavigation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("LOOKOUT_BROWSER_TESTS") == "" {
		t.Skip("set LOOKOUT_BROWSER_TESTS=1 to run tests against a real Chrome")
	}

	hits := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			hits <- r.URL.Query().Get("v")
			return
		}
		_, _ = w.Write([]byte(`<html><body><p>fixture</p></body></html>`))
	}))
	defer srv.Close()

	ctx := context.Background()
	view, err := NewFactory().Create(ctx, webview.Options{
		URL:        srv.URL,
		InitScript: `fetch('/ping?v=' + location.pathname)`,
		Headless:   true,
	})
	require.NoError(t, err)
	defer view.Close()

	select {
	case v := <-hits:
		assert.Equal(t, "/", v)
	case <-time.After(10 * time.Second):
		t.Fatal("init script never ran")
	}

	assert.Error(t, view.Eval(ctx, `throw new Error("boom")`))
	assert.NoError(t, view.Hide(ctx))
	assert.NoError(t, view.Close())
	assert.NoError(t, view.Close())
}

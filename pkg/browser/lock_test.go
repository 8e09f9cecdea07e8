package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/lookout/pkg/types"
)

func TestLock_Sequence(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.browser.AcquireLock("A"), ErrPreconditionFailed, "no session")
	assert.NoError(t, h.browser.ReleaseLock("A"), "release on a closed browser is a no-op")

	h.open("https://example.com")

	require.NoError(t, h.browser.AcquireLock("A"))

	err := h.browser.AcquireLock("B")
	require.ErrorIs(t, err, ErrLockConflict)
	var conflict *LockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A", conflict.Holder)
	assert.Contains(t, err.Error(), `"A"`)

	require.NoError(t, h.browser.AcquireLock("A"), "re-acquire by holder")

	require.NoError(t, h.browser.ReleaseLock("B"))
	assert.Equal(t, "A", h.browser.LockHolder())
	holder := h.browser.GetState().LockHolder
	require.NotNil(t, holder)
	assert.Equal(t, "A", *holder)

	require.NoError(t, h.browser.ReleaseLock("A"))
	assert.Equal(t, "", h.browser.LockHolder())

	require.NoError(t, h.browser.AcquireLock("B"))
	assert.Equal(t, "B", h.browser.LockHolder())

	assert.ErrorIs(t, h.browser.AcquireLock(""), ErrInvalidInput)

	assert.Equal(t, []types.BrowserEventType{
		types.EventTypeBrowserOpened,
		types.EventTypeBrowserLockAcquired,
		types.EventTypeBrowserLockReleased,
		types.EventTypeBrowserLockAcquired,
	}, h.eventTypes())
}

func TestLock_AdvisoryDoesNotBlockCommands(t *testing.T) {
	h := newHarness(t)
	h.open("https://example.com")
	h.setResponder(func(_ string, args []any) (string, bool) {
		return `{"ok":true,"selector":"#a"}`, true
	})
	require.NoError(t, h.browser.AcquireLock("A"))

	result, err := h.browser.ClickElement(WithAgent(context.Background(), "B"), "#a")
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestLock_Strict(t *testing.T) {
	h := newHarness(t, WithLockMode(LockStrict))
	h.open("https://example.com")
	h.setResponder(func(_ string, args []any) (string, bool) {
		return `{"ok":true,"selector":"#a"}`, true
	})

	_, err := h.browser.ClickElement(WithAgent(context.Background(), "A"), "#a")
	assert.ErrorIs(t, err, ErrPreconditionFailed, "nobody holds the lock")

	require.NoError(t, h.browser.AcquireLock("A"))

	_, err = h.browser.FillField(WithAgent(context.Background(), "B"), "#a", "x")
	var conflict *LockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A", conflict.Holder)

	_, err = h.browser.ClickElement(context.Background(), "#a")
	assert.ErrorIs(t, err, ErrLockConflict, "anonymous callers are not the holder")

	result, err := h.browser.ClickElement(WithAgent(context.Background(), "A"), "#a")
	require.NoError(t, err)
	assert.True(t, result.OK)

	_, err = h.browser.GetLinks(WithAgent(context.Background(), "B"), "")
	assert.NotErrorIs(t, err, ErrLockConflict, "reads are not gated")
}

func TestAgentFromContext(t *testing.T) {
	_, ok := AgentFromContext(context.Background())
	assert.False(t, ok)

	_, ok = AgentFromContext(WithAgent(context.Background(), ""))
	assert.False(t, ok)

	id, ok := AgentFromContext(WithAgent(context.Background(), "agent-7"))
	assert.True(t, ok)
	assert.Equal(t, "agent-7", id)
}

package browser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/entrhq/lookout/pkg/agent/tools"
	core "github.com/entrhq/lookout/pkg/browser"
)

type lockArgs struct {
	XMLName xml.Name `xml:"arguments"`
	AgentID string   `xml:"agent_id"`
}

func lockSchema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"agent_id": tools.StringProperty("Your agent id. Defaults to the id of the calling agent."),
		},
		nil,
	)
}

// LockTool takes the browser lock.
type LockTool struct {
	openOnly
}

// NewLockTool creates the browser_lock tool.
func NewLockTool(b *core.Browser) *LockTool {
	return &LockTool{openOnly{baseTool{browser: b}}}
}

// Name returns the tool name.
func (t *LockTool) Name() string { return "browser_lock" }

// Description returns the tool description.
func (t *LockTool) Description() string {
	return "Take the browser lock before clicking or filling so other agents know you are using it. Fails and names the holder if another agent has it."
}

// Schema returns the tool's JSON schema.
func (t *LockTool) Schema() map[string]interface{} { return lockSchema() }

// Execute acquires the lock.
func (t *LockTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input lockArgs
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	id := agentID(ctx, input.AgentID)

	if err := t.browser.AcquireLock(id); err != nil {
		var conflict *core.LockConflictError
		if errors.As(err, &conflict) {
			return "", map[string]interface{}{"holder": conflict.Holder}, err
		}
		return "", nil, err
	}
	return fmt.Sprintf("Browser locked by %s. Release it with browser_unlock when done.", id), map[string]interface{}{"holder": id}, nil
}

// UnlockTool releases the browser lock.
type UnlockTool struct {
	openOnly
}

// NewUnlockTool creates the browser_unlock tool.
func NewUnlockTool(b *core.Browser) *UnlockTool {
	return &UnlockTool{openOnly{baseTool{browser: b}}}
}

// Name returns the tool name.
func (t *UnlockTool) Name() string { return "browser_unlock" }

// Description returns the tool description.
func (t *UnlockTool) Description() string {
	return "Release the browser lock you hold. Does nothing if you do not hold it."
}

// Schema returns the tool's JSON schema.
func (t *UnlockTool) Schema() map[string]interface{} { return lockSchema() }

// Execute releases the lock.
func (t *UnlockTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input lockArgs
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	id := agentID(ctx, input.AgentID)

	before := t.browser.LockHolder()
	if err := t.browser.ReleaseLock(id); err != nil {
		return "", nil, err
	}
	if before != id {
		return fmt.Sprintf("%s does not hold the browser lock; nothing to release.", id), nil, nil
	}
	return "Browser lock released.", nil, nil
}

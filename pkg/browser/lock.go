package browser

import (
	"context"

	"github.com/entrhq/lookout/pkg/types"
)

type agentKey struct{}

// WithAgent tags ctx with the calling agent's id. Strict lock mode uses it to
// decide whether click and fill may proceed.
func WithAgent(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentKey{}, agentID)
}

// AgentFromContext returns the id set by WithAgent.
func AgentFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(agentKey{}).(string)
	return id, ok && id != ""
}

// AcquireLock makes agentID the lock holder. Re-acquiring a lock you already
// hold succeeds; acquiring one held by another agent returns a
// *LockConflictError naming the holder.
func (b *Browser) AcquireLock(agentID string) error {
	if agentID == "" {
		return invalid("agent id is required to acquire the browser lock")
	}

	b.mu.Lock()
	s := b.sess
	if s == nil {
		b.mu.Unlock()
		return notOpen("lock")
	}
	switch s.lockHolder {
	case agentID:
		b.mu.Unlock()
		return nil
	case "":
		s.lockHolder = agentID
	default:
		holder := s.lockHolder
		b.mu.Unlock()
		return &LockConflictError{Holder: holder}
	}
	b.mu.Unlock()

	b.logger.Debugf("browser lock acquired by %s", agentID)
	b.emit(types.NewBrowserLockAcquiredEvent(agentID))
	return nil
}

// ReleaseLock clears the lock if agentID holds it. Releasing a lock held by
// someone else, or with no session open, does nothing.
func (b *Browser) ReleaseLock(agentID string) error {
	b.mu.Lock()
	s := b.sess
	if s == nil || agentID == "" || s.lockHolder != agentID {
		b.mu.Unlock()
		return nil
	}
	s.lockHolder = ""
	b.mu.Unlock()

	b.logger.Debugf("browser lock released by %s", agentID)
	b.emit(types.NewBrowserLockReleasedEvent(agentID))
	return nil
}

// LockHolder returns the current holder, or "" when unlocked or closed.
func (b *Browser) LockHolder() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return ""
	}
	return b.sess.lockHolder
}

// checkLock enforces strict mode for the agent in ctx. Caller holds b.mu.
func (b *Browser) checkLock(ctx context.Context, s *session, op string) error {
	if b.lockMode != LockStrict {
		return nil
	}
	agent, _ := AgentFromContext(ctx)
	switch s.lockHolder {
	case "":
		return notLocked(op)
	case agent:
		return nil
	default:
		return &LockConflictError{Holder: s.lockHolder}
	}
}

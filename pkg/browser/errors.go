package browser

import (
	"errors"
	"fmt"
	"time"
)

// Every error returned by Browser matches exactly one of these with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrLockConflict       = errors.New("browser lock conflict")
	ErrTimeout            = errors.New("timed out waiting for page")
	ErrTransport          = errors.New("browser transport failure")
)

// LockConflictError names the agent holding the lock.
type LockConflictError struct {
	Holder string
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("browser is locked by agent %q", e.Holder)
}

func (e *LockConflictError) Unwrap() error { return ErrLockConflict }

// TimeoutError reports a command whose page result never arrived.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s waiting for the page to respond", e.Op, e.Budget)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// TransportError wraps a failure from the hosted view.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

func notOpen(op string) error {
	return fmt.Errorf("%w: %s requires an open browser; call open first", ErrPreconditionFailed, op)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notLocked(op string) error {
	return fmt.Errorf("%w: %s requires the browser lock in strict mode; acquire it first", ErrPreconditionFailed, op)
}

// Package correlator hands results posted by the page back to the goroutine
// that asked for them.
//
// A Correlator holds a single slot. A command arms it, which yields a request
// id, evaluates an invocation carrying that id, and then waits. Envelopes that
// arrive for an earlier request are dropped so a late reply can never satisfy a
// newer command.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/lookout/pkg/browser/bridge"
	"github.com/google/uuid"
)

// DefaultPollInterval is the backstop interval at which a waiter re-checks the slot.
const DefaultPollInterval = 50 * time.Millisecond

// ErrTimeout is matched by every TimeoutError.
var ErrTimeout = errors.New("timed out waiting for page result")

// TimeoutError reports that no envelope arrived within the budget.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no result from page within %s", e.Budget)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// Correlator is safe for concurrent use.
type Correlator struct {
	mu       sync.Mutex
	slot     *bridge.Envelope
	expected string

	// notify is buffered so Deliver never blocks on a waiter.
	notify       chan struct{}
	pollInterval time.Duration
	newID        func() string
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithIDGenerator replaces the uuid request id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Correlator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates an unarmed Correlator with an empty slot.
func New(opts ...Option) *Correlator {
	c := &Correlator{
		notify:       make(chan struct{}, 1),
		pollInterval: DefaultPollInterval,
		newID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Arm clears the slot and starts expecting a reply tagged with the returned id.
func (c *Correlator) Arm() string {
	id := c.newID()

	c.mu.Lock()
	c.slot = nil
	c.expected = id
	c.mu.Unlock()

	c.drainNotify()
	return id
}

// Disarm clears the slot and forgets the expected id.
func (c *Correlator) Disarm() {
	c.mu.Lock()
	c.slot = nil
	c.expected = ""
	c.mu.Unlock()

	c.drainNotify()
}

// Deliver stores env, overwriting any unread value, and reports whether it was kept.
//
// While armed, only an envelope carrying the expected id is kept. Untagged
// envelopes (the page's automatic load snapshot) are accepted only when
// nothing is armed.
func (c *Correlator) Deliver(env bridge.Envelope) bool {
	c.mu.Lock()
	if c.expected != "" && env.ID != c.expected {
		c.mu.Unlock()
		return false
	}
	stored := env
	c.slot = &stored
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true
}

// Await takes the value in the slot, waiting up to timeout for one to arrive.
// Taking a value disarms the correlator. The slot lock is never held while waiting.
func (c *Correlator) Await(ctx context.Context, timeout time.Duration) (bridge.Envelope, error) {
	if env, ok := c.take(); ok {
		return env, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return bridge.Envelope{}, ctx.Err()
		case <-timer.C:
			if env, ok := c.take(); ok {
				return env, nil
			}
			return bridge.Envelope{}, &TimeoutError{Budget: timeout}
		case <-c.notify:
		case <-ticker.C:
		}

		if env, ok := c.take(); ok {
			return env, nil
		}
	}
}

// Pending reports whether a value is waiting in the slot.
func (c *Correlator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot != nil
}

func (c *Correlator) take() (bridge.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil {
		return bridge.Envelope{}, false
	}
	env := *c.slot
	c.slot = nil
	c.expected = ""
	return env, true
}

func (c *Correlator) drainNotify() {
	select {
	case <-c.notify:
	default:
	}
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/lookout/pkg/browser/bridge"
	"github.com/entrhq/lookout/pkg/browser/correlator"
	"github.com/entrhq/lookout/pkg/types"
)

// command describes one bridge round trip.
type command struct {
	op      string
	method  string
	action  string
	timeout time.Duration
	locked  bool
	args    []any
}

// ExtractContent returns the page text, optionally scoped to a selector, and
// records it as the session's current content. A selector that matches
// nothing yields a PageContent with Error set.
func (b *Browser) ExtractContent(ctx context.Context, opts ExtractOptions) (*PageContent, error) {
	if opts.MaxChars < 0 {
		return nil, invalid("maxChars must not be negative, got %d", opts.MaxChars)
	}
	maxChars := opts.MaxChars
	if maxChars == 0 {
		maxChars = bridge.DefaultMaxChars
	}

	env, err := b.run(ctx, command{
		op:      "extract content",
		method:  bridge.MethodExtract,
		action:  bridge.ActionExtract,
		timeout: b.extractTimeout,
		args:    []any{opts.Selector, maxChars},
	})
	if err != nil {
		return nil, err
	}

	var content PageContent
	if err := env.DecodeData(&content); err != nil {
		return nil, &TransportError{Op: "extract content", Err: err}
	}
	if content.Error == "" {
		b.fold(content, false)
	}
	return &content, nil
}

// GetLinks returns up to 100 links, filtered by a case-insensitive substring
// of their text or href when filter is set.
func (b *Browser) GetLinks(ctx context.Context, filter string) ([]Link, error) {
	env, err := b.run(ctx, command{
		op:      "get links",
		method:  bridge.MethodLinks,
		action:  bridge.ActionLinks,
		timeout: b.actionTimeout,
		args:    []any{filter},
	})
	if err != nil {
		return nil, err
	}

	links := []Link{}
	if err := env.DecodeData(&links); err != nil {
		return nil, &TransportError{Op: "get links", Err: err}
	}
	return links, nil
}

// GetInteractive lists up to 50 form controls and clickable elements with a
// selector usable by ClickElement and FillField.
func (b *Browser) GetInteractive(ctx context.Context) ([]InteractiveElement, error) {
	env, err := b.run(ctx, command{
		op:      "get interactive elements",
		method:  bridge.MethodInteractive,
		action:  bridge.ActionInteractive,
		timeout: b.actionTimeout,
	})
	if err != nil {
		return nil, err
	}

	elements := []InteractiveElement{}
	if err := env.DecodeData(&elements); err != nil {
		return nil, &TransportError{Op: "get interactive elements", Err: err}
	}
	return elements, nil
}

// ClickElement clicks the first element matching selector.
func (b *Browser) ClickElement(ctx context.Context, selector string) (*ActionResult, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, invalid("selector is required to click")
	}
	return b.action(ctx, command{
		op:      "click",
		method:  bridge.MethodClick,
		action:  bridge.ActionClick,
		timeout: b.actionTimeout,
		locked:  true,
		args:    []any{selector},
	})
}

// FillField sets the value of the first element matching selector and fires
// input and change events.
func (b *Browser) FillField(ctx context.Context, selector, value string) (*ActionResult, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, invalid("selector is required to fill a field")
	}
	return b.action(ctx, command{
		op:      "fill",
		method:  bridge.MethodFill,
		action:  bridge.ActionFill,
		timeout: b.actionTimeout,
		locked:  true,
		args:    []any{selector, value},
	})
}

func (b *Browser) action(ctx context.Context, cmd command) (*ActionResult, error) {
	env, err := b.run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	var result ActionResult
	if err := env.DecodeData(&result); err != nil {
		return nil, &TransportError{Op: cmd.op, Err: err}
	}
	return &result, nil
}

// run performs arm, eval and await for cmd while holding the operation lock.
func (b *Browser) run(ctx context.Context, cmd command) (bridge.Envelope, error) {
	b.op.Lock()
	defer b.op.Unlock()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.mu.Lock()
	s := b.sess
	if s == nil {
		b.mu.Unlock()
		return bridge.Envelope{}, notOpen(cmd.op)
	}
	if cmd.locked {
		if err := b.checkLock(ctx, s, cmd.op); err != nil {
			b.mu.Unlock()
			return bridge.Envelope{}, err
		}
	}
	view := s.view
	s.cancel = cancel
	// Arming under the state lock keeps Close's Disarm from being undone.
	id := b.corr.Arm()
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.sess == s {
			s.cancel = nil
		}
		b.mu.Unlock()
	}()

	args := append(append([]any{}, cmd.args...), cmd.action, id)
	script, err := bridge.Invocation(cmd.method, args...)
	if err != nil {
		b.corr.Disarm()
		return bridge.Envelope{}, fmt.Errorf("%s: %w", cmd.op, err)
	}

	if err := view.Eval(waitCtx, script); err != nil {
		b.corr.Disarm()
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return bridge.Envelope{}, closedWhileWaiting(cmd.op)
		}
		return bridge.Envelope{}, &TransportError{Op: cmd.op, Err: err}
	}

	env, err := b.corr.Await(waitCtx, cmd.timeout)
	switch {
	case err == nil:
		return env, nil
	case errors.Is(err, correlator.ErrTimeout):
		b.logger.Warnf("%s: no result from page within %s", cmd.op, cmd.timeout)
		b.emit(types.NewBrowserTimeoutEvent(cmd.action, cmd.timeout))
		return bridge.Envelope{}, &TimeoutError{Op: cmd.op, Budget: cmd.timeout}
	case ctx.Err() != nil:
		b.corr.Disarm()
		return bridge.Envelope{}, fmt.Errorf("%s: %w", cmd.op, ctx.Err())
	default:
		// waitCtx was cancelled by Close.
		return bridge.Envelope{}, closedWhileWaiting(cmd.op)
	}
}

func closedWhileWaiting(op string) error {
	return fmt.Errorf("%w: browser closed while %s was waiting", ErrPreconditionFailed, op)
}

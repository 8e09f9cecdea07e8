package driver

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/entrhq/lookout/pkg/webview"
	"github.com/playwright-community/playwright-go"
)

// View is a webview.View backed by a Playwright page.
type View struct {
	engine   *Engine
	browser  playwright.Browser
	context  playwright.BrowserContext
	page     playwright.Page
	headless bool

	cdpOnce sync.Once
	cdp     playwright.CDPSession
	cdpErr  error

	closeOnce sync.Once
	closeErr  error
}

// Navigate starts loading url and returns once the navigation has committed.
func (v *View) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	waitUntil := playwright.WaitUntilState("commit")
	if _, err := v.page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Eval runs script in the page. The script's value is discarded.
func (v *View) Eval(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := v.page.Evaluate(script); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// SetBounds moves and resizes the window and makes it visible.
func (v *View) SetBounds(ctx context.Context, b webview.Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if v.headless {
		return nil
	}

	// A minimized window ignores geometry, so restore it first.
	if err := v.setWindowState(ctx, "normal"); err != nil {
		return err
	}
	return v.setWindowBounds(ctx, map[string]interface{}{
		"left":   int(math.Round(b.X)),
		"top":    int(math.Round(b.Y)),
		"width":  int(math.Round(b.Width)),
		"height": int(math.Round(b.Height)),
	})
}

// Show restores the window.
func (v *View) Show(ctx context.Context) error {
	if v.headless {
		return nil
	}
	if err := v.setWindowState(ctx, "normal"); err != nil {
		return err
	}
	return v.page.BringToFront()
}

// Hide minimizes the window.
func (v *View) Hide(ctx context.Context) error {
	if v.headless {
		return nil
	}
	return v.setWindowState(ctx, "minimized")
}

// Close releases the page, its context and the browser. Safe to call multiple times.
func (v *View) Close() error {
	err := v.close()
	v.engine.forget(v)
	return err
}

func (v *View) close() error {
	v.closeOnce.Do(func() {
		var errs []error
		if err := v.page.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := v.context.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := v.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			v.closeErr = fmt.Errorf("errors closing view: %v", errs)
		}
	})
	return v.closeErr
}

func (v *View) session() (playwright.CDPSession, error) {
	v.cdpOnce.Do(func() {
		v.cdp, v.cdpErr = v.context.NewCDPSession(v.page)
		if v.cdpErr != nil {
			v.cdpErr = fmt.Errorf("failed to open devtools session: %w", v.cdpErr)
		}
	})
	return v.cdp, v.cdpErr
}

func (v *View) windowID() (int, error) {
	cdp, err := v.session()
	if err != nil {
		return 0, err
	}

	result, err := cdp.Send("Browser.getWindowForTarget", map[string]interface{}{})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve window: %w", err)
	}

	fields, ok := result.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected window lookup result %T", result)
	}
	id, ok := fields["windowId"].(float64)
	if !ok {
		return 0, fmt.Errorf("window lookup returned no windowId")
	}
	return int(id), nil
}

func (v *View) setWindowState(ctx context.Context, state string) error {
	return v.setWindowBounds(ctx, map[string]interface{}{"windowState": state})
}

func (v *View) setWindowBounds(ctx context.Context, bounds map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := v.windowID()
	if err != nil {
		return err
	}

	cdp, _ := v.session()
	if _, err := cdp.Send("Browser.setWindowBounds", map[string]interface{}{
		"windowId": id,
		"bounds":   bounds,
	}); err != nil {
		return fmt.Errorf("failed to update window: %w", err)
	}
	return nil
}

// Package devtools hosts the controlled view in a Chrome window driven over
// the DevTools protocol.
package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/entrhq/lookout/pkg/webview"
)

// Factory launches one Chrome process per view.
type Factory struct {
	// ExecPath overrides the Chrome binary chromedp would pick.
	ExecPath string

	// ExtraFlags are passed to Chrome as --name=value.
	ExtraFlags map[string]interface{}
}

// NewFactory returns a Factory using the default Chrome binary.
func NewFactory() *Factory {
	return &Factory{}
}

// Create starts Chrome, installs the init script and starts loading opts.URL.
func (f *Factory) Create(ctx context.Context, opts webview.Options) (webview.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("no-first-run", true),
	)
	if opts.Hidden && !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("start-minimized", true))
	}
	if f.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(f.ExecPath))
	}
	for name, value := range f.ExtraFlags {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}

	// The view outlives the request that created it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	v := &View{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		headless:    opts.Headless,
	}

	if opts.InitScript != "" {
		err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(opts.InitScript).Do(ctx)
			return err
		}))
		if err != nil {
			_ = v.Close()
			return nil, fmt.Errorf("failed to install init script: %w", err)
		}
	}

	if opts.URL != "" {
		if err := v.Navigate(ctx, opts.URL); err != nil {
			_ = v.Close()
			return nil, err
		}
	}

	return v, nil
}

// View is a webview.View backed by a chromedp tab.
type View struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	headless    bool

	closeOnce sync.Once
	closeErr  error
}

// Navigate assigns the location from inside the page so the call returns
// without waiting for the load.
func (v *View) Navigate(ctx context.Context, url string) error {
	target, err := json.Marshal(url)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := v.evaluate(ctx, fmt.Sprintf("window.location.assign(%s)", target)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Eval runs script in the page. The script's value is discarded.
func (v *View) Eval(ctx context.Context, script string) error {
	if err := v.evaluate(ctx, script); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

func (v *View) evaluate(ctx context.Context, expr string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(v.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exception, err := runtime.Evaluate(expr).Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			return fmt.Errorf("page exception: %s", exception.Text)
		}
		return nil
	}))
}

// SetBounds moves and resizes the window and makes it visible.
func (v *View) SetBounds(ctx context.Context, b webview.Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if v.headless {
		return nil
	}

	// Geometry cannot be combined with a window state change.
	if err := v.setWindow(ctx, &browser.Bounds{WindowState: browser.WindowStateNormal}); err != nil {
		return err
	}
	return v.setWindow(ctx, &browser.Bounds{
		Left:   int64(math.Round(b.X)),
		Top:    int64(math.Round(b.Y)),
		Width:  int64(math.Round(b.Width)),
		Height: int64(math.Round(b.Height)),
	})
}

// Show restores the window.
func (v *View) Show(ctx context.Context) error {
	if v.headless {
		return nil
	}
	return v.setWindow(ctx, &browser.Bounds{WindowState: browser.WindowStateNormal})
}

// Hide minimizes the window.
func (v *View) Hide(ctx context.Context) error {
	if v.headless {
		return nil
	}
	return v.setWindow(ctx, &browser.Bounds{WindowState: browser.WindowStateMinimized})
}

func (v *View) setWindow(ctx context.Context, bounds *browser.Bounds) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := chromedp.Run(v.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		id, _, err := browser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		return browser.SetWindowBounds(id, bounds).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to update window: %w", err)
	}
	return nil
}

// Close shuts the tab and the Chrome process. Safe to call multiple times.
func (v *View) Close() error {
	v.closeOnce.Do(func() {
		v.closeErr = chromedp.Cancel(v.ctx)
		v.cancel()
		v.allocCancel()
	})
	return v.closeErr
}

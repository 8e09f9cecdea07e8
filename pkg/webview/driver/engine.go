// Package driver hosts the controlled view in a Chromium window driven by
// the Playwright driver.
package driver

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/entrhq/lookout/pkg/webview"
	"github.com/playwright-community/playwright-go"
)

// Engine owns the Playwright driver and every view it created.
type Engine struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	views       map[*View]struct{}
	initialized bool
	install     bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithInstall makes Initialize download the driver and browsers if missing.
func WithInstall(install bool) EngineOption {
	return func(e *Engine) { e.install = install }
}

// NewEngine creates an engine. The driver is started lazily on first use.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		views:   make(map[*View]struct{}),
		install: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize starts the Playwright driver. Calling it again is a no-op.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initializeLocked()
}

func (e *Engine) initializeLocked() error {
	if e.initialized {
		return nil
	}

	// Driver output would interleave with our own logs.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if e.install {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	e.playwright = pw
	e.initialized = true
	return nil
}

// Create launches a browser window showing a single page.
func (e *Engine) Create(ctx context.Context, opts webview.Options) (webview.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.initializeLocked(); err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.Hidden && !opts.Headless {
		launchOpts.Args = []string{"--start-minimized"}
	}
	browser, err := e.playwright.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// The window decides the page size so SetBounds resizes the content too.
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		NoViewport: playwright.Bool(true),
	})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	if opts.InitScript != "" {
		if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(opts.InitScript)}); err != nil {
			_ = bctx.Close()
			_ = browser.Close()
			return nil, fmt.Errorf("failed to install init script: %w", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	view := &View{
		engine:   e,
		browser:  browser,
		context:  bctx,
		page:     page,
		headless: opts.Headless,
	}

	if opts.URL != "" {
		if err := view.Navigate(ctx, opts.URL); err != nil {
			_ = view.close()
			return nil, err
		}
	}

	e.views[view] = struct{}{}
	return view, nil
}

// Views returns the number of open views.
func (e *Engine) Views() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.views)
}

func (e *Engine) forget(v *View) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.views, v)
}

// Shutdown closes every view and stops the driver.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for view := range e.views {
		_ = view.close()
		delete(e.views, view)
	}

	if e.initialized && e.playwright != nil {
		if err := e.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		e.initialized = false
	}

	return nil
}

// Package webview defines the hosted browser view the command surface drives.
//
// A View is a single window showing one page. Backends live in subpackages:
// driver (Chromium through the Playwright driver) and devtools (Chrome
// through the DevTools protocol).
package webview

import (
	"context"
	"fmt"
)

// Bounds positions the view in screen coordinates.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate reports bounds that cannot describe a window.
func (b Bounds) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("bounds must have a positive size, got %gx%g", b.Width, b.Height)
	}
	return nil
}

// Options configures a new view.
type Options struct {
	// URL is loaded once the view exists.
	URL string

	// InitScript runs in every document before any page script.
	InitScript string

	// Hidden creates the view without showing it.
	Hidden bool

	// Headless runs the engine without any window at all.
	Headless bool
}

// View is one controlled page. Navigate and Eval must not wait for the page
// to finish loading or for the script's result.
type View interface {
	Navigate(ctx context.Context, url string) error
	Eval(ctx context.Context, script string) error
	SetBounds(ctx context.Context, bounds Bounds) error
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	Close() error
}

// Factory creates views.
type Factory interface {
	Create(ctx context.Context, opts Options) (View, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, opts Options) (View, error)

// Create calls f.
func (f FactoryFunc) Create(ctx context.Context, opts Options) (View, error) {
	return f(ctx, opts)
}

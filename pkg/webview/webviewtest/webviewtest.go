// Package webviewtest provides an in-memory webview for tests.
package webviewtest

import (
	"context"
	"sync"

	"github.com/entrhq/lookout/pkg/webview"
)

// View records every call made to it.
type View struct {
	mu sync.Mutex

	Options     webview.Options
	Navigations []string
	Evals       []string
	Bounds      *webview.Bounds
	Visible     bool
	Closed      int

	NavigateErr error
	EvalErr     error
	CloseErr    error

	// OnEval runs after a successful Eval, outside the view's lock.
	OnEval func(script string)
}

// Navigate records url.
func (v *View) Navigate(_ context.Context, url string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.NavigateErr != nil {
		return v.NavigateErr
	}
	v.Navigations = append(v.Navigations, url)
	return nil
}

// Eval records script and calls OnEval.
func (v *View) Eval(_ context.Context, script string) error {
	v.mu.Lock()
	if v.EvalErr != nil {
		err := v.EvalErr
		v.mu.Unlock()
		return err
	}
	v.Evals = append(v.Evals, script)
	hook := v.OnEval
	v.mu.Unlock()

	if hook != nil {
		hook(script)
	}
	return nil
}

// SetBounds records b and marks the view visible.
func (v *View) SetBounds(_ context.Context, b webview.Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Bounds = &b
	v.Visible = true
	return nil
}

// Show marks the view visible.
func (v *View) Show(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Visible = true
	return nil
}

// Hide marks the view hidden.
func (v *View) Hide(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Visible = false
	return nil
}

// Close counts calls.
func (v *View) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Closed++
	return v.CloseErr
}

// LastEval returns the most recent script, or "".
func (v *View) LastEval() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.Evals) == 0 {
		return ""
	}
	return v.Evals[len(v.Evals)-1]
}

// NavigationCount returns how many navigations were recorded.
func (v *View) NavigationCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.Navigations)
}

// IsVisible reports the visibility flag.
func (v *View) IsVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Visible
}

// CloseCount returns how many times Close ran.
func (v *View) CloseCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Closed
}

// Factory hands out Views and remembers them.
type Factory struct {
	mu sync.Mutex

	Views     []*View
	CreateErr error

	// Prepare configures each new View before it is returned.
	Prepare func(v *View)
}

// Create returns a new View unless CreateErr is set.
func (f *Factory) Create(_ context.Context, opts webview.Options) (webview.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	v := &View{Options: opts, Visible: !opts.Hidden}
	if opts.URL != "" {
		v.Navigations = append(v.Navigations, opts.URL)
	}
	if f.Prepare != nil {
		f.Prepare(v)
	}
	f.Views = append(f.Views, v)
	return v, nil
}

// Last returns the most recently created View, or nil.
func (f *Factory) Last() *View {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Views) == 0 {
		return nil
	}
	return f.Views[len(f.Views)-1]
}

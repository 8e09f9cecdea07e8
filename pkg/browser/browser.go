// Package browser owns the controlled browser session: its state, the agent
// lock, and the commands that drive the hosted page through the bridge.
//
// A Browser holds at most one session. Open creates the hosted view with the
// bridge installed as an init script; content commands evaluate a bridge
// invocation and wait for the page to post its result back through
// HandleResult.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/lookout/pkg/browser/bridge"
	"github.com/entrhq/lookout/pkg/browser/correlator"
	"github.com/entrhq/lookout/pkg/logging"
	"github.com/entrhq/lookout/pkg/project"
	"github.com/entrhq/lookout/pkg/security/navigation"
	"github.com/entrhq/lookout/pkg/types"
	"github.com/entrhq/lookout/pkg/webview"
)

const (
	DefaultExtractTimeout = 10 * time.Second
	DefaultActionTimeout  = 5 * time.Second
)

// LockMode selects whether interaction commands require the agent lock.
type LockMode int

const (
	// LockAdvisory records a holder but lets any caller issue commands.
	LockAdvisory LockMode = iota
	// LockStrict rejects click and fill unless the calling agent holds the lock.
	LockStrict
)

type session struct {
	view       webview.View
	port       uint16
	url        string
	title      string
	text       string
	status     Status
	lockHolder string
	history    history

	// readyPending is set when a snapshot arrived before the view was installed.
	readyPending bool

	// cancel aborts the in-flight content command, if any.
	cancel context.CancelFunc
}

// Browser is safe for concurrent use.
type Browser struct {
	factory webview.Factory
	ports   project.PortResolver
	gate    *navigation.Gate
	corr    *correlator.Correlator
	logger  *logging.Logger
	emitter types.EventEmitter
	now     func() time.Time

	lockMode       LockMode
	headless       bool
	extractTimeout time.Duration
	actionTimeout  time.Duration
	corrOpts       []correlator.Option

	// lifecycle serializes Open, Navigate and Close.
	lifecycle sync.Mutex
	// op is held for a whole arm, eval, await cycle.
	op sync.Mutex
	// mu guards sess and is never held while waiting on the page.
	mu   sync.Mutex
	sess *session
	// opening receives snapshots posted while Open is still creating the view.
	opening *session
}

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(b *Browser) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithEventEmitter sets the observer for lifecycle and lock events.
func WithEventEmitter(e types.EventEmitter) Option {
	return func(b *Browser) { b.emitter = e }
}

// WithGate adds host allow and deny rules on top of the scheme check.
func WithGate(g *navigation.Gate) Option {
	return func(b *Browser) { b.gate = g }
}

// WithLockMode selects advisory or strict locking.
func WithLockMode(m LockMode) Option {
	return func(b *Browser) { b.lockMode = m }
}

// WithTimeouts overrides the wait budgets. Non-positive values keep the default.
func WithTimeouts(extract, action time.Duration) Option {
	return func(b *Browser) {
		if extract > 0 {
			b.extractTimeout = extract
		}
		if action > 0 {
			b.actionTimeout = action
		}
	}
}

// WithPollInterval sets how often a waiting command re-checks for a result.
func WithPollInterval(d time.Duration) Option {
	return func(b *Browser) {
		b.corrOpts = append(b.corrOpts, correlator.WithPollInterval(d))
	}
}

// WithCorrelator replaces the result correlator.
func WithCorrelator(c *correlator.Correlator) Option {
	return func(b *Browser) { b.corr = c }
}

// WithHeadless creates views without a window.
func WithHeadless(headless bool) Option {
	return func(b *Browser) { b.headless = headless }
}

// WithClock sets the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Browser) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a closed Browser.
func New(factory webview.Factory, ports project.PortResolver, opts ...Option) *Browser {
	b := &Browser{
		factory:        factory,
		ports:          ports,
		logger:         logging.Nop(),
		now:            time.Now,
		extractTimeout: DefaultExtractTimeout,
		actionTimeout:  DefaultActionTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.corr == nil {
		b.corr = correlator.New(b.corrOpts...)
	}
	return b
}

func (b *Browser) validateURL(url string) error {
	if err := b.gate.Validate(url); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// Open creates the hosted view at url. If a session is already open it
// navigates instead and reports NavigationNavigated.
func (b *Browser) Open(ctx context.Context, projectPath, url string) (*NavigationResult, error) {
	if err := b.validateURL(url); err != nil {
		return nil, err
	}

	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.IsOpen() {
		return b.navigate(ctx, url)
	}

	if b.ports == nil {
		return nil, fmt.Errorf("%w: no project configuration to resolve the loopback port", ErrPreconditionFailed)
	}
	port, err := b.ports.ResolvePort(projectPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreconditionFailed, err)
	}

	// The page starts loading inside Create, so its first snapshot can
	// arrive before the session is installed.
	pending := &session{port: port, url: url, status: StatusLoading}
	b.mu.Lock()
	b.opening = pending
	b.mu.Unlock()

	view, err := b.factory.Create(ctx, webview.Options{
		URL:        url,
		InitScript: bridge.Generate(port),
		Hidden:     true,
		Headless:   b.headless,
	})

	b.mu.Lock()
	b.opening = nil
	if err != nil {
		b.mu.Unlock()
		return nil, &TransportError{Op: "open", Err: err}
	}
	pending.view = view
	b.sess = pending
	ready := pending.readyPending
	pending.readyPending = false
	readyURL, readyTitle := pending.url, pending.title
	b.mu.Unlock()

	b.logger.Infof("browser opened at %s (loopback port %d)", url, port)
	b.emit(types.NewBrowserOpenedEvent(url))
	if ready {
		b.emit(types.NewBrowserReadyEvent(readyURL, readyTitle))
	}
	return &NavigationResult{Action: NavigationOpened, URL: url}, nil
}

// Navigate loads url in the open session. The URL being left is recorded in
// history; state is not rolled back if the view fails to navigate.
func (b *Browser) Navigate(ctx context.Context, url string) (*NavigationResult, error) {
	if err := b.validateURL(url); err != nil {
		return nil, err
	}

	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	return b.navigate(ctx, url)
}

func (b *Browser) navigate(ctx context.Context, url string) (*NavigationResult, error) {
	b.mu.Lock()
	s := b.sess
	if s == nil {
		b.mu.Unlock()
		return nil, notOpen("navigate")
	}
	if s.url != "" {
		s.history.push(HistoryEntry{URL: s.url, Title: s.title, VisitedAt: b.now().UnixMilli()})
	}
	s.url = url
	s.title = ""
	s.status = StatusLoading
	view := s.view
	b.mu.Unlock()

	if err := view.Navigate(ctx, url); err != nil {
		return nil, &TransportError{Op: "navigate", Err: err}
	}

	b.logger.Debugf("browser navigating to %s", url)
	b.emit(types.NewBrowserNavigatedEvent(url))
	return &NavigationResult{Action: NavigationNavigated, URL: url}, nil
}

// SetBounds positions the view and reveals it.
func (b *Browser) SetBounds(ctx context.Context, bounds webview.Bounds) error {
	if err := bounds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	view, err := b.currentView("set bounds")
	if err != nil {
		return err
	}
	if err := view.SetBounds(ctx, bounds); err != nil {
		return &TransportError{Op: "set bounds", Err: err}
	}
	return nil
}

// SetVisible shows or hides the view without touching the session.
func (b *Browser) SetVisible(ctx context.Context, visible bool) error {
	view, err := b.currentView("set visibility")
	if err != nil {
		return err
	}
	if visible {
		err = view.Show(ctx)
	} else {
		err = view.Hide(ctx)
	}
	if err != nil {
		return &TransportError{Op: "set visibility", Err: err}
	}
	return nil
}

// Close destroys the view and discards the session. Closing a closed browser
// succeeds. Errors from the view are logged.
func (b *Browser) Close(_ context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	b.mu.Lock()
	s := b.sess
	b.sess = nil
	var cancel context.CancelFunc
	if s != nil {
		cancel = s.cancel
	}
	b.mu.Unlock()

	if s == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	b.corr.Disarm()

	if err := s.view.Close(); err != nil {
		b.logger.Warnf("closing browser view: %v", err)
	}

	b.logger.Infof("browser closed")
	b.emit(types.NewBrowserClosedEvent())
	return nil
}

// IsOpen reports whether a session exists.
func (b *Browser) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess != nil
}

// Port returns the loopback port of the open session.
func (b *Browser) Port() (uint16, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return 0, false
	}
	return b.sess.port, true
}

// GetState returns a snapshot of the session. It never waits on the page.
func (b *Browser) GetState() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.sess
	if s == nil {
		return Snapshot{Status: StatusIdle, History: []HistoryEntry{}}
	}

	snap := Snapshot{
		Open:             true,
		URL:              s.url,
		Title:            s.title,
		Status:           s.status,
		HistoryLength:    s.history.len(),
		History:          s.history.recent(recentHistory),
		ExtractedPreview: preview(s.text),
	}
	if s.lockHolder != "" {
		holder := s.lockHolder
		snap.LockHolder = &holder
	}
	return snap
}

func (b *Browser) currentView(op string) (webview.View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return nil, notOpen(op)
	}
	return b.sess.view, nil
}

// fold records page content and marks the session ready. Snapshots from the
// page that was just navigated away from are dropped.
func (b *Browser) fold(content PageContent, snapshot bool) {
	b.mu.Lock()
	s, installed := b.sess, true
	if s == nil {
		s, installed = b.opening, false
	}
	if s == nil {
		b.mu.Unlock()
		return
	}
	if snapshot && fromPageLeft(s, content.URL) {
		b.mu.Unlock()
		b.logger.Debugf("ignoring snapshot of %s posted after navigating away", content.URL)
		return
	}
	s.title = content.Title
	if content.URL != "" {
		s.url = content.URL
	}
	s.text = content.Text
	s.status = StatusReady
	if !installed {
		s.readyPending = true
		b.mu.Unlock()
		return
	}
	url, title := s.url, s.title
	b.mu.Unlock()

	b.emit(types.NewBrowserReadyEvent(url, title))
}

// fromPageLeft reports whether url is the page the loading session just left.
func fromPageLeft(s *session, url string) bool {
	if s.status != StatusLoading || url == "" || url == s.url {
		return false
	}
	last, ok := s.history.last()
	return ok && last.URL == url
}

func (b *Browser) emit(event *types.BrowserEvent) {
	if b.emitter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warnf("browser event emitter panicked on %s: %v", event.Type, r)
		}
	}()
	b.emitter(event)
}

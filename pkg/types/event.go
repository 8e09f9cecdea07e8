package types

import (
	"encoding/json"
	"time"
)

// BrowserEventType defines the type of event emitted by the browser.
type BrowserEventType string

const (
	EventTypeBrowserOpened       BrowserEventType = "browser_opened"        // EventTypeBrowserOpened indicates a view was created for a new session.
	EventTypeBrowserClosed       BrowserEventType = "browser_closed"        // EventTypeBrowserClosed indicates the session was discarded.
	EventTypeBrowserNavigated    BrowserEventType = "browser_navigated"     // EventTypeBrowserNavigated indicates an open session started loading a new URL.
	EventTypeBrowserReady        BrowserEventType = "browser_ready"         // EventTypeBrowserReady indicates page content was folded into the session.
	EventTypeBrowserLockAcquired BrowserEventType = "browser_lock_acquired" // EventTypeBrowserLockAcquired indicates an agent took the advisory lock.
	EventTypeBrowserLockReleased BrowserEventType = "browser_lock_released" // EventTypeBrowserLockReleased indicates the holder released the lock.
	EventTypeBrowserTimeout      BrowserEventType = "browser_timeout"       // EventTypeBrowserTimeout indicates a command gave up waiting for the page.
)

// BrowserEvent represents an event emitted by the browser session.
type BrowserEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// URL is the page the event refers to, when there is one.
	URL string `json:"url,omitempty"`

	// Title is the page title for ready events.
	Title string `json:"title,omitempty"`

	// AgentID is the lock holder for lock events.
	AgentID string `json:"agentId,omitempty"`

	// Action is the command that timed out.
	Action string `json:"action,omitempty"`

	// Type indicates the kind of event.
	Type BrowserEventType `json:"type"`

	// At is when the event was created.
	At time.Time `json:"at"`
}

// EventEmitter receives browser events. Emitters must not block.
type EventEmitter func(event *BrowserEvent)

func newEvent(t BrowserEventType) *BrowserEvent {
	return &BrowserEvent{
		Type:     t,
		At:       time.Now(),
		Metadata: make(map[string]interface{}),
	}
}

// NewBrowserOpenedEvent creates an opened event.
func NewBrowserOpenedEvent(url string) *BrowserEvent {
	e := newEvent(EventTypeBrowserOpened)
	e.URL = url
	return e
}

// NewBrowserClosedEvent creates a closed event.
func NewBrowserClosedEvent() *BrowserEvent {
	return newEvent(EventTypeBrowserClosed)
}

// NewBrowserNavigatedEvent creates a navigated event.
func NewBrowserNavigatedEvent(url string) *BrowserEvent {
	e := newEvent(EventTypeBrowserNavigated)
	e.URL = url
	return e
}

// NewBrowserReadyEvent creates a ready event.
func NewBrowserReadyEvent(url, title string) *BrowserEvent {
	e := newEvent(EventTypeBrowserReady)
	e.URL = url
	e.Title = title
	return e
}

// NewBrowserLockAcquiredEvent creates a lock acquired event.
func NewBrowserLockAcquiredEvent(agentID string) *BrowserEvent {
	e := newEvent(EventTypeBrowserLockAcquired)
	e.AgentID = agentID
	return e
}

// NewBrowserLockReleasedEvent creates a lock released event.
func NewBrowserLockReleasedEvent(agentID string) *BrowserEvent {
	e := newEvent(EventTypeBrowserLockReleased)
	e.AgentID = agentID
	return e
}

// NewBrowserTimeoutEvent creates a timeout event.
func NewBrowserTimeoutEvent(action string, budget time.Duration) *BrowserEvent {
	e := newEvent(EventTypeBrowserTimeout)
	e.Action = action
	e.Metadata["budget_ms"] = budget.Milliseconds()
	return e
}

// WithMetadata adds metadata to the event and returns the event for chaining.
func (e *BrowserEvent) WithMetadata(key string, value interface{}) *BrowserEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsLifecycleEvent returns true for opened and closed events.
func (e *BrowserEvent) IsLifecycleEvent() bool {
	return e.Type == EventTypeBrowserOpened ||
		e.Type == EventTypeBrowserClosed
}

// IsLockEvent returns true if this is any lock-related event.
func (e *BrowserEvent) IsLockEvent() bool {
	return e.Type == EventTypeBrowserLockAcquired ||
		e.Type == EventTypeBrowserLockReleased
}

// JSON encodes the event for observers outside the process.
func (e *BrowserEvent) JSON() ([]byte, error) {
	return json.Marshal(e)
}

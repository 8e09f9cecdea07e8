package browser

// Status is the load state of the hosted page.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

// HistoryEntry is a page the session navigated away from.
type HistoryEntry struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	VisitedAt int64  `json:"visitedAt"` // epoch milliseconds
}

// Snapshot is a read-only copy of the session taken by GetState.
type Snapshot struct {
	Open             bool           `json:"isOpen"`
	URL              string         `json:"currentUrl"`
	Title            string         `json:"pageTitle"`
	Status           Status         `json:"status"`
	LockHolder       *string        `json:"lockHolder"`
	HistoryLength    int            `json:"historyLength"`
	History          []HistoryEntry `json:"recentHistory"`
	ExtractedPreview string         `json:"extractedPreview"`
}

// PageContent is the result of a text extraction.
type PageContent struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Text      string `json:"text"`
	CharCount int    `json:"charCount"`
	Truncated bool   `json:"truncated"`

	// Error is set by the page when the requested selector matched nothing.
	Error    string `json:"error,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// Link is an anchor found on the page.
type Link struct {
	Text       string `json:"text"`
	Href       string `json:"href"`
	IsExternal bool   `json:"isExternal"`
}

// InteractiveElement is a form control or clickable element.
type InteractiveElement struct {
	Type        string `json:"type"`
	InputType   string `json:"inputType,omitempty"`
	Name        string `json:"name,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Text        string `json:"text,omitempty"`
	Selector    string `json:"selector"`
}

// ActionResult reports the outcome of a click or fill inside the page.
// A missing element is reported through Error, not as a Go error.
type ActionResult struct {
	OK       bool   `json:"ok"`
	Selector string `json:"selector"`
	Error    string `json:"error,omitempty"`
}

// NavigationResult is returned by Open and Navigate.
type NavigationResult struct {
	// Action is "opened" when a view was created and "navigated" otherwise.
	Action string `json:"action"`
	URL    string `json:"url"`
}

const (
	NavigationOpened    = "opened"
	NavigationNavigated = "navigated"
)

// ExtractOptions narrows a text extraction. Zero MaxChars means bridge.DefaultMaxChars.
type ExtractOptions struct {
	Selector string `json:"selector,omitempty"`
	MaxChars int    `json:"maxChars,omitempty"`
}

package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDBrowser is the identifier for the browser settings section
	SectionIDBrowser = "browser"

	// BackendPlaywright drives Chromium through the Playwright driver.
	BackendPlaywright = "playwright"

	// BackendDevTools drives Chrome directly over the DevTools protocol.
	BackendDevTools = "devtools"

	// LockModeAdvisory lets any caller issue commands while another agent holds the lock.
	LockModeAdvisory = "advisory"

	// LockModeStrict refuses interaction commands from anyone but the holder.
	LockModeStrict = "strict"

	defaultBackend       = BackendPlaywright
	defaultHeadless      = false
	defaultLockMode      = LockModeAdvisory
	defaultExtractWait   = 10 * time.Second
	defaultActionWait    = 5 * time.Second
	defaultPollInterval  = 50 * time.Millisecond
	defaultInstallDriver = true
)

// BrowserSection configures the controlled browser view.
type BrowserSection struct {
	Backend        string        `json:"backend"`
	Headless       bool          `json:"headless"`
	InstallDriver  bool          `json:"install_driver"`
	LockMode       string        `json:"lock_mode"`
	ExtractTimeout time.Duration `json:"extract_timeout"`
	ActionTimeout  time.Duration `json:"action_timeout"`
	PollInterval   time.Duration `json:"poll_interval"`
	AllowedHosts   []string      `json:"allowed_hosts"`
	DeniedHosts    []string      `json:"denied_hosts"`
	mu             sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser Settings"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Configure the controlled browser view: engine backend, lock arbitration, result timeouts and host policy."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"backend":         s.Backend,
		"headless":        s.Headless,
		"install_driver":  s.InstallDriver,
		"lock_mode":       s.LockMode,
		"extract_timeout": s.ExtractTimeout.String(),
		"action_timeout":  s.ActionTimeout.String(),
		"poll_interval":   s.PollInterval.String(),
		"allowed_hosts":   stringsToInterfaces(s.AllowedHosts),
		"denied_hosts":    stringsToInterfaces(s.DeniedHosts),
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "backend":
			s.Backend, err = parseString(key, value)
		case "headless":
			s.Headless, err = parseBool(key, value)
		case "install_driver":
			s.InstallDriver, err = parseBool(key, value)
		case "lock_mode":
			s.LockMode, err = parseString(key, value)
		case "extract_timeout":
			s.ExtractTimeout, err = parseDuration(key, value)
		case "action_timeout":
			s.ActionTimeout, err = parseDuration(key, value)
		case "poll_interval":
			s.PollInterval, err = parseDuration(key, value)
		case "allowed_hosts":
			s.AllowedHosts, err = parseStrings(key, value)
		case "denied_hosts":
			s.DeniedHosts, err = parseStrings(key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.Backend {
	case BackendPlaywright, BackendDevTools:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendPlaywright, BackendDevTools, s.Backend)
	}

	switch s.LockMode {
	case LockModeAdvisory, LockModeStrict:
	default:
		return fmt.Errorf("lock_mode must be %q or %q, got %q", LockModeAdvisory, LockModeStrict, s.LockMode)
	}

	if s.ExtractTimeout < 100*time.Millisecond || s.ExtractTimeout > 5*time.Minute {
		return fmt.Errorf("extract_timeout must be between 100ms and 5m, got %v", s.ExtractTimeout)
	}
	if s.ActionTimeout < 100*time.Millisecond || s.ActionTimeout > 5*time.Minute {
		return fmt.Errorf("action_timeout must be between 100ms and 5m, got %v", s.ActionTimeout)
	}
	if s.PollInterval < time.Millisecond || s.PollInterval > time.Second {
		return fmt.Errorf("poll_interval must be between 1ms and 1s, got %v", s.PollInterval)
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Backend = defaultBackend
	s.Headless = defaultHeadless
	s.InstallDriver = defaultInstallDriver
	s.LockMode = defaultLockMode
	s.ExtractTimeout = defaultExtractWait
	s.ActionTimeout = defaultActionWait
	s.PollInterval = defaultPollInterval
	s.AllowedHosts = nil
	s.DeniedHosts = nil
}

// BrowserSettings is an immutable copy of the section.
type BrowserSettings struct {
	Backend        string
	Headless       bool
	InstallDriver  bool
	StrictLock     bool
	ExtractTimeout time.Duration
	ActionTimeout  time.Duration
	PollInterval   time.Duration
	AllowedHosts   []string
	DeniedHosts    []string
}

// Settings returns a snapshot safe to use without the section lock.
func (s *BrowserSection) Settings() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return BrowserSettings{
		Backend:        s.Backend,
		Headless:       s.Headless,
		InstallDriver:  s.InstallDriver,
		StrictLock:     s.LockMode == LockModeStrict,
		ExtractTimeout: s.ExtractTimeout,
		ActionTimeout:  s.ActionTimeout,
		PollInterval:   s.PollInterval,
		AllowedHosts:   append([]string(nil), s.AllowedHosts...),
		DeniedHosts:    append([]string(nil), s.DeniedHosts...),
	}
}

// SetHeadless sets whether new views run without a window.
func (s *BrowserSection) SetHeadless(headless bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headless = headless
}

// SetBackend selects the engine used for new views.
func (s *BrowserSection) SetBackend(backend string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend = backend
}

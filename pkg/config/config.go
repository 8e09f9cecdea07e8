package config

import (
	"sync"
)

var (
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize loads configPath (DefaultPath when empty) into the process-wide
// manager. Calling it again replaces the manager.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	manager, err := NewDefaultManager(configPath)
	if err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// NewDefaultManager builds a manager with every built-in section registered
// and loaded from configPath.
func NewDefaultManager(configPath string) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	for _, section := range []Section{
		NewBrowserSection(),
		NewLoggingSection(),
		NewServerSection(),
	} {
		if err := manager.RegisterSection(section); err != nil {
			return nil, err
		}
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized reports whether Initialize has succeeded.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func sectionAs[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetBrowser returns the browser section from global config.
// Returns nil if config is not initialized.
func GetBrowser() *BrowserSection {
	return sectionAs[*BrowserSection](SectionIDBrowser)
}

// GetLogging returns the logging section from global config.
// Returns nil if config is not initialized.
func GetLogging() *LoggingSection {
	return sectionAs[*LoggingSection](SectionIDLogging)
}

// GetServer returns the server section from global config.
// Returns nil if config is not initialized.
func GetServer() *ServerSection {
	return sectionAs[*ServerSection](SectionIDServer)
}

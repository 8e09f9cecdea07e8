package config

import (
	"fmt"
	"strings"
	"sync"
)

// SectionIDLogging is the identifier for the logging section
const SectionIDLogging = "logging"

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// LoggingSection controls log verbosity and destination.
type LoggingSection struct {
	Level     string `json:"level"`
	Directory string `json:"directory"`
	Console   bool   `json:"console"`
	mu        sync.RWMutex
}

// NewLoggingSection creates a logging section with default settings.
func NewLoggingSection() *LoggingSection {
	s := &LoggingSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *LoggingSection) ID() string { return SectionIDLogging }

// Title returns the section title.
func (s *LoggingSection) Title() string { return "Logging" }

// Description returns the section description.
func (s *LoggingSection) Description() string {
	return "Configure log level, log directory and console mirroring."
}

// Data returns the current configuration data.
func (s *LoggingSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"level":     s.Level,
		"directory": s.Directory,
		"console":   s.Console,
	}
}

// SetData updates the configuration from the provided data.
func (s *LoggingSection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "level":
			var level string
			level, err = parseString(key, value)
			s.Level = strings.ToLower(level)
		case "directory":
			s.Directory, err = parseString(key, value)
		case "console":
			s.Console, err = parseBool(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *LoggingSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !validLevels[s.Level] {
		return fmt.Errorf("level must be one of debug, info, warn, error; got %q", s.Level)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *LoggingSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Level = "info"
	s.Directory = ""
	s.Console = false
}

// LoggingSettings is an immutable copy of the section.
type LoggingSettings struct {
	Level     string
	Directory string
	Console   bool
}

// Settings returns a snapshot safe to use without the section lock.
func (s *LoggingSection) Settings() LoggingSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return LoggingSettings{Level: s.Level, Directory: s.Directory, Console: s.Console}
}

// SetLevel overrides the level for this process.
func (s *LoggingSection) SetLevel(level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Level = strings.ToLower(strings.TrimSpace(level))
}

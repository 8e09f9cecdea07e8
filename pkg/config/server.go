package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDServer is the identifier for the loopback listener section
	SectionIDServer = "server"

	defaultServerPort = 0
	defaultRateLimit  = 50
	defaultRateBurst  = 100
	defaultMaxBodyKiB = 1024
)

// ServerSection configures the loopback listener pages post results to.
type ServerSection struct {
	// Port is 0 to pick a free port at startup.
	Port         int      `json:"port"`
	RateLimit    int      `json:"rate_limit"`
	RateBurst    int      `json:"rate_burst"`
	MaxBodyKiB   int      `json:"max_body_kib"`
	AllowOrigins []string `json:"allow_origins"`
	mu           sync.RWMutex
}

// NewServerSection creates a server section with default settings.
func NewServerSection() *ServerSection {
	s := &ServerSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *ServerSection) ID() string { return SectionIDServer }

// Title returns the section title.
func (s *ServerSection) Title() string { return "Loopback Server" }

// Description returns the section description.
func (s *ServerSection) Description() string {
	return "Configure the local listener that receives page results and serves the command API."
}

// Data returns the current configuration data.
func (s *ServerSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"port":          s.Port,
		"rate_limit":    s.RateLimit,
		"rate_burst":    s.RateBurst,
		"max_body_kib":  s.MaxBodyKiB,
		"allow_origins": stringsToInterfaces(s.AllowOrigins),
	}
}

// SetData updates the configuration from the provided data.
func (s *ServerSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "port":
			s.Port, err = parseInt(key, value)
		case "rate_limit":
			s.RateLimit, err = parseInt(key, value)
		case "rate_burst":
			s.RateBurst, err = parseInt(key, value)
		case "max_body_kib":
			s.MaxBodyKiB, err = parseInt(key, value)
		case "allow_origins":
			s.AllowOrigins, err = parseStrings(key, value)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *ServerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", s.Port)
	}
	if s.RateLimit < 1 {
		return fmt.Errorf("rate_limit must be positive, got %d", s.RateLimit)
	}
	if s.RateBurst < s.RateLimit {
		return fmt.Errorf("rate_burst (%d) must be at least rate_limit (%d)", s.RateBurst, s.RateLimit)
	}
	if s.MaxBodyKiB < 1 {
		return fmt.Errorf("max_body_kib must be positive, got %d", s.MaxBodyKiB)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *ServerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Port = defaultServerPort
	s.RateLimit = defaultRateLimit
	s.RateBurst = defaultRateBurst
	s.MaxBodyKiB = defaultMaxBodyKiB
	s.AllowOrigins = nil
}

// ServerSettings is an immutable copy of the section.
type ServerSettings struct {
	Port         int
	RateLimit    int
	RateBurst    int
	MaxBodyBytes int64
	AllowOrigins []string
}

// Settings returns a snapshot safe to use without the section lock.
func (s *ServerSection) Settings() ServerSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServerSettings{
		Port:         s.Port,
		RateLimit:    s.RateLimit,
		RateBurst:    s.RateBurst,
		MaxBodyBytes: int64(s.MaxBodyKiB) * 1024,
		AllowOrigins: append([]string(nil), s.AllowOrigins...),
	}
}

// SetPort overrides the listener port for this process.
func (s *ServerSection) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Port = port
}

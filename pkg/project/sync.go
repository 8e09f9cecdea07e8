// Package project reads per-project settings the browser subsystem depends on.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Dir holds per-project state.
	Dir = ".lookout"

	// SyncFile is written by the process that owns the loopback listener.
	SyncFile = "sync.json"
)

// ErrNoPort is returned when a project has not published a loopback port.
var ErrNoPort = errors.New("project has no loopback port")

// PortResolver finds the loopback port the page should post results to.
type PortResolver interface {
	ResolvePort(projectPath string) (uint16, error)
}

// PortResolverFunc adapts a function to PortResolver.
type PortResolverFunc func(projectPath string) (uint16, error)

// ResolvePort calls f.
func (f PortResolverFunc) ResolvePort(projectPath string) (uint16, error) {
	return f(projectPath)
}

// StaticPort always resolves to the same port.
type StaticPort uint16

// ResolvePort returns p.
func (p StaticPort) ResolvePort(string) (uint16, error) {
	if p == 0 {
		return 0, ErrNoPort
	}
	return uint16(p), nil
}

// SyncState is the content of <project>/.lookout/sync.json.
type SyncState struct {
	Port *int `json:"port"`
}

// SyncFileResolver reads the port from the project's sync file.
// There is no fallback port: a missing or malformed file is an error.
type SyncFileResolver struct{}

// SyncPath returns the sync file location for projectPath.
func SyncPath(projectPath string) string {
	return filepath.Join(projectPath, Dir, SyncFile)
}

// ResolvePort implements PortResolver.
func (SyncFileResolver) ResolvePort(projectPath string) (uint16, error) {
	if projectPath == "" {
		return 0, fmt.Errorf("project path cannot be empty")
	}

	path := SyncPath(projectPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s does not exist", ErrNoPort, path)
		}
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if state.Port == nil {
		return 0, fmt.Errorf("%w: %s has no port field", ErrNoPort, path)
	}
	if *state.Port < 1 || *state.Port > 65535 {
		return 0, fmt.Errorf("invalid port %d in %s", *state.Port, path)
	}

	return uint16(*state.Port), nil
}

// WritePort publishes port into the project's sync file, keeping any other
// fields already present. The write is atomic.
func WritePort(projectPath string, port uint16) error {
	dir := filepath.Join(projectPath, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := SyncPath(projectPath)
	fields := make(map[string]interface{})
	if data, err := os.ReadFile(path); err == nil {
		// A corrupt file is replaced rather than refused.
		_ = json.Unmarshal(data, &fields)
		if fields == nil {
			fields = make(map[string]interface{})
		}
	}
	fields["port"] = port

	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write sync file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace sync file: %w", err)
	}
	return nil
}

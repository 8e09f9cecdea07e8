// Package navigation decides whether a URL may be loaded into the controlled
// browser view. Only http and https targets are accepted; script-bearing and
// local schemes are refused before any session state changes.
package navigation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/net/idna"
)

// ErrInvalidURL is matched by every rejection the gate produces.
var ErrInvalidURL = errors.New("invalid navigation target")

// blockedSchemes can execute script or read local data when loaded into a view.
var blockedSchemes = []string{"javascript:", "data:", "file:", "blob:", "vbscript:"}

// BlockedSchemeError reports a URL whose scheme is explicitly refused.
type BlockedSchemeError struct {
	Scheme string
}

func (e *BlockedSchemeError) Error() string {
	return fmt.Sprintf("blocked URL scheme %q: only http and https are allowed", e.Scheme)
}

func (e *BlockedSchemeError) Unwrap() error { return ErrInvalidURL }

// UnsupportedSchemeError reports a URL that is not http or https.
type UnsupportedSchemeError struct {
	URL string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported URL %q: only http:// and https:// URLs are allowed", e.URL)
}

func (e *UnsupportedSchemeError) Unwrap() error { return ErrInvalidURL }

// BlockedHostError reports a host rejected by the configured host policy.
type BlockedHostError struct {
	Host string
}

func (e *BlockedHostError) Error() string {
	return fmt.Sprintf("navigation to host %q is not permitted", e.Host)
}

func (e *BlockedHostError) Unwrap() error { return ErrInvalidURL }

// Validate applies the scheme rules only. It is pure and never touches the network.
//
// The comparison is done on a trimmed, lower-cased copy; the caller keeps using
// the original string.
func Validate(rawURL string) error {
	lower := strings.ToLower(strings.TrimSpace(rawURL))

	for _, scheme := range blockedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return &BlockedSchemeError{Scheme: strings.TrimSuffix(scheme, ":")}
		}
	}

	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return &UnsupportedSchemeError{URL: rawURL}
	}

	return nil
}

// Gate combines the scheme rules with an optional host policy.
// The zero value and a Gate built from empty pattern lists behave exactly like Validate.
type Gate struct {
	allowedHosts []glob.Glob
	deniedHosts  []glob.Glob
}

// NewGate compiles host patterns such as "*.internal" or "localhost".
// Denied patterns take precedence; when allowed patterns are given, a host must
// match at least one of them.
func NewGate(allowed, denied []string) (*Gate, error) {
	g := &Gate{}

	for _, pattern := range allowed {
		compiled, err := compileHostPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern '%s': %w", pattern, err)
		}
		g.allowedHosts = append(g.allowedHosts, compiled)
	}

	for _, pattern := range denied {
		compiled, err := compileHostPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied host pattern '%s': %w", pattern, err)
		}
		g.deniedHosts = append(g.deniedHosts, compiled)
	}

	return g, nil
}

func compileHostPattern(pattern string) (glob.Glob, error) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return nil, errors.New("pattern cannot be empty")
	}
	return glob.Compile(pattern, '.')
}

// Validate checks the scheme rules first and then the host policy.
func (g *Gate) Validate(rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}
	if g == nil || (len(g.allowedHosts) == 0 && len(g.deniedHosts) == 0) {
		return nil
	}

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Hostname() == "" {
		return &UnsupportedSchemeError{URL: rawURL}
	}

	host, err := NormalizeHost(parsed.Hostname())
	if err != nil {
		return &BlockedHostError{Host: parsed.Hostname()}
	}

	for _, pattern := range g.deniedHosts {
		if pattern.Match(host) {
			return &BlockedHostError{Host: host}
		}
	}

	if len(g.allowedHosts) == 0 {
		return nil
	}
	for _, pattern := range g.allowedHosts {
		if pattern.Match(host) {
			return nil
		}
	}
	return &BlockedHostError{Host: host}
}

// NormalizeHost converts an internationalized host name to its lower-case ASCII form
// so that "BÜCHER.example" and "xn--bcher-kva.example" match the same pattern.
func NormalizeHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host name %q: %w", host, err)
	}
	return strings.ToLower(ascii), nil
}

package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

// DefaultPort is the standard Gopher port.
const DefaultPort = 70

// Target is one server to crawl.
type Target struct {
	Host string
	Port int

	// Selector is the directory selector the crawl starts from. Empty means
	// the server's root menu.
	Selector string
}

// String returns the target in gopher:// URL form.
func (t Target) String() string {
	s := "gopher://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	if t.Selector != "" {
		s += "/1" + t.Selector
	}
	return s
}

// ParseTarget parses a target argument. Accepted forms are "host",
// "host:port", "[ipv6]:port", a bare IPv6 address, and a gopher:// URL whose
// path may carry a directory item ("gopher://host:port/1/selector").
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, ErrEmptyHost
	}

	if len(s) >= len("gopher://") && strings.EqualFold(s[:len("gopher://")], "gopher://") {
		return parseURL(s)
	}

	if strings.Contains(s, "/") {
		return Target{}, fmt.Errorf("%w: %q (use a gopher:// URL to give a selector)", ErrInvalidTarget, s)
	}

	host, port, err := splitHostPort(s)
	if err != nil {
		return Target{}, err
	}
	if err := validateHost(host); err != nil {
		return Target{}, err
	}
	if isDigits(host) {
		return Target{}, fmt.Errorf("%w: %q looks like a port, not a host", ErrInvalidTarget, host)
	}
	return Target{Host: host, Port: port}, nil
}

// ParseTargetArgs parses the positional arguments of the crawl command.
//
// Two arguments form a single host and port pair when the first has no
// explicit port and the second is either all digits ("alpha 7070") or a
// port-like word after a qualified host ("example.org seventy", which then
// fails as an invalid port). Any other list, such as "alpha beta", is
// parsed as one target per argument.
func ParseTargetArgs(args []string) ([]Target, error) {
	if len(args) == 0 {
		return nil, ErrNoTarget
	}

	if len(args) == 2 && isPortPair(args[0], args[1]) {
		port, err := ParsePort(args[1])
		if err != nil {
			return nil, err
		}
		host := strings.Trim(strings.TrimSpace(args[0]), "[]")
		if err := validateHost(host); err != nil {
			return nil, err
		}
		return []Target{{Host: host, Port: port}}, nil
	}

	targets := make([]Target, 0, len(args))
	for _, arg := range args {
		t, err := ParseTarget(arg)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// ParsePort parses a port number. It must be an integer in 1..65535.
func ParsePort(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	return n, nil
}

// parseURL parses a gopher:// URL. The path is "/<type><selector>"; only
// directory items can start a crawl.
func parseURL(s string) (Target, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	host := u.Hostname()
	if err := validateHost(host); err != nil {
		return Target{}, err
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		if port, err = ParsePort(p); err != nil {
			return Target{}, err
		}
	} else if strings.HasSuffix(u.Host, ":") {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidPort, "")
	}

	t := Target{Host: host, Port: port}

	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return t, nil
	}
	if path[0] != '1' {
		return Target{}, fmt.Errorf("%w: %q is not a directory item", ErrInvalidTarget, s)
	}
	t.Selector = path[1:]
	return t, nil
}

// splitHostPort splits "host", "host:port", "[v6]:port", "[v6]" and bare
// IPv6 addresses.
func splitHostPort(s string) (string, int, error) {
	if host, port, err := net.SplitHostPort(s); err == nil {
		p, err := ParsePort(port)
		if err != nil {
			return "", 0, err
		}
		return host, p, nil
	}

	switch {
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return s[1 : len(s)-1], DefaultPort, nil
	case strings.Count(s, ":") > 1 && net.ParseIP(s) != nil:
		return s, DefaultPort, nil
	case strings.Contains(s, ":"):
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
	return s, DefaultPort, nil
}

// validateHost rejects empty hosts and hosts containing whitespace or
// control characters, which would corrupt the request line.
func validateHost(host string) error {
	if host == "" {
		return ErrEmptyHost
	}
	for _, r := range host {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: host %q contains whitespace or control characters", ErrInvalidTarget, host)
		}
	}
	return nil
}

// looksLikePort reports whether s could only be meant as a port: it has
// no dot, colon or slash. Non-numeric values still fail in ParsePort.
func looksLikePort(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.ContainsAny(s, ".:/[]") && !strings.EqualFold(s, "localhost")
}

// isPortPair reports whether host and port are one target given as two
// arguments.
func isPortPair(host, port string) bool {
	if hasExplicitPort(host) {
		return false
	}
	if isDigits(strings.TrimSpace(port)) {
		return true
	}
	return looksLikePort(port) && isQualifiedHost(host)
}

// isQualifiedHost reports whether s cannot be mistaken for a bare word:
// it has a dot, is an IPv6 address or is localhost.
func isQualifiedHost(s string) bool {
	s = strings.TrimSpace(s)
	return strings.ContainsAny(s, ".:[") || strings.EqualFold(s, "localhost")
}

// hasExplicitPort reports whether s already names a port or is a URL.
func hasExplicitPort(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(strings.ToLower(s), "://") {
		return true
	}
	_, _, err := net.SplitHostPort(s)
	return err == nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

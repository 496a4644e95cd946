package config

import (
	"net"
	"strconv"
	"strings"
)

// ServerConfig holds crawl settings for a single Gopher server.
type ServerConfig struct {
	// Depth overrides the global maximum depth for this server.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are selector patterns to skip during crawling.
	// Patterns use glob syntax; a trailing "*" matches any suffix.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are selector patterns to follow during crawling.
	// If specified, only directories whose selectors match are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Encoding overrides the character set used for this server's listings.
	Encoding string `yaml:"encoding,omitempty"`
}

// File represents the structure of the .gophercrawl configuration file.
type File struct {
	// Servers maps "host:port" (or just "host" for port 70) to settings.
	// Keys are matched case-insensitively.
	Servers map[string]ServerConfig `yaml:"servers,omitempty"`

	// Defaults applies to every server unless overridden.
	Defaults ServerConfig `yaml:"defaults,omitempty"`
}

// GetServerConfig returns the settings for host:port, merged over defaults.
// A "host" key without a port matches the default Gopher port only.
func (cf *File) GetServerConfig(host string, port int) ServerConfig {
	if cf == nil {
		return ServerConfig{}
	}

	result := cf.Defaults

	sc, ok := cf.lookup(host, port)
	if !ok {
		return result
	}

	if sc.Depth != 0 {
		result.Depth = sc.Depth
	}
	if len(sc.IgnorePatterns) > 0 {
		result.IgnorePatterns = sc.IgnorePatterns
	}
	if len(sc.FollowPatterns) > 0 {
		result.FollowPatterns = sc.FollowPatterns
	}
	if sc.Encoding != "" {
		result.Encoding = sc.Encoding
	}
	return result
}

func (cf *File) lookup(host string, port int) (ServerConfig, bool) {
	host = strings.ToLower(host)
	if sc, ok := cf.Servers[net.JoinHostPort(host, strconv.Itoa(port))]; ok {
		return sc, true
	}
	if port == DefaultPort {
		if sc, ok := cf.Servers[host]; ok {
			return sc, true
		}
	}
	return ServerConfig{}, false
}

// normalize lower-cases server keys so lookups are case-insensitive.
func (cf *File) normalize() {
	servers := make(map[string]ServerConfig, len(cf.Servers))
	for k, v := range cf.Servers {
		servers[strings.ToLower(strings.TrimSpace(k))] = v
	}
	cf.Servers = servers
}

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/gophercrawl/internal/tor"
)

// Default configuration values.
const (
	// DefaultTimeout bounds connect plus read for every fetch.
	DefaultTimeout = 5 * time.Second

	// DefaultProbeTimeout bounds a liveness probe of an external server.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultWorkers of 1 keeps the crawl sequential and its output
	// deterministic.
	DefaultWorkers = 1

	// DefaultBatchSize is the number of targets crawled at the same time.
	DefaultBatchSize = 1

	// DefaultMaxResponseSize caps a fetched menu or text body (16 MiB).
	DefaultMaxResponseSize int64 = 16 << 20

	// DefaultSnapshotSize is the number of characters kept from the smallest
	// text file.
	DefaultSnapshotSize = 1000

	// DefaultEncoding is used to decode listings and text snapshots.
	DefaultEncoding = "utf-8"

	// DefaultTorStartupTimeout bounds the embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "gophercrawl"
)

// Log formats accepted by LogFormat.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all options of one gophercrawl invocation. It is filled from
// CLI flags and handed down explicitly; there is no global configuration.
type Config struct {
	// Targets are the servers to crawl. Each one is crawled independently.
	Targets []Target

	// Timeout bounds connect plus read for every fetch.
	Timeout time.Duration

	// ProbeTimeout bounds each external liveness probe.
	ProbeTimeout time.Duration

	// Workers is the number of concurrent fetches per crawl.
	Workers int

	// BatchSize is the number of targets crawled concurrently.
	BatchSize int

	// MaxDepth limits how many directory levels below the start selector
	// are crawled. Zero means unlimited.
	MaxDepth int

	// MaxDuration stops a crawl after the given time and reports partial
	// results. Zero disables the limit.
	MaxDuration time.Duration

	// MaxResponseSize caps a fetched menu or text body in bytes. Zero disables
	// the cap. Binary files are measured without it.
	MaxResponseSize int64

	// SnapshotSize is the number of characters kept from the smallest text
	// file. Zero keeps the whole file.
	SnapshotSize int

	// Encoding names the character set used to decode listings and text
	// snapshots (an IANA name such as "utf-8" or "iso-8859-1").
	Encoding string

	// TorProxyAddress routes all connections through the SOCKS5 proxy at
	// this "host:port" address when set.
	TorProxyAddress string

	// EmbeddedTor starts a private Tor daemon for the run.
	EmbeddedTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// JSONReport selects the JSON report. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// Summary shortens long lists in the text report.
	Summary bool

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is LogFormatText or LogFormatJSON.
	LogFormat string

	// ConfigFilePath is the path given with --config. When empty, the
	// standard locations are searched.
	ConfigFilePath string

	// Servers holds per-server settings loaded from the config file.
	Servers *File
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		ProbeTimeout:      DefaultProbeTimeout,
		Workers:           DefaultWorkers,
		BatchSize:         DefaultBatchSize,
		MaxResponseSize:   DefaultMaxResponseSize,
		SnapshotSize:      DefaultSnapshotSize,
		Encoding:          DefaultEncoding,
		TorStartupTimeout: DefaultTorStartupTimeout,
		LogFormat:         LogFormatText,
	}
}

// XDGConfigDir returns the XDG config directory for gophercrawl.
// On Linux: ~/.config/gophercrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// UsesTor reports whether connections are routed through Tor.
func (c *Config) UsesTor() bool {
	return c.EmbeddedTor || c.TorProxyAddress != ""
}

// Validate checks the configuration and returns the first problem found.
// It runs before any network activity.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ProbeTimeout <= 0 {
		return ErrInvalidProbeTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxDuration < 0 {
		return ErrInvalidMaxDuration
	}
	if c.MaxResponseSize < 0 {
		return ErrInvalidMaxResponseSize
	}
	if c.SnapshotSize < 0 {
		return ErrInvalidSnapshotSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.EmbeddedTor && c.TorProxyAddress != "" {
		return ErrConflictingTorOptions
	}

	switch strings.ToLower(c.LogFormat) {
	case "", LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}

	for _, t := range c.Targets {
		if !tor.IsOnionHost(t.Host) {
			continue
		}
		if !c.UsesTor() {
			return fmt.Errorf("%w: %s", ErrOnionRequiresTor, t.Host)
		}
		if err := tor.ValidateOnionHost(t.Host); err != nil {
			return fmt.Errorf("invalid target %s: %w", t.Host, err)
		}
	}

	return nil
}

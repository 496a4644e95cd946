package config

import "errors"

// Configuration errors. Validate and the target parser return these (possibly
// wrapped), so callers can match them with errors.Is.
var (
	// ErrNoTarget is returned when no server to crawl was given.
	ErrNoTarget = errors.New("no target specified: provide a host, host:port or gopher:// URL")

	// ErrEmptyHost is returned when a target has no host part.
	ErrEmptyHost = errors.New("empty host")

	// ErrInvalidTarget is returned when a target cannot be parsed.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrInvalidPort is returned when a port is not an integer in 1..65535.
	ErrInvalidPort = errors.New("invalid port: must be an integer between 1 and 65535")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidProbeTimeout is returned when the probe timeout is not positive.
	ErrInvalidProbeTimeout = errors.New("invalid probe timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidDepth is returned when the maximum depth is negative.
	ErrInvalidDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxDuration is returned when the maximum duration is negative.
	ErrInvalidMaxDuration = errors.New("invalid max duration: must be non-negative")

	// ErrInvalidMaxResponseSize is returned when the response size cap is negative.
	ErrInvalidMaxResponseSize = errors.New("invalid max response size: must be non-negative")

	// ErrInvalidSnapshotSize is returned when the snapshot size is negative.
	ErrInvalidSnapshotSize = errors.New("invalid snapshot size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingTorOptions is returned when both --tor-proxy and
	// --embedded-tor are specified.
	ErrConflictingTorOptions = errors.New("conflicting Tor options: --tor-proxy and --embedded-tor cannot be used together")

	// ErrInvalidLogFormat is returned for an unknown --log-format value.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrOnionRequiresTor is returned when a .onion target is given without
	// a way to reach the Tor network.
	ErrOnionRequiresTor = errors.New(".onion targets require --tor-proxy or --embedded-tor")
)

// Package log builds the application logger on top of log/slog.
//
// Everything gophercrawl logs passes through SanitizingHandler. Listing
// lines, selectors and error entries are supplied by remote servers, so the
// handler escapes control characters and caps value length before a record
// reaches the terminal. It also masks proxy and Tor control credentials and
// onion key material.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, log.FormatText)
//	slog.SetDefault(logger)
//
// The same logger is handed to tornago when an embedded Tor daemon is
// started.
package log

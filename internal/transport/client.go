package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// Default limits.
const (
	// DefaultTimeout bounds connect plus read for one fetch.
	DefaultTimeout = 5 * time.Second

	// DefaultProbeTimeout bounds a liveness probe. Probes only connect, so
	// they get a shorter budget than fetches.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultMaxResponseSize caps a body returned by Fetch (16 MiB).
	DefaultMaxResponseSize int64 = 16 << 20
)

// Dialer opens network connections. *net.Dialer satisfies it, as does the
// SOCKS5 dialer returned by golang.org/x/net/proxy.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Client sends Gopher requests. A Client is safe for concurrent use; every
// call opens its own connection.
type Client struct {
	// dialer opens the TCP connection (directly or through a proxy).
	dialer Dialer

	// timeout bounds connect plus read for Fetch.
	timeout time.Duration

	// probeTimeout bounds the connection attempt for Probe.
	probeTimeout time.Duration

	// maxResponseSize caps the body size. Zero or negative disables the cap.
	maxResponseSize int64

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDialer sets the dialer used for every connection.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithTimeout sets the fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithProbeTimeout sets the liveness probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.probeTimeout = d
	}
}

// WithMaxResponseSize sets the maximum body size Fetch accepts, in bytes.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		c.maxResponseSize = n
	}
}

// WithLogger sets the logger used for per-request advisory lines.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client that dials directly over TCP unless another
// dialer is supplied.
func NewClient(opts ...Option) *Client {
	c := &Client{
		dialer:          &net.Dialer{},
		timeout:         DefaultTimeout,
		probeTimeout:    DefaultProbeTimeout,
		maxResponseSize: DefaultMaxResponseSize,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch sends selector to host:port and returns the complete response.
//
// The selector is written followed by CRLF, the write side is half-closed
// when the connection supports it, and the response is read until the server
// closes the connection. Any failure is returned as a *Failure.
func (c *Client) Fetch(ctx context.Context, host string, port int, selector string) ([]byte, error) {
	var body []byte
	err := c.request(ctx, "fetch", host, port, selector, func(r io.Reader) error {
		var err error
		body, err = c.readAll(r)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("response received",
		"host", host,
		"port", port,
		"selector", selector,
		"bytes", len(body),
	)

	return body, nil
}

// Measure sends selector to host:port like Fetch, but discards the response
// and returns its size. The response size cap does not apply.
func (c *Client) Measure(ctx context.Context, host string, port int, selector string) (int64, error) {
	var size int64
	err := c.request(ctx, "measure", host, port, selector, func(r io.Reader) error {
		var err error
		size, err = io.Copy(io.Discard, r)
		return err
	})
	if err != nil {
		return 0, err
	}

	c.logger.Debug("response measured",
		"host", host,
		"port", port,
		"selector", selector,
		"bytes", size,
	)

	return size, nil
}

// request performs one selector exchange and hands the response stream to
// read. op names the operation in a returned *Failure.
func (c *Client) request(ctx context.Context, op, host string, port int, selector string, read func(io.Reader) error) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	c.logger.Debug("sending request",
		"host", host,
		"port", port,
		"selector", selector,
		"timestamp", time.Now().Format(time.DateTime),
	)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(reqCtx, "tcp", addr)
	if err != nil {
		return c.failure(ctx, op, addr, selector, err)
	}
	defer conn.Close()

	// Unblock pending I/O as soon as the request context ends.
	stop := context.AfterFunc(reqCtx, func() {
		_ = conn.SetDeadline(time.Now()) //nolint:errcheck // best effort wake-up
	})
	defer stop()

	if deadline, ok := reqCtx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return c.failure(ctx, op, addr, selector, err)
		}
	}

	if _, err := io.WriteString(conn, selector+"\r\n"); err != nil {
		return c.failure(ctx, op, addr, selector, err)
	}

	if hc, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = hc.CloseWrite() //nolint:errcheck // some proxies do not support half-close
	}

	if err := read(conn); err != nil {
		return c.failure(ctx, op, addr, selector, err)
	}
	return nil
}

// Probe checks whether host:port accepts connections. No request is sent.
func (c *Client) Probe(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	conn, err := c.dialer.DialContext(probeCtx, "tcp", addr)
	if err != nil {
		f := c.failure(ctx, "probe", addr, "", err)
		c.logger.Debug("probe failed", "host", host, "port", port, "error", f)
		return f
	}
	_ = conn.Close() //nolint:errcheck // nothing was written

	c.logger.Debug("probe succeeded", "host", host, "port", port)
	return nil
}

// readAll reads until EOF, enforcing the response size cap.
func (c *Client) readAll(r io.Reader) ([]byte, error) {
	if c.maxResponseSize <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, c.maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxResponseSize {
		return nil, ErrTooLarge
	}
	return body, nil
}

// failure wraps err into a *Failure with a classified kind.
func (c *Client) failure(parent context.Context, op, addr, selector string, err error) *Failure {
	kind := classify(parent, err)
	if errors.Is(err, ErrTooLarge) {
		kind, err = ErrTooLarge, nil
	}
	return &Failure{
		Op:       op,
		Addr:     addr,
		Selector: selector,
		Kind:     kind,
		Err:      err,
	}
}

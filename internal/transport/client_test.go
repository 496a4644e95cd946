package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// startServer starts a loopback TCP server that runs handler for every
// accepted connection. It returns the host and port to dial.
func startServer(t *testing.T, handler func(net.Conn)) (string, int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handler(conn)
			}()
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

// replyWith returns a handler that reads the selector line and writes body.
func replyWith(body string, got chan<- string) func(net.Conn) {
	return func(conn net.Conn) {
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			return
		}
		if got != nil {
			got <- line
		}
		_, _ = io.WriteString(conn, body)
	}
}

// TestClientFetch tests successful exchanges.
func TestClientFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns the full response", func(t *testing.T) {
		t.Parallel()

		body := "0About\t/about\texample.org\t70\r\n.\r\n"
		host, port := startServer(t, replyWith(body, nil))

		c := NewClient(WithTimeout(2 * time.Second))
		got, err := c.Fetch(context.Background(), host, port, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != body {
			t.Errorf("expected %q, got %q", body, string(got))
		}
	})

	t.Run("writes the selector terminated by CRLF", func(t *testing.T) {
		t.Parallel()

		lines := make(chan string, 1)
		host, port := startServer(t, replyWith("ok", lines))

		c := NewClient(WithTimeout(2 * time.Second))
		if _, err := c.Fetch(context.Background(), host, port, "/docs/readme"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		select {
		case line := <-lines:
			if line != "/docs/readme\r\n" {
				t.Errorf("expected selector with CRLF, got %q", line)
			}
		case <-time.After(time.Second):
			t.Fatal("server did not receive a request")
		}
	})

	t.Run("empty response is not an error", func(t *testing.T) {
		t.Parallel()

		host, port := startServer(t, replyWith("", nil))

		c := NewClient(WithTimeout(2 * time.Second))
		got, err := c.Fetch(context.Background(), host, port, "/empty")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty body, got %d bytes", len(got))
		}
	})
}

// TestClientFetchFailures tests that failures are classified.
func TestClientFetchFailures(t *testing.T) {
	t.Parallel()

	t.Run("refused connection", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := listener.Addr().(*net.TCPAddr)
		_ = listener.Close()

		c := NewClient(WithTimeout(2 * time.Second))
		_, err = c.Fetch(context.Background(), addr.IP.String(), addr.Port, "")
		if !errors.Is(err, ErrRefused) {
			t.Errorf("expected ErrRefused, got %v", err)
		}

		var f *Failure
		if !errors.As(err, &f) {
			t.Fatalf("expected *Failure, got %T", err)
		}
		if f.Op != "fetch" || f.Addr != net.JoinHostPort(addr.IP.String(), strconv.Itoa(addr.Port)) {
			t.Errorf("unexpected failure fields: %+v", f)
		}
	})

	t.Run("silent server times out", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		host, port := startServer(t, func(net.Conn) { <-release })

		c := NewClient(WithTimeout(100 * time.Millisecond))
		start := time.Now()
		_, err := c.Fetch(context.Background(), host, port, "/slow")
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("fetch took too long: %v", elapsed)
		}
	})

	t.Run("oversized response", func(t *testing.T) {
		t.Parallel()

		host, port := startServer(t, replyWith(strings.Repeat("x", 64), nil))

		c := NewClient(WithTimeout(2*time.Second), WithMaxResponseSize(16))
		_, err := c.Fetch(context.Background(), host, port, "/big")
		if !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("response at the limit is accepted", func(t *testing.T) {
		t.Parallel()

		host, port := startServer(t, replyWith(strings.Repeat("x", 16), nil))

		c := NewClient(WithTimeout(2*time.Second), WithMaxResponseSize(16))
		got, err := c.Fetch(context.Background(), host, port, "/exact")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 16 {
			t.Errorf("expected 16 bytes, got %d", len(got))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		host, port := startServer(t, func(net.Conn) { <-release })

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		c := NewClient(WithTimeout(5 * time.Second))
		_, err := c.Fetch(ctx, host, port, "/")
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("expected ErrCanceled, got %v", err)
		}
	})
}

// TestClientProbe tests liveness probes.
func TestClientProbe(t *testing.T) {
	t.Parallel()

	t.Run("listening server is up", func(t *testing.T) {
		t.Parallel()

		host, port := startServer(t, func(net.Conn) {})

		c := NewClient()
		if err := c.Probe(context.Background(), host, port); err != nil {
			t.Errorf("expected probe to succeed, got %v", err)
		}
	})

	t.Run("closed port is down", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := listener.Addr().(*net.TCPAddr)
		_ = listener.Close()

		c := NewClient(WithProbeTimeout(time.Second))
		err = c.Probe(context.Background(), addr.IP.String(), addr.Port)
		if err == nil {
			t.Fatal("expected probe to fail")
		}

		var f *Failure
		if !errors.As(err, &f) || f.Op != "probe" {
			t.Errorf("expected probe failure, got %v", err)
		}
	})
}

// recordingDialer records the addresses it was asked to dial.
type recordingDialer struct {
	addrs []string
	err   error
}

func (d *recordingDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	d.addrs = append(d.addrs, address)
	return nil, d.err
}

// TestClientUsesDialer tests that a custom dialer is used with IPv6-safe addresses.
func TestClientUsesDialer(t *testing.T) {
	t.Parallel()

	d := &recordingDialer{err: errors.New("proxy rejected connection")}
	c := NewClient(WithDialer(d))

	_, err := c.Fetch(context.Background(), "::1", 7070, "/")
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
	if len(d.addrs) != 1 || d.addrs[0] != "[::1]:7070" {
		t.Errorf("unexpected dialed addresses: %v", d.addrs)
	}
}

// TestClientMeasure tests size-only exchanges used for binary files.
func TestClientMeasure(t *testing.T) {
	t.Parallel()

	t.Run("large body is measured past the size cap", func(t *testing.T) {
		t.Parallel()

		const size = 17 << 20
		got := make(chan string, 1)
		host, port := startServer(t, replyWith(strings.Repeat("b", size), got))

		c := NewClient(WithTimeout(10 * time.Second))
		n, err := c.Measure(context.Background(), host, port, "/disk.iso")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != size {
			t.Errorf("expected %d bytes, got %d", size, n)
		}
		if line := <-got; line != "/disk.iso\r\n" {
			t.Errorf("expected request line %q, got %q", "/disk.iso\r\n", line)
		}

		if _, err := c.Fetch(context.Background(), host, port, "/disk.iso"); !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected Fetch to hit the size cap, got %v", err)
		}
		<-got
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		host, port := startServer(t, replyWith("", nil))

		n, err := NewClient(WithTimeout(2*time.Second)).Measure(context.Background(), host, port, "/empty")
		if err != nil || n != 0 {
			t.Errorf("Measure() = %d, %v, want 0, nil", n, err)
		}
	})

	t.Run("refused connection", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := listener.Addr().(*net.TCPAddr)
		_ = listener.Close()

		_, err = NewClient(WithTimeout(2*time.Second)).Measure(context.Background(), "127.0.0.1", addr.Port, "/gone.bin")
		var f *Failure
		if !errors.As(err, &f) {
			t.Fatalf("expected *Failure, got %v", err)
		}
		if f.Op != "measure" || f.Selector != "/gone.bin" {
			t.Errorf("unexpected failure: %+v", f)
		}
	})
}

// TestFailureError tests the error message format.
func TestFailureError(t *testing.T) {
	t.Parallel()

	f := &Failure{Op: "fetch", Addr: "example.org:70", Selector: "/x", Kind: ErrTimeout}
	want := `fetch example.org:70 "/x": timeout`
	if got := f.Error(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	m := &Failure{Op: "measure", Addr: "example.org:70", Selector: "/x.bin", Kind: ErrReset}
	want = `measure example.org:70 "/x.bin": connection reset`
	if got := m.Error(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	p := &Failure{Op: "probe", Addr: "example.org:70", Kind: ErrRefused, Err: errors.New("dial failed")}
	want = "probe example.org:70: connection refused: dial failed"
	if got := p.Error(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// Package transport implements the Gopher request primitive.
//
// A Gopher exchange is one-shot: the client connects, writes a selector
// followed by CRLF, and reads until the server closes the connection. There
// is no length field, so end-of-stream is the only completion signal.
//
// Client.Fetch performs one such exchange under a timeout and returns either
// the full response or a *Failure. A nil error with an empty slice means the
// server answered with an empty response; any failure to get an answer is
// reported as an error. Client.Probe only opens and closes a connection and
// is used for liveness checks.
//
// Connections are made through a Dialer, so the same client works over a
// direct TCP connection or through a SOCKS5 proxy such as Tor.
package transport

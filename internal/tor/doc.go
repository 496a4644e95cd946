// Package tor lets the crawler reach Gopher holes through the Tor network.
//
// Client wraps a SOCKS5 dialer from golang.org/x/net/proxy and can be handed
// to the Gopher transport as its dialer. EmbeddedTor starts a private Tor
// daemon through tornago when no system Tor is available. The onion helpers
// validate v3 .onion hosts (SHA3 checksum included) before a crawl starts.
package tor

package model

import (
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the registered Gopher port.
const DefaultPort = 70

// Identity is the key that uniquely names a resource during a crawl.
// Two references with the same Identity are fetched at most once, no matter
// which item type they were listed under.
type Identity struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Selector string `json:"selector"`
}

// NewIdentity builds an Identity with the host normalized to lower case.
// Host names are case-insensitive, so "Example.org" and "example.org"
// name the same resource.
func NewIdentity(host string, port int, selector string) Identity {
	return Identity{
		Host:     strings.ToLower(host),
		Port:     port,
		Selector: selector,
	}
}

// Server returns the (host, port) part of the identity.
func (id Identity) Server() ServerKey {
	return ServerKey{Host: id.Host, Port: id.Port}
}

// String renders the identity as a gopher URL-like string for logs.
func (id Identity) String() string {
	return "gopher://" + id.Server().String() + "/" + id.Selector
}

// ServerKey identifies one Gopher server.
type ServerKey struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// NewServerKey builds a ServerKey with the host normalized to lower case.
func NewServerKey(host string, port int) ServerKey {
	return ServerKey{Host: strings.ToLower(host), Port: port}
}

// String returns the key in "host:port" form (IPv6 hosts are bracketed).
func (k ServerKey) String() string {
	return net.JoinHostPort(k.Host, strconv.Itoa(k.Port))
}

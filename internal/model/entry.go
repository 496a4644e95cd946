package model

// Entry is one parsed line of a directory listing.
// It lives only long enough for the crawler to dispatch it.
type Entry struct {
	// Type is the raw type code of the line.
	Type ItemType

	// Display is the user-visible name of the entry.
	Display string

	// Selector locates the resource on its server.
	Selector string

	// Host is the server holding the resource. It may differ from the
	// server that returned the listing.
	Host string

	// Port is the TCP port of Host.
	Port int
}

// Identity returns the deduplication key of the resource the entry points to.
func (e Entry) Identity() Identity {
	return NewIdentity(e.Host, e.Port, e.Selector)
}

// Server returns the server the entry points to.
func (e Entry) Server() ServerKey {
	return NewServerKey(e.Host, e.Port)
}

package model

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies a recorded crawl error.
type ErrorKind int

const (
	// ErrorConnectionFailure covers refused, reset, unreachable and other
	// I/O failures.
	ErrorConnectionFailure ErrorKind = iota

	// ErrorTimeout means the connect or read did not finish in time.
	ErrorTimeout

	// ErrorMalformedLine means a listing line had too few fields or a bad port.
	ErrorMalformedLine

	// ErrorDecodeFailure means bytes could not be decoded in the configured
	// encoding. The crawler still continues with replacement characters.
	ErrorDecodeFailure

	// ErrorProtocolEntry is a type "3" entry returned by the server.
	ErrorProtocolEntry

	// ErrorTooLarge means a listing or text file exceeded the response size
	// cap. Binary files are measured without a cap.
	ErrorTooLarge
)

// String returns the kind name used in reports.
func (k ErrorKind) String() string {
	switch k {
	case ErrorConnectionFailure:
		return "connection failure"
	case ErrorTimeout:
		return "timeout"
	case ErrorMalformedLine:
		return "malformed line"
	case ErrorDecodeFailure:
		return "decode failure"
	case ErrorProtocolEntry:
		return "error entry"
	case ErrorTooLarge:
		return "too large"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind by name.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// CrawlError is one error recorded during a crawl, tagged with the resource
// it originated from.
type CrawlError struct {
	Kind     ErrorKind `json:"kind"`
	Host     string    `json:"host"`
	Port     int       `json:"port"`
	Selector string    `json:"selector"`

	// Detail is a short human-readable explanation, such as the transport
	// error text or the offending listing line.
	Detail string `json:"detail,omitempty"`
}

// String formats the error as "(host, port, selector) kind: detail".
func (e CrawlError) String() string {
	s := fmt.Sprintf("(%s, %d, %q) %s", e.Host, e.Port, e.Selector, e.Kind)
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

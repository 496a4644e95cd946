package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nao1215/gophercrawl/internal/model"
)

// Listing parse errors. LineError wraps exactly one of these.
var (
	// ErrMalformedLine marks a line with fewer than four TAB-separated fields.
	ErrMalformedLine = errors.New("malformed line")

	// ErrInvalidPort marks a line whose port field is not an integer in 1..65535.
	ErrInvalidPort = errors.New("invalid port")

	// ErrDecode marks a line that could not be decoded in the configured
	// charset. The line is still parsed from the replacement text.
	ErrDecode = errors.New("decode failure")
)

// terminator is the line that ends a listing. Anything after it is ignored.
const terminator = "."

// LineError describes a listing line that could not be used.
type LineError struct {
	// Line is the 1-based line number within the listing.
	Line int

	// Text is the offending line as decoded (may contain replacement runes).
	Text string

	// Err is ErrMalformedLine, ErrInvalidPort or ErrDecode.
	Err error
}

// Error implements the error interface.
func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

// Unwrap returns the underlying sentinel.
func (e *LineError) Unwrap() error {
	return e.Err
}

// Listing is the parsed form of a directory response.
type Listing struct {
	// Entries holds the usable lines in listing order.
	Entries []model.Entry

	// Errors holds one LineError per rejected or badly decoded line.
	Errors []*LineError

	// Terminated reports whether a "." line ended the listing early.
	Terminated bool
}

// ParseListing parses a directory response returned by host.
//
// Lines are split on LF with an optional preceding CR. Empty lines are
// skipped and a line consisting of "." ends parsing. The first byte of each
// line is the type code; the rest is decoded with dec and split on TAB into
// display, selector, host and port. Extra fields are ignored.
//
// Fewer than four fields make a line malformed. The port is only validated
// for directory, text and binary entries because informational and error
// lines commonly carry placeholder values; such entries keep port 0. An
// empty host field refers to the listing's own server.
func ParseListing(body []byte, dec *Decoder, host string) *Listing {
	l := &Listing{}

	for n, raw := range bytes.Split(body, []byte("\n")) {
		raw = bytes.TrimSuffix(raw, []byte("\r"))
		if len(raw) == 0 {
			continue
		}
		if string(raw) == terminator {
			l.Terminated = true
			break
		}

		lineNo := n + 1
		itemType := model.ItemType(raw[0])

		rest, decErr := dec.Decode(raw[1:])
		if decErr != nil {
			l.Errors = append(l.Errors, &LineError{Line: lineNo, Text: rest, Err: ErrDecode})
		}

		text := string(raw[:1]) + rest
		fields := strings.Split(rest, "\t")
		if len(fields) < 4 {
			l.Errors = append(l.Errors, &LineError{Line: lineNo, Text: text, Err: ErrMalformedLine})
			continue
		}

		entry := model.Entry{
			Type:     itemType,
			Display:  fields[0],
			Selector: fields[1],
			Host:     strings.TrimSpace(fields[2]),
		}
		if entry.Host == "" {
			entry.Host = host
		}

		p, err := parsePort(fields[3])
		switch kind := itemType.Kind(); {
		case err == nil:
			entry.Port = p
		case kind == model.KindDirectory, kind == model.KindText, kind == model.KindBinary:
			l.Errors = append(l.Errors, &LineError{Line: lineNo, Text: text, Err: ErrInvalidPort})
			continue
		}

		l.Entries = append(l.Entries, entry)
	}

	return l
}

// parsePort parses a port field, tolerating surrounding whitespace.
func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 65535 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

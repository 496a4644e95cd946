package crawler

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrUnknownEncoding is returned by NewDecoder for an unsupported charset name.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrInvalidUTF8 is returned by Decode when UTF-8 input contains invalid
	// byte sequences.
	ErrInvalidUTF8 = errors.New("invalid utf-8")
)

// aliases covers names common in old Gopher holes that the IANA registry
// spells differently.
var aliases = map[string]encoding.Encoding{
	"cp437":  charmap.CodePage437,
	"latin1": charmap.ISO8859_1,
	"cp1252": charmap.Windows1252,
}

// Decoder converts listing lines and text snapshots to UTF-8.
//
// Decoding is permissive: bytes that are invalid in the source charset are
// replaced with U+FFFD instead of failing the line.
type Decoder struct {
	name string
	enc  encoding.Encoding
}

// NewDecoder returns a Decoder for the named charset. An empty name selects
// UTF-8.
func NewDecoder(name string) (*Decoder, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return &Decoder{name: "utf-8", enc: unicode.UTF8}, nil
	}

	if enc, ok := aliases[strings.ToLower(name)]; ok {
		return &Decoder{name: strings.ToLower(name), enc: enc}, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil || canonical == "" {
		canonical = name
	}
	return &Decoder{name: strings.ToLower(canonical), enc: enc}, nil
}

// Name returns the canonical charset name.
func (d *Decoder) Name() string {
	return d.name
}

// Decode converts b to a UTF-8 string.
//
// On invalid input Decode still returns a usable string with the bad bytes
// replaced by U+FFFD, together with an error, so the caller can record a
// decode failure and keep going.
func (d *Decoder) Decode(b []byte) (string, error) {
	if d.enc == unicode.UTF8 {
		if !utf8.Valid(b) {
			return strings.ToValidUTF8(string(b), "\uFFFD"), ErrInvalidUTF8
		}
		return string(b), nil
	}

	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD"), err
	}
	return string(out), nil
}

// truncateRunes returns the first n runes of s. n <= 0 keeps s whole.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

package report

import (
	"io"
	"strings"
	"unicode"

	"github.com/nao1215/gophercrawl/internal/model"
)

// Writer defines the interface for report output.
// Implementations render crawl statistics in various formats.
type Writer interface {
	// Write outputs the report for a single crawl.
	// Returns the number of bytes written and any error encountered.
	Write(stats *model.Statistics) (int, error)

	// WriteAll outputs one report covering every crawl of a batch run,
	// in the given order.
	WriteAll(crawls []*model.Statistics) (int, error)
}

// writeEach calls write for every crawl and sums the bytes written.
// It stops on the first error.
func writeEach(crawls []*model.Statistics, write func(*model.Statistics) (int, error)) (int, error) {
	var total int
	for _, s := range crawls {
		n, err := write(s)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// escapeControl prepares fetched text for a terminal. CRLF line ends become
// LF; any other control rune except newline and tab is written as \r or \xNN.
func escapeControl(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if strings.IndexFunc(s, isUnsafeRune) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\r':
			b.WriteString(`\r`)
		case isUnsafeRune(r):
			b.WriteString(`\x`)
			b.WriteByte("0123456789abcdef"[(r>>4)&0xf])
			b.WriteByte("0123456789abcdef"[r&0xf])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isUnsafeRune(r rune) bool {
	return r != '\n' && r != '\t' && r < 0x100 && unicode.IsControl(r)
}

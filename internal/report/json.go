package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/gophercrawl/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is recorded in batch reports.
	version string

	// now stamps batch reports.
	now func() time.Time
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the gophercrawl version recorded by WriteAll.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the statistics of one crawl as a JSON object.
func (w *JSONWriter) Write(stats *model.Statistics) (int, error) {
	return w.writeJSON(stats)
}

// WriteAll outputs a single JSON document wrapping every crawl.
func (w *JSONWriter) WriteAll(crawls []*model.Statistics) (int, error) {
	if crawls == nil {
		crawls = make([]*model.Statistics, 0)
	}
	return w.writeJSON(&BatchReport{
		Version:     w.version,
		GeneratedAt: w.now(),
		Crawls:      crawls,
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// BatchReport is the JSON document produced for a multi-target run.
type BatchReport struct {
	// Version is the gophercrawl version that generated this report.
	Version string `json:"version,omitempty"`

	// GeneratedAt is when the report was written.
	GeneratedAt time.Time `json:"generated_at"`

	// Crawls holds one entry per target in command-line order.
	Crawls []*model.Statistics `json:"crawls"`
}

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/gophercrawl/internal/model"
)

// Limits applied in summary mode.
const (
	// SummaryListLimit is the number of file paths shown per list.
	SummaryListLimit = 10

	// SummaryErrorLimit is the number of error records shown.
	SummaryErrorLimit = 5
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// summary caps long lists with "... and N more".
	summary bool

	// verbose adds the directory list, skip count and error breakdown.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithSummary shortens file and error lists.
func WithSummary(summary bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.summary = summary
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteAll writes one report per crawl, one after another.
func (w *SimpleWriter) WriteAll(crawls []*model.Statistics) (int, error) {
	return writeEach(crawls, w.Write)
}

// Write outputs the report for a single crawl.
func (w *SimpleWriter) Write(stats *model.Statistics) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, stats)
	w.writeSummary(&sb, stats)
	w.writeExtremes(&sb, stats)
	w.writeErrors(&sb, stats)
	w.writeExternal(&sb, stats)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, stats *model.Statistics) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         GOPHERCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Server:         %s\n", model.NewServerKey(stats.Host, stats.Port))
	if stats.StartSelector != "" {
		fmt.Fprintf(sb, "Start selector: %s\n", stats.StartSelector)
	}
	fmt.Fprintf(sb, "Run ID:         %s\n", stats.RunID)
	if !stats.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:        %s\n", stats.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "Time taken:     %s\n", stats.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Requests:       %d\n", stats.Requests)

	if stats.Cancelled {
		sb.WriteString("Status:         CANCELLED (partial results)\n")
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the directory count and the file lists.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, stats *model.Statistics) {
	writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "Number of Gopher directories: %d\n", stats.DirectoryCount())
	if w.verbose {
		w.writeList(sb, stats.Directories)
	}
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Number of text files: %d\n", stats.TextFileCount())
	w.writeList(sb, stats.TextFiles)
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Number of binary files: %d\n", stats.BinaryFileCount())
	w.writeList(sb, stats.BinaryFiles)
	sb.WriteString("\n")

	if w.verbose {
		fmt.Fprintf(sb, "Entries skipped by depth or pattern: %d\n\n", stats.Skipped)
	}
}

// writeExtremes writes the smallest text snapshot and the size extremes.
func (w *SimpleWriter) writeExtremes(sb *strings.Builder, stats *model.Statistics) {
	writeSection(sb, "FILE SIZES")

	if stats.SmallestText != nil {
		fmt.Fprintf(sb, "Contents of the smallest text file '%s' (%d bytes):\n",
			displaySelector(stats.SmallestText.Path), stats.SmallestText.Size)
		content := escapeControl(stats.SmallestText.Content)
		sb.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No text files found.\n")
	}
	sb.WriteString("\n")

	writeExtreme(sb, "Size of the largest text file", stats.LargestText)
	writeExtreme(sb, "Size of the smallest binary file", stats.SmallestBinary)
	writeExtreme(sb, "Size of the largest binary file", stats.LargestBinary)
	sb.WriteString("\n")
}

func writeExtreme(sb *strings.Builder, label string, f *model.FileStat) {
	if f == nil {
		fmt.Fprintf(sb, "%s: n/a\n", label)
		return
	}
	fmt.Fprintf(sb, "%s: %d bytes (%s)\n", label, f.Size, displaySelector(f.Path))
}

// writeErrors writes the error list.
func (w *SimpleWriter) writeErrors(sb *strings.Builder, stats *model.Statistics) {
	writeSection(sb, "ERRORS")

	fmt.Fprintf(sb, "Number of errors: %d\n", len(stats.Errors))

	if w.verbose && len(stats.Errors) > 0 {
		counts := stats.ErrorCountByKind()
		for _, kind := range errorKinds {
			if n := counts[kind]; n > 0 {
				fmt.Fprintf(sb, "  %-20s %d\n", kind.String()+":", n)
			}
		}
	}

	limit := len(stats.Errors)
	if w.summary && limit > SummaryErrorLimit {
		limit = SummaryErrorLimit
	}
	for _, e := range stats.Errors[:limit] {
		fmt.Fprintf(sb, " - %s\n", e)
	}
	if rest := len(stats.Errors) - limit; rest > 0 {
		fmt.Fprintf(sb, "   ... and %d more\n", rest)
	}
	sb.WriteString("\n")
}

// writeExternal writes the external server table.
func (w *SimpleWriter) writeExternal(sb *strings.Builder, stats *model.Statistics) {
	writeSection(sb, "EXTERNAL SERVERS")

	if len(stats.ExternalServers) == 0 {
		sb.WriteString("No external servers referenced.\n\n")
		return
	}

	fmt.Fprintf(sb, "External servers referenced: %d\n", len(stats.ExternalServers))
	for _, ext := range stats.ExternalServers {
		fmt.Fprintf(sb, " - %s -> %s\n", ext.Key(), externalStatus(ext))
	}
	sb.WriteString("\n")
}

// writeList writes selectors as a bullet list, capped in summary mode.
func (w *SimpleWriter) writeList(sb *strings.Builder, items []string) {
	limit := len(items)
	if w.summary && limit > SummaryListLimit {
		limit = SummaryListLimit
	}
	for _, item := range items[:limit] {
		fmt.Fprintf(sb, " - %s\n", displaySelector(item))
	}
	if rest := len(items) - limit; rest > 0 {
		fmt.Fprintf(sb, "   ... and %d more\n", rest)
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// errorKinds lists error kinds in report order.
var errorKinds = []model.ErrorKind{
	model.ErrorConnectionFailure,
	model.ErrorTimeout,
	model.ErrorMalformedLine,
	model.ErrorDecodeFailure,
	model.ErrorProtocolEntry,
	model.ErrorTooLarge,
}

// externalStatus returns UP, DOWN or NOT PROBED for an external server.
func externalStatus(ext model.ExternalServer) string {
	switch {
	case !ext.Probed:
		return "NOT PROBED"
	case ext.Up:
		return "UP"
	default:
		return "DOWN"
	}
}

// displaySelector shows the empty root selector as "(root)".
func displaySelector(selector string) string {
	if selector == "" {
		return "(root)"
	}
	return selector
}

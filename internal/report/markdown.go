package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/gophercrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter

	// title converts error kind names into table labels.
	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write outputs the report for a single crawl as a Markdown document.
func (w *MarkdownWriter) Write(stats *model.Statistics) (int, error) {
	return w.WriteAll([]*model.Statistics{stats})
}

// WriteAll outputs one Markdown document with a section per crawl.
func (w *MarkdownWriter) WriteAll(crawls []*model.Statistics) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Gophercrawl Report")
	md.PlainText("")

	if len(crawls) > 1 {
		w.writeIndex(md, crawls)
	}

	for _, stats := range crawls {
		w.writeCrawl(md, stats)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeIndex writes an overview table for batch runs.
func (w *MarkdownWriter) writeIndex(md *markdown.Markdown, crawls []*model.Statistics) {
	rows := make([][]string, 0, len(crawls))
	for _, s := range crawls {
		rows = append(rows, []string{
			"`" + model.NewServerKey(s.Host, s.Port).String() + "`",
			strconv.Itoa(s.DirectoryCount()),
			strconv.Itoa(s.TextFileCount()),
			strconv.Itoa(s.BinaryFileCount()),
			strconv.Itoa(len(s.Errors)),
			w.statusText(s),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Server", "Directories", "Text Files", "Binary Files", "Errors", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCrawl writes every section for one crawl.
func (w *MarkdownWriter) writeCrawl(md *markdown.Markdown, stats *model.Statistics) {
	md.H2(model.NewServerKey(stats.Host, stats.Port).String())
	md.PlainText("")

	w.writeHeader(md, stats)
	w.writeCounts(md, stats)
	w.writeExtremes(md, stats)
	w.writeErrors(md, stats)
	w.writeExternal(md, stats)
}

// writeHeader writes the crawl information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, stats *model.Statistics) {
	rows := [][]string{
		{"Run ID", "`" + stats.RunID + "`"},
	}
	if stats.StartSelector != "" {
		rows = append(rows, []string{"Start Selector", "`" + stats.StartSelector + "`"})
	}
	if !stats.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", stats.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	rows = append(rows,
		[]string{"Time Taken", stats.Duration().Round(time.Millisecond).String()},
		[]string{"Requests", strconv.Itoa(stats.Requests)},
		[]string{"Status", w.statusText(stats)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if stats.Cancelled {
		md.Warningf("The crawl was cancelled after %d requests. Results are partial.", stats.Requests)
		md.PlainText("")
	}
}

// statusText returns the status text based on crawl state.
func (w *MarkdownWriter) statusText(stats *model.Statistics) string {
	if stats.Cancelled {
		return "⚠️ Cancelled (partial results)"
	}
	return "✅ Complete"
}

// writeCounts writes resource counts and their distribution chart.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, stats *model.Statistics) {
	md.H3("Resources")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Resource", "Count"},
		Rows: [][]string{
			{"📁 Directories", strconv.Itoa(stats.DirectoryCount())},
			{"📄 Text Files", strconv.Itoa(stats.TextFileCount())},
			{"📦 Binary Files", strconv.Itoa(stats.BinaryFileCount())},
			{"🌐 External Servers", strconv.Itoa(len(stats.ExternalServers))},
			{"⏭️ Skipped", strconv.Itoa(stats.Skipped)},
		},
	})
	md.PlainText("")

	if stats.DirectoryCount()+stats.TextFileCount()+stats.BinaryFileCount() > 0 {
		w.writePieChart(md, stats)
	}

	if len(stats.TextFiles) > 0 {
		md.Details("Text files", bulletText(stats.TextFiles))
		md.PlainText("")
	}
	if len(stats.BinaryFiles) > 0 {
		md.Details("Binary files", bulletText(stats.BinaryFiles))
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart for the resource distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, stats *model.Statistics) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Resource Distribution"),
		piechart.WithShowData(true),
	)

	if n := stats.DirectoryCount(); n > 0 {
		chart.LabelAndIntValue("Directories", uint64(n))
	}
	if n := stats.TextFileCount(); n > 0 {
		chart.LabelAndIntValue("Text Files", uint64(n))
	}
	if n := stats.BinaryFileCount(); n > 0 {
		chart.LabelAndIntValue("Binary Files", uint64(n))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeExtremes writes the size extremes and the smallest text snapshot.
func (w *MarkdownWriter) writeExtremes(md *markdown.Markdown, stats *model.Statistics) {
	md.H3("File Sizes")
	md.PlainText("")

	row := func(label string, f *model.FileStat) []string {
		if f == nil {
			return []string{label, "-", "-"}
		}
		return []string{label, "`" + displaySelector(f.Path) + "`", strconv.FormatInt(f.Size, 10)}
	}

	var smallestText *model.FileStat
	if stats.SmallestText != nil {
		smallestText = &stats.SmallestText.FileStat
	}

	md.Table(markdown.TableSet{
		Header: []string{"Extreme", "Selector", "Bytes"},
		Rows: [][]string{
			row("Smallest Text", smallestText),
			row("Largest Text", stats.LargestText),
			row("Smallest Binary", stats.SmallestBinary),
			row("Largest Binary", stats.LargestBinary),
		},
	})
	md.PlainText("")

	if stats.SmallestText != nil {
		md.PlainTextf("Contents of the smallest text file `%s`:", displaySelector(stats.SmallestText.Path))
		md.PlainText("")
		md.CodeBlocks(markdown.SyntaxHighlightText, escapeControl(stats.SmallestText.Content))
		md.PlainText("")
	}
}

// writeErrors writes the error breakdown and the error table.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, stats *model.Statistics) {
	md.H3("Errors")
	md.PlainText("")

	if len(stats.Errors) == 0 {
		md.Tip("No errors were recorded.")
		md.PlainText("")
		return
	}

	counts := stats.ErrorCountByKind()
	summary := make([][]string, 0, len(errorKinds))
	for _, kind := range errorKinds {
		if n := counts[kind]; n > 0 {
			summary = append(summary, []string{w.title.String(kind.String()), strconv.Itoa(n)})
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   summary,
	})
	md.PlainText("")

	rows := make([][]string, 0, len(stats.Errors))
	for _, e := range stats.Errors {
		detail := e.Detail
		if detail == "" {
			detail = "-"
		}
		rows = append(rows, []string{
			w.title.String(e.Kind.String()),
			"`" + model.NewServerKey(e.Host, e.Port).String() + "`",
			"`" + displaySelector(e.Selector) + "`",
			escapeCell(truncateString(detail, 80)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Server", "Selector", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeExternal writes the external server table.
func (w *MarkdownWriter) writeExternal(md *markdown.Markdown, stats *model.Statistics) {
	md.H3("External Servers")
	md.PlainText("")

	if len(stats.ExternalServers) == 0 {
		md.PlainText("No external servers referenced.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(stats.ExternalServers))
	down := 0
	for _, ext := range stats.ExternalServers {
		status := externalStatus(ext)
		switch status {
		case "UP":
			status = "🟢 UP"
		case "DOWN":
			status = "🔴 DOWN"
			down++
		}
		rows = append(rows, []string{"`" + ext.Key().String() + "`", status})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Server", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if down > 0 {
		md.Note(fmt.Sprintf("%d of %d referenced servers did not accept connections.", down, len(stats.ExternalServers)))
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [gophercrawl](https://github.com/nao1215/gophercrawl)*")
}

func bulletText(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- `")
		sb.WriteString(displaySelector(item))
		sb.WriteString("`\n")
	}
	return sb.String()
}

// escapeCell keeps table cells on one line.
func escapeCell(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "|", `\|`)), " ")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

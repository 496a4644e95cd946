package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/gophercrawl/internal/model"
)

// createTestStats creates statistics with sample data for testing.
func createTestStats() *model.Statistics {
	stats := model.NewStatistics("gopher.example.org", 70)
	stats.StartedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stats.FinishedAt = stats.StartedAt.Add(1500 * time.Millisecond)
	stats.Requests = 6

	stats.RecordDirectory("/phlog")
	stats.RecordDirectory("")
	stats.RecordText("/about.txt", 42, func() string { return "About this hole" })
	stats.RecordText("/big.txt", 5000, func() string { return "unused" })
	stats.RecordBinary("/cat.gif", 1024)
	stats.RecordBinary("/tiny.bin", 3)

	stats.AddError(model.CrawlError{
		Kind:     model.ErrorTimeout,
		Host:     "gopher.example.org",
		Port:     70,
		Selector: "/slow",
		Detail:   "fetch gopher.example.org:70 \"/slow\": timeout",
	})
	stats.AddError(model.CrawlError{
		Kind:     model.ErrorProtocolEntry,
		Host:     "error.host",
		Port:     1,
		Selector: "missing",
		Detail:   "Not found",
	})

	stats.ReserveExternal(model.NewServerKey("up.example.net", 70))
	stats.SetExternalStatus(model.NewServerKey("up.example.net", 70), true)
	stats.ReserveExternal(model.NewServerKey("down.example.net", 7070))
	stats.SetExternalStatus(model.NewServerKey("down.example.net", 7070), false)

	return stats
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestStats()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"GOPHERCRAWL REPORT",
			"Server:         gopher.example.org:70",
			"Time taken:     1.5s",
			"Requests:       6",
			"Status:         Complete",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("writes counts and file lists", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestStats()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Number of Gopher directories: 2",
			"Number of text files: 2",
			" - /about.txt",
			"Number of binary files: 2",
			" - /cat.gif",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, " - /phlog") {
			t.Error("directory list should only appear in verbose mode")
		}
	})

	t.Run("writes extremes and snapshot", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestStats()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Contents of the smallest text file '/about.txt' (42 bytes):\nAbout this hole\n",
			"Size of the largest text file: 5000 bytes (/big.txt)",
			"Size of the smallest binary file: 3 bytes (/tiny.bin)",
			"Size of the largest binary file: 1024 bytes (/cat.gif)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("escapes control characters in the snapshot", func(t *testing.T) {
		t.Parallel()

		stats := model.NewStatistics("gopher.example.org", 70)
		stats.RecordText("/ansi.txt", 24, func() string { return "\x1b[2Jcleared\r\nbell\a\tend\n" })

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(stats); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.ContainsAny(output, "\x1b\a\r") {
			t.Errorf("output contains raw control characters: %q", output)
		}
		if want := "\\x1b[2Jcleared\nbell\\x07\tend\n"; !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	})

	t.Run("writes errors and external servers", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestStats()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Number of errors: 2",
			`(gopher.example.org, 70, "/slow") timeout`,
			`(error.host, 1, "missing") error entry: Not found`,
			" - up.example.net:70 -> UP",
			" - down.example.net:7070 -> DOWN",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("handles empty crawl", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(model.NewStatistics("gopher.example.org", 70)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"No text files found.",
			"Size of the largest text file: n/a",
			"Number of errors: 0",
			"No external servers referenced.",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("handles cancelled crawl", func(t *testing.T) {
		t.Parallel()

		stats := createTestStats()
		stats.Cancelled = true

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(stats); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "CANCELLED (partial results)") {
			t.Error("expected output to show cancelled status")
		}
	})

	t.Run("verbose mode lists directories and error kinds", func(t *testing.T) {
		t.Parallel()

		stats := createTestStats()
		stats.Skipped = 4

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(stats); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{" - /phlog", " - (root)", "skipped by depth or pattern: 4", "timeout:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("reports bytes written", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestStats())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("n = %d, want %d", n, buf.Len())
		}
	})
}

// TestSimpleWriterSummary tests that summary mode caps long lists.
func TestSimpleWriterSummary(t *testing.T) {
	t.Parallel()

	stats := model.NewStatistics("gopher.example.org", 70)
	for i := range 25 {
		stats.RecordText(fmt.Sprintf("/t%02d", i), int64(i+1), func() string { return "x" })
	}
	for i := range 8 {
		stats.AddError(model.CrawlError{Kind: model.ErrorMalformedLine, Host: "gopher.example.org", Port: 70, Selector: fmt.Sprintf("/e%d", i)})
	}

	t.Run("summary on", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithSummary(true)).Write(stats); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, " - /t10") {
			t.Error("expected text list to be capped at 10 entries")
		}
		if !strings.Contains(output, "... and 15 more") {
			t.Error("expected text list remainder line")
		}
		if strings.Contains(output, `"/e5"`) {
			t.Error("expected error list to be capped at 5 entries")
		}
		if !strings.Contains(output, "... and 3 more") {
			t.Error("expected error list remainder line")
		}
	})

	t.Run("summary off", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(stats); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, " - /t24") || !strings.Contains(output, `"/e7"`) {
			t.Error("expected full lists without summary mode")
		}
		if strings.Contains(output, "more") {
			t.Error("unexpected remainder line without summary mode")
		}
	})
}

// TestSimpleWriterWriteAll tests batch output.
func TestSimpleWriterWriteAll(t *testing.T) {
	t.Parallel()

	a := createTestStats()
	b := model.NewStatistics("other.example.net", 7070)

	var buf bytes.Buffer
	n, err := NewSimpleWriter(&buf).WriteAll([]*model.Statistics{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("n = %d, want %d", n, buf.Len())
	}

	output := buf.String()
	if strings.Count(output, "GOPHERCRAWL REPORT") != 2 {
		t.Errorf("expected two reports, got:\n%s", output)
	}
	if strings.Index(output, "gopher.example.org:70") > strings.Index(output, "other.example.net:7070") {
		t.Error("expected reports in input order")
	}
}

// TestJSONWriter tests JSON output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestStats()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		if decoded["host"] != "gopher.example.org" {
			t.Errorf("host = %v", decoded["host"])
		}
		if decoded["requests"] != float64(6) {
			t.Errorf("requests = %v", decoded["requests"])
		}
		smallest, ok := decoded["smallest_text"].(map[string]any)
		if !ok || smallest["content"] != "About this hole" {
			t.Errorf("smallest_text = %v", decoded["smallest_text"])
		}
		errs, ok := decoded["errors"].([]any)
		if !ok || len(errs) != 2 {
			t.Fatalf("errors = %v", decoded["errors"])
		}
		if kind := errs[0].(map[string]any)["kind"]; kind != "timeout" {
			t.Errorf("errors[0].kind = %v, want timeout", kind)
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestStats()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact JSON on a single line")
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestStats()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "\n  \"run_id\"") {
			t.Errorf("expected indented JSON, got:\n%s", buf.String())
		}
	})

	t.Run("empty lists are arrays, not null", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(model.NewStatistics("h", 70)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(buf.String(), "null") {
			t.Errorf("unexpected null in output: %s", buf.String())
		}
	})

	t.Run("WriteAll wraps crawls with metadata", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithVersion("v1.2.3"))
		w.now = func() time.Time { return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC) }

		if _, err := w.WriteAll([]*model.Statistics{createTestStats(), model.NewStatistics("other.example.net", 70)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded BatchReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("Version = %q", decoded.Version)
		}
		if !decoded.GeneratedAt.Equal(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("GeneratedAt = %v", decoded.GeneratedAt)
		}
		if len(decoded.Crawls) != 2 || decoded.Crawls[1].Host != "other.example.net" {
			t.Errorf("Crawls = %+v", decoded.Crawls)
		}
	})
}

// TestWithIndent tests custom indentation.
func TestWithIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestStats()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "\n>\t\"run_id\"") {
		t.Errorf("expected custom prefix and indent, got:\n%s", buf.String())
	}
}

// TestMarkdownWriter tests Markdown output.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	render := func(t *testing.T, crawls ...*model.Statistics) string {
		t.Helper()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteAll(crawls); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return buf.String()
	}

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestStats())
		for _, want := range []string{"# Gophercrawl Report", "## gopher.example.org:70", "Run ID", "✅ Complete"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("includes pie chart", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestStats())
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid code block")
		}
		if !strings.Contains(output, "Resource Distribution") {
			t.Error("expected chart title")
		}
	})

	t.Run("labels error kinds in title case", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestStats())
		if !strings.Contains(output, "Timeout") || !strings.Contains(output, "Error Entry") {
			t.Errorf("expected title-cased error kinds, got:\n%s", output)
		}
	})

	t.Run("writes snapshot and extremes", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestStats())
		for _, want := range []string{"About this hole", "`/big.txt`", "5000", "`/tiny.bin`"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes external servers", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestStats())
		if !strings.Contains(output, "🟢 UP") || !strings.Contains(output, "🔴 DOWN") {
			t.Error("expected external server statuses")
		}
		if !strings.Contains(output, "1 of 2 referenced servers") {
			t.Error("expected note about unreachable servers")
		}
	})

	t.Run("handles cancelled crawl", func(t *testing.T) {
		t.Parallel()

		stats := createTestStats()
		stats.Cancelled = true

		output := render(t, stats)
		if !strings.Contains(output, "Cancelled (partial results)") {
			t.Error("expected cancelled status")
		}
		if !strings.Contains(output, "[!WARNING]") {
			t.Error("expected warning alert")
		}
	})

	t.Run("handles crawl with no errors", func(t *testing.T) {
		t.Parallel()

		output := render(t, model.NewStatistics("gopher.example.org", 70))
		if !strings.Contains(output, "No errors were recorded.") {
			t.Error("expected no-errors tip")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("pie chart should be omitted for an empty crawl")
		}
	})

	t.Run("batch run gets an index table", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestStats(), model.NewStatistics("other.example.net", 7070))
		if !strings.Contains(output, "| Server") {
			t.Error("expected index table")
		}
		if !strings.Contains(output, "## other.example.net:7070") {
			t.Error("expected section for second crawl")
		}
	})

	t.Run("keeps table cells on one line", func(t *testing.T) {
		t.Parallel()

		stats := model.NewStatistics("gopher.example.org", 70)
		stats.AddError(model.CrawlError{Kind: model.ErrorMalformedLine, Host: "gopher.example.org", Port: 70, Detail: "line one\r\nline two"})

		output := render(t, stats)
		if !strings.Contains(output, "line one line two") {
			t.Errorf("expected escaped detail, got:\n%s", output)
		}
	})

	t.Run("writes footer with link", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestStats())
		if !strings.Contains(output, "https://github.com/nao1215/gophercrawl") {
			t.Error("expected footer link")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"日本語のテキスト", 5, "日本..."},
		{"abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.in, tt.max); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestEscapeControl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text", in: "hello\tworld\n", want: "hello\tworld\n"},
		{name: "crlf line ends", in: "a\r\nb\r\n", want: "a\nb\n"},
		{name: "lone carriage return", in: "progress\rdone", want: `progress\rdone`},
		{name: "terminal escape", in: "\x1b]0;title\x07", want: `\x1b]0;title\x07`},
		{name: "c1 control", in: "x\u009by", want: `x\x9by`},
		{name: "non-ascii kept", in: "日本語", want: "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := escapeControl(tt.in); got != tt.want {
				t.Errorf("escapeControl(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Package report renders crawl statistics.
//
// Writers for different output formats:
//   - SimpleWriter: the plain text summary printed at the end of a crawl
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: a Markdown document with tables and a Mermaid chart
//
// Writers only read the statistics. They never touch the network.
package report

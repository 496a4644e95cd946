// Package crawler walks a Gopher server and aggregates what it finds.
//
// # Architecture
//
// The Spider type holds crawl settings. Each call to Crawl creates a
// private crawl state with one coordinator goroutine that owns the FIFO
// worklist, the visited set and the statistics. Transport calls run on a
// bounded errgroup and report back over a channel, so no crawl state is
// shared between goroutines. With one worker the crawl order is fully
// deterministic.
//
// # Entry policy
//
//   - Directory on the crawled server: recorded and traversed.
//   - Directory on another server: recorded, and that server is probed once.
//   - Text file: fetched, measured, and snapshotted if it is the smallest.
//   - Binary file: fetched and measured; content is discarded.
//   - Error entry: recorded as an error.
//   - Anything else: ignored.
//
// Resources are identified by (host, port, selector) regardless of type.
// Every identity is fetched at most once per crawl.
//
// # Components
//
//   - Spider: configuration and the Crawl entry points
//   - ParseListing: turns a directory response into entries and line errors
//   - Decoder: converts listing and snapshot bytes to UTF-8
//
// # Usage
//
//	spider := crawler.NewSpider(transport.NewClient(), crawler.WithMaxDepth(3))
//	stats, err := spider.Crawl(ctx, "gopher.example.org", 70)
package crawler

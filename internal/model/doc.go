// Package model defines the data structures shared by the gophercrawl
// components.
//
// The types in this package describe what a crawl observes:
//   - Identity: the (host, port, selector) key used for deduplication
//   - Entry: one parsed line of a Gopher directory listing
//   - CrawlError: one recorded failure, tagged with its origin
//   - Statistics: the aggregate record produced by a single crawl
//
// Statistics is created fresh for every crawl and handed to the report
// writers read-only once the crawl returns. Nothing in this package keeps
// package-level state.
package model

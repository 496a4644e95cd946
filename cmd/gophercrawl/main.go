// Package main provides the entry point for the gophercrawl CLI.
//
// gophercrawl recursively explores Gopher servers and reports what it found:
// directories, text and binary files, size extremes, errors, and the
// liveness of every other server the crawled menus point to.
//
// Usage:
//
//	gophercrawl crawl <host> [port]
//	gophercrawl crawl gopher://host:port/1/selector
//
// See --help for all available options.
package main

func main() {
	Execute()
}

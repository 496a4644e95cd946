// Package pipeline runs crawls for several targets.
//
// A BatchProcessor takes the list of targets from the command line and
// hands each one to a CrawlFunc, limiting how many run at once. Crawls do
// not share state: every target gets its own statistics, and results are
// returned in target order regardless of completion order.
package pipeline

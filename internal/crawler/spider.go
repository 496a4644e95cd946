package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/gophercrawl/internal/model"
	"github.com/nao1215/gophercrawl/internal/transport"
)

// Default spider settings.
const (
	// DefaultWorkers keeps the crawl sequential and deterministic.
	DefaultWorkers = 1

	// DefaultSnapshotSize is the number of characters kept from the
	// smallest text file.
	DefaultSnapshotSize = 1000
)

// ErrInvalidTarget is returned by Crawl when the start address is unusable.
var ErrInvalidTarget = errors.New("invalid crawl target")

// Fetcher performs Gopher requests. *transport.Client satisfies it.
type Fetcher interface {
	// Fetch sends selector to host:port and returns the full response.
	Fetch(ctx context.Context, host string, port int, selector string) ([]byte, error)

	// Measure sends selector to host:port, discards the response and
	// returns its size in bytes.
	Measure(ctx context.Context, host string, port int, selector string) (int64, error)

	// Probe reports whether host:port accepts connections.
	Probe(ctx context.Context, host string, port int) error
}

// Spider crawls one Gopher server.
//
// A Spider holds configuration only; every call to Crawl builds fresh crawl
// state, so one Spider can be reused for several servers. Crawl calls on the
// same Spider may run concurrently.
type Spider struct {
	fetcher Fetcher

	// workers is the number of concurrent transport calls.
	workers int

	// maxDepth limits how many directory levels below the start selector are
	// crawled. 0 means unlimited.
	maxDepth int

	filter selectorFilter

	// snapshotSize is the number of characters kept from the smallest text
	// file. 0 keeps the whole file.
	snapshotSize int

	decoder *Decoder
	logger  *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithWorkers sets the number of concurrent fetches. Values below 1 are ignored.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n >= 1 {
			s.workers = n
		}
	}
}

// WithMaxDepth sets the maximum crawl depth.
// 0 = unlimited, 1 = start listing plus its direct subdirectories, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithIgnorePatterns sets selector patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/archive/*", "*.gif").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.filter.ignore = patterns
	}
}

// WithFollowPatterns sets selector patterns to follow during crawling.
// If set, only directories matching these patterns are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.filter.follow = patterns
	}
}

// WithSnapshotSize sets how many characters of the smallest text file are kept.
func WithSnapshotSize(n int) SpiderOption {
	return func(s *Spider) {
		if n >= 0 {
			s.snapshotSize = n
		}
	}
}

// WithDecoder sets the charset decoder for listings and snapshots.
func WithDecoder(d *Decoder) SpiderOption {
	return func(s *Spider) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that issues requests through f.
func NewSpider(f Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:      f,
		workers:      DefaultWorkers,
		snapshotSize: DefaultSnapshotSize,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.decoder == nil {
		s.decoder, _ = NewDecoder("") //nolint:errcheck // utf-8 is always available
	}

	return s
}

// Crawl explores host:port starting at its root menu.
func (s *Spider) Crawl(ctx context.Context, host string, port int) (*model.Statistics, error) {
	return s.CrawlSelector(ctx, host, port, "")
}

// CrawlSelector explores host:port starting at the directory selector.
//
// Every failure met while crawling is recorded in the returned statistics
// and never stops the crawl. If ctx ends first, no new requests are sent,
// in-flight requests are drained, and the partial statistics are returned
// with Cancelled set. The error is non-nil only for an unusable target.
func (s *Spider) CrawlSelector(ctx context.Context, host string, port int, selector string) (*model.Statistics, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", ErrInvalidTarget)
	}
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", ErrInvalidTarget)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrInvalidTarget, port)
	}

	c := newCrawl(s, host, port, selector)
	c.run(ctx)
	return c.stats, nil
}

// jobKind is the kind of transport call a job makes.
type jobKind int

const (
	jobListing jobKind = iota
	jobText
	jobBinary
	jobProbe
)

func (k jobKind) String() string {
	switch k {
	case jobListing:
		return "listing"
	case jobText:
		return "text"
	case jobBinary:
		return "binary"
	default:
		return "probe"
	}
}

// job is one unit of work in the worklist.
type job struct {
	kind     jobKind
	host     string
	port     int
	selector string

	// depth is the directory depth of a listing (0 for the start selector).
	depth int
}

func (j job) identity() model.Identity {
	return model.NewIdentity(j.host, j.port, j.selector)
}

// result is what a worker hands back to the coordinator.
type result struct {
	job  job
	body []byte

	// size is the response size. Binary bodies are measured, not kept.
	size int64
	err  error
}

// crawl is the state of one Crawl call. Only the coordinator goroutine
// (run) touches it; workers see nothing but the job they execute.
type crawl struct {
	spider *Spider
	server model.ServerKey
	stats  *model.Statistics

	// visited holds every identity that was dequeued for fetching.
	visited map[model.Identity]struct{}

	// seenDirs holds directory identities already listed in the statistics,
	// plus the start listing, which is never counted as a directory.
	seenDirs map[model.Identity]struct{}

	// queue is the FIFO worklist.
	queue []job

	inflight int
	results  chan result
}

func newCrawl(s *Spider, host string, port int, selector string) *crawl {
	stats := model.NewStatistics(host, port)
	stats.StartSelector = selector

	c := &crawl{
		spider:   s,
		server:   model.NewServerKey(host, port),
		stats:    stats,
		visited:  make(map[model.Identity]struct{}),
		seenDirs: make(map[model.Identity]struct{}),
		results:  make(chan result, s.workers),
	}
	c.seenDirs[model.NewIdentity(host, port, selector)] = struct{}{}
	c.queue = append(c.queue, job{kind: jobListing, host: host, port: port, selector: selector})
	return c
}

// run is the coordinator loop. It dispatches jobs while worker slots are
// free, then waits for one result and handles it, until both the worklist and
// the in-flight set are empty.
func (c *crawl) run(ctx context.Context) {
	logger := c.spider.logger.With("run_id", c.stats.RunID, "server", c.server.String())
	logger.Debug("crawl started", "selector", c.stats.StartSelector, "workers", c.spider.workers)

	c.stats.StartedAt = time.Now()

	var g errgroup.Group
	g.SetLimit(c.spider.workers)

	for {
		for ctx.Err() == nil && c.inflight < c.spider.workers && len(c.queue) > 0 {
			j := c.queue[0]
			c.queue = c.queue[1:]

			if !c.admit(j) {
				continue
			}

			c.inflight++
			g.Go(func() error {
				c.results <- c.spider.execute(ctx, j)
				return nil
			})
		}

		if c.inflight == 0 {
			break
		}

		r := <-c.results
		c.inflight--
		c.handle(ctx, logger, r)
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	c.stats.FinishedAt = time.Now()
	if ctx.Err() != nil {
		c.stats.Cancelled = true
		logger.Debug("crawl cancelled", "pending", len(c.queue), "cause", context.Cause(ctx))
	}
	logger.Debug("crawl finished",
		"requests", c.stats.Requests,
		"directories", c.stats.DirectoryCount(),
		"errors", len(c.stats.Errors),
		"duration", c.stats.Duration(),
	)
}

// admit performs the visited check-and-insert for a fetch job. Probes are
// deduplicated when they are reserved and always pass.
func (c *crawl) admit(j job) bool {
	if j.kind == jobProbe {
		return true
	}

	id := j.identity()
	if _, ok := c.visited[id]; ok {
		return false
	}
	c.visited[id] = struct{}{}
	c.stats.Requests++
	return true
}

// execute runs the transport call for j. It is the only code that runs on
// worker goroutines.
func (s *Spider) execute(ctx context.Context, j job) result {
	if j.kind == jobProbe {
		return result{job: j, err: s.fetcher.Probe(ctx, j.host, j.port)}
	}
	if j.kind == jobBinary {
		size, err := s.fetcher.Measure(ctx, j.host, j.port, j.selector)
		return result{job: j, size: size, err: err}
	}
	body, err := s.fetcher.Fetch(ctx, j.host, j.port, j.selector)
	return result{job: j, body: body, size: int64(len(body)), err: err}
}

// handle folds one result into the statistics and the worklist.
func (c *crawl) handle(ctx context.Context, logger *slog.Logger, r result) {
	j := r.job

	if r.err != nil && (ctx.Err() != nil || errors.Is(r.err, transport.ErrCanceled)) {
		// Interrupted by cancellation. The request neither succeeded nor
		// failed on its own, so nothing is recorded.
		logger.Debug("request interrupted", "kind", j.kind.String(), "selector", j.selector)
		return
	}

	switch j.kind {
	case jobProbe:
		up := r.err == nil
		c.stats.SetExternalStatus(model.NewServerKey(j.host, j.port), up)
		logger.Debug("external server probed", "host", j.host, "port", j.port, "up", up)
		return
	case jobListing:
		if r.err != nil {
			c.recordFailure(j, r.err)
			logger.Debug("listing failed", "selector", j.selector, "error", r.err)
			return
		}
		c.handleListing(logger, j, r.body)
	case jobText:
		if r.err != nil {
			c.recordFailure(j, r.err)
			logger.Debug("text fetch failed", "selector", j.selector, "error", r.err)
			return
		}
		text := c.decodeText(j, r.body)
		c.stats.RecordText(j.selector, r.size, func() string {
			return truncateRunes(text, c.spider.snapshotSize)
		})
		logger.Debug("text file fetched", "selector", j.selector, "bytes", r.size)
	case jobBinary:
		if r.err != nil {
			c.recordFailure(j, r.err)
			logger.Debug("binary fetch failed", "selector", j.selector, "error", r.err)
			return
		}
		c.stats.RecordBinary(j.selector, r.size)
		logger.Debug("binary file measured", "selector", j.selector, "bytes", r.size)
	}
}

// handleListing parses a directory response and dispatches its entries.
func (c *crawl) handleListing(logger *slog.Logger, parent job, body []byte) {
	listing := ParseListing(body, c.spider.decoder, parent.host)

	for _, le := range listing.Errors {
		kind := model.ErrorMalformedLine
		if errors.Is(le, ErrDecode) {
			kind = model.ErrorDecodeFailure
		}
		c.stats.AddError(model.CrawlError{
			Kind:     kind,
			Host:     parent.host,
			Port:     parent.port,
			Selector: parent.selector,
			Detail:   le.Error(),
		})
	}

	logger.Debug("listing parsed",
		"selector", parent.selector,
		"entries", len(listing.Entries),
		"bad_lines", len(listing.Errors),
		"terminated", listing.Terminated,
	)

	for _, e := range listing.Entries {
		c.dispatch(logger, parent, e)
	}
}

// dispatch applies the per-type policy to one entry.
func (c *crawl) dispatch(logger *slog.Logger, parent job, e model.Entry) {
	switch e.Type.Kind() {
	case model.KindDirectory:
		id := e.Identity()
		if _, ok := c.seenDirs[id]; !ok {
			c.seenDirs[id] = struct{}{}
			c.stats.RecordDirectory(e.Selector)
		}

		if e.Server() != c.server {
			if c.stats.ReserveExternal(e.Server()) {
				c.queue = append(c.queue, job{kind: jobProbe, host: e.Host, port: e.Port})
			}
			return
		}

		depth := parent.depth + 1
		if c.spider.maxDepth > 0 && depth > c.spider.maxDepth {
			c.skip(logger, e, "depth limit")
			return
		}
		if !c.spider.filter.allowDirectory(e.Selector) {
			c.skip(logger, e, "pattern")
			return
		}
		c.queue = append(c.queue, job{kind: jobListing, host: e.Host, port: e.Port, selector: e.Selector, depth: depth})

	case model.KindText, model.KindBinary:
		if !c.spider.filter.allowFile(e.Selector) {
			c.skip(logger, e, "pattern")
			return
		}
		kind := jobText
		if e.Type.Kind() == model.KindBinary {
			kind = jobBinary
		}
		c.queue = append(c.queue, job{kind: kind, host: e.Host, port: e.Port, selector: e.Selector, depth: parent.depth})

	case model.KindError:
		c.stats.AddError(model.CrawlError{
			Kind:     model.ErrorProtocolEntry,
			Host:     e.Host,
			Port:     e.Port,
			Selector: e.Selector,
			Detail:   e.Display,
		})

	case model.KindOther:
	}
}

func (c *crawl) skip(logger *slog.Logger, e model.Entry, reason string) {
	c.stats.Skipped++
	logger.Debug("entry skipped", "selector", e.Selector, "type", e.Type.String(), "reason", reason)
}

// decodeText decodes every fetched text body, so a DecodeFailure is
// recorded for each undecodable file whatever order files arrive in.
func (c *crawl) decodeText(j job, body []byte) string {
	text, err := c.spider.decoder.Decode(body)
	if err != nil {
		c.stats.AddError(model.CrawlError{
			Kind:     model.ErrorDecodeFailure,
			Host:     j.host,
			Port:     j.port,
			Selector: j.selector,
			Detail:   err.Error(),
		})
	}
	return text
}

// recordFailure records a transport failure against the job's resource.
func (c *crawl) recordFailure(j job, err error) {
	kind := model.ErrorConnectionFailure
	switch {
	case errors.Is(err, transport.ErrTimeout):
		kind = model.ErrorTimeout
	case errors.Is(err, transport.ErrTooLarge):
		kind = model.ErrorTooLarge
	}
	c.stats.AddError(model.CrawlError{
		Kind:     kind,
		Host:     j.host,
		Port:     j.port,
		Selector: j.selector,
		Detail:   err.Error(),
	})
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/gophercrawl/internal/config"
	"github.com/nao1215/gophercrawl/internal/crawler"
	"github.com/nao1215/gophercrawl/internal/log"
	"github.com/nao1215/gophercrawl/internal/model"
	"github.com/nao1215/gophercrawl/internal/pipeline"
	"github.com/nao1215/gophercrawl/internal/report"
	"github.com/nao1215/gophercrawl/internal/tor"
	"github.com/nao1215/gophercrawl/internal/transport"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [host[:port] | host port | gopher-url]...",
		Short: "Crawl one or more Gopher servers and print a report",
		Long: `Crawl starts at a server's root menu (or the directory named by a
gopher:// URL) and follows every directory on that server. Text and binary
files are downloaded to record their sizes; binary files are counted as they
stream and never held in memory. Directories on other servers are
not crawled; each such server is probed once to report whether it is up.

Errors met while crawling (timeouts, refused connections, oversized text,
malformed menu lines, error entries) are recorded in the report and never stop the crawl.
Press Ctrl+C to stop early and print the partial results.

When no target is given, the host and port are asked for interactively.
Two arguments are read as "host port" when the second is a number
("alpha 70"); two bare words ("alpha beta") are two servers.

Examples:
  # Crawl a server on the default port 70
  gophercrawl crawl gopher.floodgap.com

  # Crawl a server on another port
  gophercrawl crawl example.org 7070
  gophercrawl crawl example.org:7070

  # Start from a sub-directory
  gophercrawl crawl gopher://example.org/1/phlog

  # Crawl several servers, two at a time, with four workers each
  gophercrawl crawl --batch 2 --workers 4 a.example b.example c.example

  # Crawl a Gopher hole behind Tor
  gophercrawl crawl --tor-proxy 127.0.0.1:9050 <56-char-address>.onion

  # Output JSON report
  gophercrawl crawl --json gopher.floodgap.com

Configuration file (.gophercrawl) example:
  defaults:
    depth: 5
  servers:
    gopher.floodgap.com:
      ignorePatterns:
        - "/archive/*"
    retro.example.net:7070:
      encoding: cp437`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Transport flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connect plus read timeout for each request")
	cmd.Flags().Duration("probe-timeout", config.DefaultProbeTimeout,
		"Timeout for each external server liveness probe")
	cmd.Flags().Int64("max-response-size", config.DefaultMaxResponseSize,
		"Maximum size of a menu or text response in bytes (0 disables the limit)")

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent requests per crawl")
	cmd.Flags().IntP("max-depth", "d", 0,
		"Maximum directory depth below the start selector (0 means unlimited)")
	cmd.Flags().Duration("max-duration", 0,
		"Stop each crawl after this long and report partial results (0 disables)")
	cmd.Flags().Int("snapshot-size", config.DefaultSnapshotSize,
		"Characters kept from the smallest text file (0 keeps the whole file)")
	cmd.Flags().String("encoding", config.DefaultEncoding,
		"Character set of listings and text files")

	// Batch crawling flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of servers crawled concurrently")

	// Tor flags
	cmd.Flags().StringP("tor-proxy", "e", "",
		"Route connections through the Tor SOCKS5 proxy at this address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("embedded-tor", false,
		"Start an embedded Tor daemon and route connections through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .gophercrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().BoolP("summary", "s", false,
		"Shorten long file and error lists in the text report")
	cmd.Flags().String("log-format", config.LogFormatText,
		"Log format on stderr: text or json")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and arguments.
// With no arguments the target is read from the command's input.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	flags := cmd.Flags()

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = flags.GetDuration("probe-timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxResponseSize, err = flags.GetInt64("max-response-size"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
		return nil, err
	}
	if cfg.MaxDuration, err = flags.GetDuration("max-duration"); err != nil {
		return nil, err
	}
	if cfg.SnapshotSize, err = flags.GetInt("snapshot-size"); err != nil {
		return nil, err
	}
	if cfg.Encoding, err = flags.GetString("encoding"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.TorProxyAddress, err = flags.GetString("tor-proxy"); err != nil {
		return nil, err
	}
	if cfg.EmbeddedTor, err = flags.GetBool("embedded-tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.Summary, err = flags.GetBool("summary"); err != nil {
		return nil, err
	}
	if cfg.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicitly named config file must exist; otherwise a missing file
	// just means there are no per-server settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.Servers, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.Servers = &config.File{Servers: make(map[string]config.ServerConfig)}
	}

	if len(args) == 0 {
		target, err := promptTarget(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		cfg.Targets = []config.Target{target}
	} else {
		cfg.Targets, err = config.ParseTargetArgs(args)
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// promptTarget asks for a host and a port on out and reads the answers from
// in. An empty port selects the default Gopher port.
func promptTarget(in io.Reader, out io.Writer) (config.Target, error) {
	scanner := bufio.NewScanner(in)

	fmt.Fprint(out, "Host: ")
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return config.Target{}, fmt.Errorf("failed to read host: %w", err)
		}
		return config.Target{}, config.ErrNoTarget
	}
	host := strings.TrimSpace(scanner.Text())
	if host == "" {
		return config.Target{}, config.ErrNoTarget
	}

	target, err := config.ParseTarget(host)
	if err != nil {
		return config.Target{}, err
	}

	fmt.Fprintf(out, "Port [%d]: ", target.Port)
	if scanner.Scan() {
		if answer := strings.TrimSpace(scanner.Text()); answer != "" {
			if target.Port, err = config.ParsePort(answer); err != nil {
				return config.Target{}, err
			}
		}
	} else if err := scanner.Err(); err != nil {
		return config.Target{}, fmt.Errorf("failed to read port: %w", err)
	}

	return target, nil
}

// crawlPlan holds the resolved settings for one target.
type crawlPlan struct {
	settings config.ServerConfig
	decoder  *crawler.Decoder
	maxDepth int
}

// planTargets resolves per-server settings for every target. Unknown
// encodings are reported here, before any network activity.
func planTargets(cfg *config.Config) (map[config.Target]crawlPlan, error) {
	plans := make(map[config.Target]crawlPlan, len(cfg.Targets))
	for _, target := range cfg.Targets {
		if _, ok := plans[target]; ok {
			continue
		}

		settings := cfg.Servers.GetServerConfig(target.Host, target.Port)

		encoding := cfg.Encoding
		if settings.Encoding != "" {
			encoding = settings.Encoding
		}
		decoder, err := crawler.NewDecoder(encoding)
		if err != nil {
			return nil, fmt.Errorf("configuration error for %s: %w", target, err)
		}

		maxDepth := cfg.MaxDepth
		if settings.Depth > 0 {
			maxDepth = settings.Depth
		}

		plans[target] = crawlPlan{
			settings: settings,
			decoder:  decoder,
			maxDepth: maxDepth,
		}
	}
	return plans, nil
}

// runCrawl crawls every target and writes the report to out. Progress
// messages that are not part of the report go to status.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out, status io.Writer) error {
	plans, err := planTargets(cfg)
	if err != nil {
		return err
	}

	targets := make([]string, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		targets = append(targets, t.String())
	}
	logger.Info("starting crawl",
		"targets", targets,
		"workers", cfg.Workers,
		"batch_size", cfg.BatchSize,
		"tor", cfg.UsesTor(),
	)

	dialer, cleanup, err := setupDialer(ctx, cfg, logger, status)
	if err != nil {
		return err
	}
	defer cleanup()

	clientOpts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithProbeTimeout(cfg.ProbeTimeout),
		transport.WithMaxResponseSize(cfg.MaxResponseSize),
		transport.WithLogger(logger),
	}
	if dialer != nil {
		clientOpts = append(clientOpts, transport.WithDialer(dialer))
	}
	client := transport.NewClient(clientOpts...)

	crawlTarget := func(ctx context.Context, target config.Target) (*model.Statistics, error) {
		plan := plans[target]
		spider := crawler.NewSpider(client,
			crawler.WithWorkers(cfg.Workers),
			crawler.WithMaxDepth(plan.maxDepth),
			crawler.WithIgnorePatterns(plan.settings.IgnorePatterns),
			crawler.WithFollowPatterns(plan.settings.FollowPatterns),
			crawler.WithSnapshotSize(cfg.SnapshotSize),
			crawler.WithDecoder(plan.decoder),
			crawler.WithLogger(logger),
		)

		if cfg.MaxDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.MaxDuration)
			defer cancel()
		}

		return spider.CrawlSelector(ctx, target.Host, target.Port, target.Selector)
	}

	bp := pipeline.NewBatchProcessor(crawlTarget,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	results, batchErr := bp.ProcessBatch(ctx, cfg.Targets)

	interrupted := ctx.Err() != nil
	if interrupted {
		logger.Warn("crawl interrupted, reporting partial results",
			"completed", len(results),
			"total", len(cfg.Targets),
		)
	}
	logger.Info("crawl finished",
		"elapsed", time.Since(startTime).Round(time.Millisecond).String(),
		"reports", len(results),
	)

	if len(results) > 0 {
		if err := writeReport(cfg, out, results); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	// An interrupted run is still a run that completed with partial results.
	if batchErr != nil && !(interrupted && isContextError(batchErr)) {
		return batchErr
	}
	return nil
}

// isContextError reports whether every error joined in err comes from a
// cancelled or expired context.
func isContextError(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !isContextError(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// setupDialer returns the dialer for the transport. A nil dialer means
// direct TCP. The cleanup function is always safe to call.
func setupDialer(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer) (transport.Dialer, func(), error) {
	noop := func() {}

	switch {
	case cfg.TorProxyAddress != "":
		client, err := tor.NewClient(cfg.TorProxyAddress)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create Tor client: %w", err)
		}

		if s := client.CheckConnection(ctx); s != tor.ProxyStatusOK {
			return nil, noop, fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s)",
				s, cfg.TorProxyAddress)
		}

		logger.Info("Tor proxy connection verified", "address", cfg.TorProxyAddress)
		return client, noop, nil

	case cfg.EmbeddedTor:
		client, embeddedTor, err := startEmbeddedTor(ctx, cfg, logger, status)
		if err != nil {
			return nil, noop, err
		}
		return client, func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}, nil
	}

	return nil, noop, nil
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
// Returns the Tor client and embedded Tor manager on success.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, status io.Writer) (*tor.Client, *tor.EmbeddedTor, error) {
	fmt.Fprintln(status, "Starting embedded Tor daemon...")
	fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
	)

	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socks_addr", embeddedTor.SocksAddr(),
		"control_addr", embeddedTor.ControlAddr(),
	)
	fmt.Fprintf(status, "Embedded Tor daemon started (SOCKS proxy: %s)\n\n", embeddedTor.SocksAddr())

	client, err := embeddedTor.NewClient()
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if s := client.CheckConnection(ctx); s != tor.ProxyStatusOK {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %s", s)
	}

	return client, embeddedTor, nil
}

// newReportWriter returns the writer for the requested report format.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		)
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out,
			report.WithSummary(cfg.Summary),
			report.WithVerbose(cfg.Verbose),
		)
	}
}

// writeReport writes a single crawl as one document and several crawls as
// a combined one.
func writeReport(cfg *config.Config, out io.Writer, results []*model.Statistics) error {
	w := newReportWriter(cfg, out)
	if len(results) == 1 {
		_, err := w.Write(results[0])
		return err
	}
	_, err := w.WriteAll(results)
	return err
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for gophercrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gophercrawl",
		Short: "Recursive crawler and indexer for Gopher servers",
		Long: `gophercrawl walks every directory reachable from a Gopher server's root
menu, visiting each (host, port, selector) once, and prints a summary of
directories, text files, binary files, size extremes, errors, and the
up/down state of external servers referenced along the way.

Gopher holes behind Tor (.onion hosts) can be crawled through an existing
Tor SOCKS proxy (--tor-proxy) or an embedded Tor daemon (--embedded-tor).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging and report details")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

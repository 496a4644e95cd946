// Package config provides configuration structures and utilities for
// gophercrawl: CLI options and their validation, target parsing, and the
// optional YAML file with per-server crawl settings.
package config

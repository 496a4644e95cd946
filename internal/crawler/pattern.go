package crawler

import (
	"path"
	"strings"
)

// selectorFilter decides which selectors the spider follows.
type selectorFilter struct {
	// ignore lists glob patterns of selectors that are never fetched.
	ignore []string

	// follow, when non-empty, restricts directory traversal to selectors
	// matching at least one pattern. Files are not affected.
	follow []string
}

// allowFile reports whether a file selector may be fetched.
func (f selectorFilter) allowFile(selector string) bool {
	return !matchAny(f.ignore, normalizeSelector(selector))
}

// allowDirectory reports whether a directory selector may be crawled.
//
//  1. If it matches any ignore pattern, skip it.
//  2. If follow patterns are set and none matches, skip it.
//  3. Otherwise, crawl it.
func (f selectorFilter) allowDirectory(selector string) bool {
	sel := normalizeSelector(selector)
	if matchAny(f.ignore, sel) {
		return false
	}
	if len(f.follow) > 0 {
		return matchAny(f.follow, sel)
	}
	return true
}

// normalizeSelector maps the root selector to "/" so that patterns written
// for path-like selectors also cover it.
func normalizeSelector(selector string) string {
	if selector == "" {
		return "/"
	}
	return selector
}

func matchAny(patterns []string, selector string) bool {
	for _, p := range patterns {
		if matchPattern(p, selector) {
			return true
		}
	}
	return false
}

// matchPattern checks if a selector matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of characters except "/"
//   - ? to match any single character
//   - a trailing "/*" to match everything below a prefix
//   - a trailing "*" with no other wildcard as a plain prefix match
//
// Examples:
//   - "/archive/*" matches "/archive/1999", "/archive/1999/jan"
//   - "*.gif" matches "/pics/cat.gif"
//   - "/phlog*" matches "/phlog", "/phlog/2024"
func matchPattern(pattern, selector string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(selector, prefix+"/") || selector == prefix {
			return true
		}
	}

	if strings.HasSuffix(pattern, "*") && !strings.ContainsAny(strings.TrimSuffix(pattern, "*"), "*?[") {
		if strings.HasPrefix(selector, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(selector, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	// Selectors are opaque strings, so path.Match is used rather than
	// filepath.Match to keep "/" as the separator on every platform.
	matched, err := path.Match(pattern, selector)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := path.Match(pattern, path.Base(selector))
		if err == nil && matched {
			return true
		}
	}

	return false
}

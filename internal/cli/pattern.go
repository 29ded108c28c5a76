// Package cli provides shared utilities for CLI commands.
package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandPattern matches a glob pattern against entry titles. A pattern
// without glob characters (*?[) requires an exact title match; with
// them, all matching titles are returned sorted.
func ExpandPattern(pattern string, titles []string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	if !strings.ContainsAny(pattern, "*?[") {
		for _, title := range titles {
			if title == pattern {
				return []string{pattern}, nil
			}
		}
		return nil, fmt.Errorf("no entry titled %q", pattern)
	}

	var matches []string
	for _, title := range titles {
		ok, err := filepath.Match(pattern, title)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, title)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no entries match pattern %q", pattern)
	}

	sort.Strings(matches)
	return matches, nil
}

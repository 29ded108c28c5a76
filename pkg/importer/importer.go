// Package importer parses password exports from other managers into vault
// entries. Supported formats: Bitwarden JSON, LastPass CSV, and 1Password
// CSV.
package importer

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

// Source identifies an export format.
type Source string

const (
	SourceBitwarden Source = "bitwarden"
	SourceLastPass  Source = "lastpass"
	Source1Password Source = "1password"
)

// ParsedEntry is one imported credential plus the group path it belongs
// under. The path is relative to the import target group; an empty path
// means the target itself.
type ParsedEntry struct {
	Data      vault.EntryData
	GroupPath []string
}

// SkippedItem records an export item that yielded no entry.
type SkippedItem struct {
	Name   string
	Reason string
}

// Result is the outcome of parsing one export file. Warnings are non-fatal
// issues; a nil error with zero entries is possible for empty exports.
type Result struct {
	Entries  []ParsedEntry
	Warnings []string
	Skipped  []SkippedItem
}

// Parser converts one export format into entries.
type Parser interface {
	Parse(data []byte) (*Result, error)
	Source() Source
}

// ParserFor returns the parser for a source name.
func ParserFor(source Source) (Parser, error) {
	switch source {
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceLastPass:
		return &LastPassParser{}, nil
	case Source1Password:
		return &OnePasswordParser{}, nil
	default:
		return nil, fmt.Errorf("unknown import source %q", source)
	}
}

// normalizeTitle cleans an exported item name. Unicode is normalized to
// NFC so visually identical titles compare equal after import.
func normalizeTitle(name string, counter *int) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		name = fmt.Sprintf("Imported entry %d", *counter)
		*counter++
	}
	return name
}

// splitGroupPath breaks a folder path on the separator, dropping empty
// segments.
func splitGroupPath(path, sep string) []string {
	if path == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(path, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

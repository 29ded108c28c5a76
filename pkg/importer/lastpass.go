package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

// LastPassParser parses LastPass CSV export files with the header
// url,username,password,totp,extra,name,grouping,fav.
type LastPassParser struct{}

const (
	lpColURL      = "url"
	lpColUsername = "username"
	lpColPassword = "password"
	lpColTOTP     = "totp"
	lpColExtra    = "extra"
	lpColName     = "name"
	lpColGrouping = "grouping"
	lpColFav      = "fav"
)

func (p *LastPassParser) Source() Source {
	return SourceLastPass
}

func (p *LastPassParser) Parse(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty lastpass export")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := cols[lpColName]; !ok {
		return nil, fmt.Errorf("missing required column %q", lpColName)
	}

	result := &Result{}
	counter := 1
	row := 1
	for {
		row++
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: %v", row, err))
			continue
		}

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		data := vault.EntryData{
			Title:    normalizeTitle(get(lpColName), &counter),
			Username: get(lpColUsername),
			Password: get(lpColPassword),
			URL:      get(lpColURL),
			Notes:    get(lpColExtra),
		}
		if data.URL == "http://sn" {
			// LastPass marks secure notes with a placeholder URL.
			data.URL = ""
		}
		if totp := get(lpColTOTP); totp != "" {
			setProtected(&data, "TOTP", totp)
		}
		if get(lpColFav) == "1" {
			data.Tags = append(data.Tags, "favorite")
		}

		result.Entries = append(result.Entries, ParsedEntry{
			Data:      data,
			GroupPath: splitGroupPath(get(lpColGrouping), "\\"),
		})
	}
	return result, nil
}

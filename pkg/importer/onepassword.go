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

// OnePasswordParser parses 1Password CSV export files with the header
// Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes.
type OnePasswordParser struct{}

const (
	opColTitle    = "Title"
	opColWebsite  = "Website"
	opColUsername = "Username"
	opColPassword = "Password"
	opColOTPAuth  = "OTPAuth"
	opColFavorite = "Favorite"
	opColArchived = "Archived"
	opColTags     = "Tags"
	opColNotes    = "Notes"
)

func (p *OnePasswordParser) Source() Source {
	return Source1Password
}

func (p *OnePasswordParser) Parse(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty 1password export")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.TrimSpace(col)] = i
	}
	if _, ok := cols[opColTitle]; !ok {
		return nil, fmt.Errorf("missing required column %q", opColTitle)
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

		if strings.EqualFold(get(opColArchived), "true") {
			result.Skipped = append(result.Skipped, SkippedItem{
				Name:   get(opColTitle),
				Reason: "archived",
			})
			continue
		}

		data := vault.EntryData{
			Title:    normalizeTitle(get(opColTitle), &counter),
			Username: get(opColUsername),
			Password: get(opColPassword),
			URL:      get(opColWebsite),
			Notes:    get(opColNotes),
		}
		if otp := get(opColOTPAuth); otp != "" {
			setProtected(&data, "TOTP", otp)
		}
		if strings.EqualFold(get(opColFavorite), "true") {
			data.Tags = append(data.Tags, "favorite")
		}
		for _, tag := range strings.Split(get(opColTags), ";") {
			if tag = strings.TrimSpace(tag); tag != "" {
				data.Tags = append(data.Tags, tag)
			}
		}

		result.Entries = append(result.Entries, ParsedEntry{Data: data})
	}
	return result, nil
}

package importer

import (
	"encoding/json"
	"fmt"

	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

// BitwardenParser parses Bitwarden JSON export files.
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
	bitwardenTypeCard       = 3
	bitwardenTypeIdentity   = 4
)

// Bitwarden custom field types. Hidden fields stay protected after import.
const (
	bitwardenFieldText   = 0
	bitwardenFieldHidden = 1
)

type bitwardenExport struct {
	Folders []bitwardenFolder `json:"folders"`
	Items   []bitwardenItem   `json:"items"`
}

type bitwardenFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type bitwardenItem struct {
	Type     int                    `json:"type"`
	Name     string                 `json:"name"`
	Notes    string                 `json:"notes"`
	FolderID *string                `json:"folderId"`
	Favorite bool                   `json:"favorite"`
	Login    *bitwardenLogin        `json:"login"`
	Card     *bitwardenCard         `json:"card"`
	Fields   []bitwardenCustomField `json:"fields"`
}

type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Username string         `json:"username"`
	Password string         `json:"password"`
	TOTP     string         `json:"totp"`
}

type bitwardenURI struct {
	URI string `json:"uri"`
}

type bitwardenCard struct {
	CardholderName string `json:"cardholderName"`
	Number         string `json:"number"`
	ExpMonth       string `json:"expMonth"`
	ExpYear        string `json:"expYear"`
	Code           string `json:"code"`
	Brand          string `json:"brand"`
}

type bitwardenCustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  int    `json:"type"`
}

func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

func (p *BitwardenParser) Parse(data []byte) (*Result, error) {
	var export bitwardenExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parse bitwarden json: %w", err)
	}

	folders := make(map[string]string, len(export.Folders))
	for _, f := range export.Folders {
		folders[f.ID] = f.Name
	}

	result := &Result{}
	counter := 1
	for i := range export.Items {
		item := &export.Items[i]
		entry, skip := p.parseItem(item, folders, &counter)
		if skip != "" {
			result.Skipped = append(result.Skipped, SkippedItem{Name: item.Name, Reason: skip})
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

func (p *BitwardenParser) parseItem(item *bitwardenItem, folders map[string]string, counter *int) (ParsedEntry, string) {
	data := vault.EntryData{
		Title: normalizeTitle(item.Name, counter),
		Notes: item.Notes,
	}
	if item.Favorite {
		data.Tags = append(data.Tags, "favorite")
	}

	switch item.Type {
	case bitwardenTypeLogin:
		if item.Login != nil {
			data.Username = item.Login.Username
			data.Password = item.Login.Password
			if len(item.Login.URIs) > 0 {
				data.URL = item.Login.URIs[0].URI
			}
			if item.Login.TOTP != "" {
				setProtected(&data, "TOTP", item.Login.TOTP)
			}
		}
	case bitwardenTypeSecureNote:
		// Notes already captured.
	case bitwardenTypeCard:
		if item.Card != nil {
			data.Username = item.Card.CardholderName
			setProtected(&data, "Card Number", item.Card.Number)
			setProtected(&data, "Card Code", item.Card.Code)
			setPlain(&data, "Card Expiry", joinNonEmpty(item.Card.ExpMonth, item.Card.ExpYear, "/"))
			setPlain(&data, "Card Brand", item.Card.Brand)
		}
	case bitwardenTypeIdentity:
		// Identity items carry no credential material this vault models.
		return ParsedEntry{}, "identity items are not supported"
	default:
		return ParsedEntry{}, fmt.Sprintf("unknown item type %d", item.Type)
	}

	for _, f := range item.Fields {
		if f.Name == "" || vault.IsReservedField(f.Name) {
			continue
		}
		switch f.Type {
		case bitwardenFieldHidden:
			setProtected(&data, f.Name, f.Value)
		default:
			setPlain(&data, f.Name, f.Value)
		}
	}

	entry := ParsedEntry{Data: data}
	if item.FolderID != nil {
		if name, ok := folders[*item.FolderID]; ok {
			entry.GroupPath = splitGroupPath(name, "/")
		}
	}
	return entry, ""
}

func setPlain(data *vault.EntryData, key, value string) {
	if value == "" {
		return
	}
	if data.CustomFields == nil {
		data.CustomFields = make(map[string]string)
	}
	data.CustomFields[key] = value
}

func setProtected(data *vault.EntryData, key, value string) {
	if value == "" {
		return
	}
	if data.ProtectedCustomFields == nil {
		data.ProtectedCustomFields = make(map[string]string)
	}
	data.ProtectedCustomFields[key] = value
}

func joinNonEmpty(a, b, sep string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + sep + b
	}
}

package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

// WeakPassword names an entry whose password rated below Good.
type WeakPassword struct {
	EntryID  string
	Title    string
	Strength PasswordStrength
}

// DuplicateGroup is a set of entries sharing the same password.
type DuplicateGroup struct {
	EntryIDs []string
	Titles   []string
	Count    int
}

// Report is the result of a vault health scan.
type Report struct {
	Entries       int
	WithPassword  int
	WeakPasswords []WeakPassword
	Duplicates    []DuplicateGroup
}

// Analyzer scans an open vault session for credential health issues.
//
// Passwords are compared through HMAC-SHA256 under a key generated per
// analyzer, so equal passwords group together without the analyzer ever
// retaining plaintext or producing hashes useful outside this process.
type Analyzer struct {
	hmacKey []byte
}

// NewAnalyzer creates an analyzer with a fresh session-local HMAC key.
func NewAnalyzer() (*Analyzer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &Analyzer{hmacKey: key}, nil
}

// Analyze scans every entry in the vault outside the recycle bin.
func (a *Analyzer) Analyze(s *vault.Session) (Report, error) {
	// SearchEntries with an empty query matches everything and already
	// excludes recycled entries.
	items, err := s.SearchEntries("")
	if err != nil {
		return Report{}, err
	}

	report := Report{Entries: len(items)}
	hashGroups := make(map[string][]vault.EntryItem)

	for _, item := range items {
		password, err := s.GetEntryPassword(item.ID)
		if err != nil {
			return Report{}, err
		}
		password = strings.TrimSpace(password)
		if password == "" {
			continue
		}
		report.WithPassword++

		if strength := EvaluatePassword(password); strength < PasswordGood {
			report.WeakPasswords = append(report.WeakPasswords, WeakPassword{
				EntryID:  item.ID,
				Title:    item.Title,
				Strength: strength,
			})
		}

		hash := a.hashValue(password)
		hashGroups[hash] = append(hashGroups[hash], item)
	}

	for _, group := range hashGroups {
		if len(group) <= 1 {
			continue
		}
		dup := DuplicateGroup{Count: len(group)}
		for _, item := range group {
			dup.EntryIDs = append(dup.EntryIDs, item.ID)
			dup.Titles = append(dup.Titles, item.Title)
		}
		report.Duplicates = append(report.Duplicates, dup)
	}

	// Largest reuse clusters first; ties break on the first entry id so the
	// order is stable across runs.
	sort.Slice(report.Duplicates, func(i, j int) bool {
		a, b := report.Duplicates[i], report.Duplicates[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.EntryIDs[0] < b.EntryIDs[0]
	})
	return report, nil
}

func (a *Analyzer) hashValue(value string) string {
	h := hmac.New(sha256.New, a.hmacKey)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

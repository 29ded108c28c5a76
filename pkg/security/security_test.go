package security

import (
	"path/filepath"
	"testing"

	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

func TestEvaluatePassword(t *testing.T) {
	cases := []struct {
		password string
		want     PasswordStrength
	}{
		{"", PasswordWeak},
		{"short", PasswordWeak},
		{"1234567", PasswordWeak},
		{"12345678", PasswordFair},
		{"thirteenchars", PasswordFair},
		{"fourteen-chars", PasswordGood},
		{"this is a long passphrase", PasswordStrong},
	}
	for _, tc := range cases {
		if got := EvaluatePassword(tc.password); got != tc.want {
			t.Errorf("EvaluatePassword(%d chars) = %v, want %v", len(tc.password), got, tc.want)
		}
	}
}

func TestEvaluateToken(t *testing.T) {
	cases := []struct {
		length int
		want   PasswordStrength
	}{
		{8, PasswordWeak},
		{16, PasswordFair},
		{20, PasswordGood},
		{32, PasswordStrong},
	}
	for _, tc := range cases {
		token := make([]byte, tc.length)
		for i := range token {
			token[i] = 'x'
		}
		if got := EvaluateToken(string(token)); got != tc.want {
			t.Errorf("EvaluateToken(%d chars) = %v, want %v", tc.length, got, tc.want)
		}
	}
}

func TestPasswordStrengthString(t *testing.T) {
	cases := map[PasswordStrength]string{
		PasswordWeak:        "Weak",
		PasswordFair:        "Fair",
		PasswordGood:        "Good",
		PasswordStrong:      "Strong",
		PasswordStrength(9): "Unknown",
	}
	for strength, want := range cases {
		if got := strength.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

// passthroughCodec is just enough of a codec to create a session for
// analysis tests; files written through it are never reopened.
type passthroughCodec struct{}

func (passthroughCodec) Encode(tree *vault.Tree, creds vault.Credentials) ([]byte, error) {
	return []byte("x"), nil
}

func (passthroughCodec) Decode(data []byte, creds vault.Credentials) (*vault.Tree, string, error) {
	return vault.NewTree("test"), "4.0", nil
}

func (passthroughCodec) Inspect(data []byte) (vault.FileInfo, error) {
	return vault.FileInfo{Valid: true, Supported: true, Version: "4.0"}, nil
}

func analysisSession(t *testing.T) *vault.Session {
	t.Helper()
	s := vault.NewSession(passthroughCodec{})
	path := filepath.Join(t.TempDir(), "health.kdbx")
	if _, err := s.Create(path, vault.Credentials{Password: "pw"}, vault.CreateOptions{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAnalyze(t *testing.T) {
	s := analysisSession(t)

	add := func(title, password string) string {
		t.Helper()
		details, err := s.CreateEntry("", vault.EntryData{Title: title, Password: password})
		if err != nil {
			t.Fatalf("CreateEntry %s: %v", title, err)
		}
		return details.ID
	}

	weakID := add("weak", "short")
	add("reused-a", "correct horse battery staple")
	add("reused-b", "correct horse battery staple")
	add("unique", "another long unique passphrase")
	add("no password", "")

	analyzer, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	report, err := analyzer.Analyze(s)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.Entries != 5 {
		t.Errorf("Entries = %d, want 5", report.Entries)
	}
	if report.WithPassword != 4 {
		t.Errorf("WithPassword = %d, want 4", report.WithPassword)
	}
	if len(report.WeakPasswords) != 1 || report.WeakPasswords[0].EntryID != weakID {
		t.Errorf("WeakPasswords = %+v, want just the weak entry", report.WeakPasswords)
	}
	if len(report.Duplicates) != 1 {
		t.Fatalf("Duplicates = %+v, want one group", report.Duplicates)
	}
	if report.Duplicates[0].Count != 2 {
		t.Errorf("duplicate Count = %d, want 2", report.Duplicates[0].Count)
	}
}

func TestAnalyzeSkipsRecycledEntries(t *testing.T) {
	s := analysisSession(t)

	doomed, err := s.CreateEntry("", vault.EntryData{Title: "doomed", Password: "short"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(doomed.ID); err != nil {
		t.Fatal(err)
	}

	analyzer, err := NewAnalyzer()
	if err != nil {
		t.Fatal(err)
	}
	report, err := analyzer.Analyze(s)
	if err != nil {
		t.Fatal(err)
	}
	if report.Entries != 0 || len(report.WeakPasswords) != 0 {
		t.Errorf("report = %+v, want recycled entry ignored", report)
	}
}

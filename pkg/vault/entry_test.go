package vault

import (
	"errors"
	"testing"
)

func str(s string) *string { return &s }

func TestCreateEntry(t *testing.T) {
	s, _ := openTestSession(t)

	details, err := s.CreateEntry("", EntryData{
		Title:    "GitHub",
		Username: "jdoe",
		Password: "hunter2",
		URL:      "https://github.com",
		Notes:    "work account",
		IconID:   1,
		Tags:     []string{"dev", "work"},
		CustomFields: map[string]string{
			"Team": "Platform",
		},
		ProtectedCustomFields: map[string]string{
			"API Token": "ghp_secret",
		},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	if details.ID == "" {
		t.Error("ID should be assigned")
	}
	if details.Title != "GitHub" || details.Username != "jdoe" {
		t.Errorf("scalars = %q/%q", details.Title, details.Username)
	}
	if !details.HasPassword {
		t.Error("HasPassword should be true")
	}
	if details.CustomFields["Team"] != "Platform" {
		t.Errorf("CustomFields = %v", details.CustomFields)
	}
	if _, ok := details.CustomFields["API Token"]; ok {
		t.Error("protected value must not appear in CustomFields")
	}

	var foundProtected bool
	for _, f := range details.Fields {
		if f.Key == "API Token" && f.Protected {
			foundProtected = true
		}
	}
	if !foundProtected {
		t.Errorf("Fields = %v, want protected API Token metadata", details.Fields)
	}
	if details.Created.IsZero() || details.Modified.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestCreateEntryInGroup(t *testing.T) {
	s, _ := openTestSession(t)

	g, err := s.CreateGroup("", GroupData{Name: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	details, err := s.CreateEntry(g.ID, EntryData{Title: "Jira"})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if details.GroupID != g.ID {
		t.Errorf("GroupID = %q, want %q", details.GroupID, g.ID)
	}

	items, err := s.ListEntries(g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title != "Jira" {
		t.Errorf("ListEntries = %v", items)
	}
}

func TestCreateEntryUnknownGroup(t *testing.T) {
	s, _ := openTestSession(t)

	if _, err := s.CreateEntry("no-such-group", EntryData{Title: "x"}); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("CreateEntry = %v, want ErrGroupNotFound", err)
	}
}

func TestCreateEntryReservedCustomField(t *testing.T) {
	s, _ := openTestSession(t)

	for _, key := range []string{FieldTitle, FieldUserName, FieldPassword, FieldURL, FieldNotes, FieldOTP} {
		_, err := s.CreateEntry("", EntryData{
			Title:        "x",
			CustomFields: map[string]string{key: "v"},
		})
		if !errors.Is(err, ErrReservedField) {
			t.Errorf("custom field %q = %v, want ErrReservedField", key, err)
		}
	}
}

func TestGetEntry(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateEntry("", EntryData{Title: "Mail", Username: "jdoe", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	details, err := s.GetEntry(created.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if details.Title != "Mail" || details.Username != "jdoe" || !details.HasPassword {
		t.Errorf("details = %+v", details)
	}

	if _, err := s.GetEntry("missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("GetEntry missing = %v, want ErrEntryNotFound", err)
	}
}

func TestGetEntryPassword(t *testing.T) {
	s, _ := openTestSession(t)

	withPw, err := s.CreateEntry("", EntryData{Title: "a", Password: "hunter2"})
	if err != nil {
		t.Fatal(err)
	}
	withoutPw, err := s.CreateEntry("", EntryData{Title: "b"})
	if err != nil {
		t.Fatal(err)
	}

	if pw, err := s.GetEntryPassword(withPw.ID); err != nil || pw != "hunter2" {
		t.Errorf("GetEntryPassword = %q, %v", pw, err)
	}
	if pw, err := s.GetEntryPassword(withoutPw.ID); err != nil || pw != "" {
		t.Errorf("passwordless entry = %q, %v, want empty and nil", pw, err)
	}
	if _, err := s.GetEntryPassword("missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("missing entry = %v, want ErrEntryNotFound", err)
	}
}

func TestGetProtectedCustomField(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateEntry("", EntryData{
		Title:                 "x",
		CustomFields:          map[string]string{"Plain": "visible"},
		ProtectedCustomFields: map[string]string{"Secret": "hidden"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if v, err := s.GetProtectedCustomField(created.ID, "Secret"); err != nil || v != "hidden" {
		t.Errorf("GetProtectedCustomField = %q, %v", v, err)
	}
	if _, err := s.GetProtectedCustomField(created.ID, "Plain"); !errors.Is(err, ErrFieldNotProtected) {
		t.Errorf("unprotected field = %v, want ErrFieldNotProtected", err)
	}
	if _, err := s.GetProtectedCustomField(created.ID, "Nope"); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("absent field = %v, want ErrFieldNotFound", err)
	}
	// Reserved names are not custom fields, even when asked for directly.
	if _, err := s.GetProtectedCustomField(created.ID, FieldPassword); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("reserved field = %v, want ErrFieldNotFound", err)
	}
}

func TestUpdateEntryScalars(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateEntry("", EntryData{Title: "Old", Username: "a", Notes: "keep me"})
	if err != nil {
		t.Fatal(err)
	}

	details, err := s.UpdateEntry(created.ID, EntryPatch{
		Title:    str("New"),
		Username: str("b"),
		Tags:     []string{"t1"},
	})
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if details.Title != "New" || details.Username != "b" {
		t.Errorf("updated = %q/%q", details.Title, details.Username)
	}
	if details.Notes != "keep me" {
		t.Errorf("untouched field changed: Notes = %q", details.Notes)
	}
	if len(details.Tags) != 1 || details.Tags[0] != "t1" {
		t.Errorf("Tags = %v", details.Tags)
	}
}

func TestUpdateEntryPassword(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateEntry("", EntryData{Title: "x", Password: "old"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.UpdateEntry(created.ID, EntryPatch{Password: str("new")}); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if pw, _ := s.GetEntryPassword(created.ID); pw != "new" {
		t.Errorf("password = %q, want %q", pw, "new")
	}
}

func TestUpdateEntryReplacesCustomFields(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateEntry("", EntryData{
		Title:                 "x",
		CustomFields:          map[string]string{"A": "1", "B": "2"},
		ProtectedCustomFields: map[string]string{"S": "sec"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Supplying one map replaces the whole set.
	details, err := s.UpdateEntry(created.ID, EntryPatch{
		CustomFields: map[string]string{"C": "3"},
	})
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if len(details.Fields) != 1 || details.Fields[0].Key != "C" {
		t.Errorf("Fields = %v, want only C", details.Fields)
	}
	if _, err := s.GetProtectedCustomField(created.ID, "S"); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("replaced protected field = %v, want ErrFieldNotFound", err)
	}

	// An empty non-nil map clears everything.
	details, err = s.UpdateEntry(created.ID, EntryPatch{CustomFields: map[string]string{}})
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if len(details.Fields) != 0 {
		t.Errorf("Fields = %v, want none", details.Fields)
	}

	// Nil maps leave custom fields alone.
	if _, err := s.UpdateEntry(created.ID, EntryPatch{CustomFields: map[string]string{"D": "4"}}); err != nil {
		t.Fatal(err)
	}
	details, err = s.UpdateEntry(created.ID, EntryPatch{Title: str("renamed")})
	if err != nil {
		t.Fatal(err)
	}
	if len(details.Fields) != 1 || details.Fields[0].Key != "D" {
		t.Errorf("Fields = %v, want D untouched", details.Fields)
	}
}

func TestUpdateEntryReservedKeyLeavesEntryUntouched(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateEntry("", EntryData{
		Title:        "x",
		CustomFields: map[string]string{"Keep": "me"},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.UpdateEntry(created.ID, EntryPatch{
		ProtectedCustomFields: map[string]string{FieldPassword: "sneaky"},
	})
	if !errors.Is(err, ErrReservedField) {
		t.Fatalf("UpdateEntry = %v, want ErrReservedField", err)
	}

	details, err := s.GetEntry(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if details.CustomFields["Keep"] != "me" {
		t.Errorf("rejected patch clobbered fields: %v", details.CustomFields)
	}
}

func TestDeleteEntryMovesToRecycleBin(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateEntry("", EntryData{Title: "doomed", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(created.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	// The entry still exists, relocated under the bin, secrets intact.
	details, err := s.GetEntry(created.ID)
	if err != nil {
		t.Fatalf("GetEntry after delete: %v", err)
	}
	if details.GroupID == created.GroupID {
		t.Error("entry should have moved out of its group")
	}
	if pw, _ := s.GetEntryPassword(created.ID); pw != "pw" {
		t.Errorf("password after recycle = %q", pw)
	}

	if err := s.DeleteEntry("missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("DeleteEntry missing = %v, want ErrEntryNotFound", err)
	}
}

func TestMoveEntry(t *testing.T) {
	s, _ := openTestSession(t)

	g, err := s.CreateGroup("", GroupData{Name: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	created, err := s.CreateEntry("", EntryData{Title: "x"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MoveEntry(created.ID, g.ID); err != nil {
		t.Fatalf("MoveEntry: %v", err)
	}
	details, err := s.GetEntry(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if details.GroupID != g.ID {
		t.Errorf("GroupID = %q, want %q", details.GroupID, g.ID)
	}

	// A bad target leaves the entry where it was.
	if err := s.MoveEntry(created.ID, "no-such-group"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("MoveEntry = %v, want ErrGroupNotFound", err)
	}
	details, _ = s.GetEntry(created.ID)
	if details.GroupID != g.ID {
		t.Error("failed move should not relocate the entry")
	}
}

func TestListEntries(t *testing.T) {
	s, _ := openTestSession(t)

	g, err := s.CreateGroup("", GroupData{Name: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEntry("", EntryData{Title: "root entry"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEntry(g.ID, EntryData{Title: "work entry"}); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListEntries("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all entries = %d, want 2", len(all))
	}

	scoped, err := s.ListEntries(g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].Title != "work entry" {
		t.Errorf("scoped = %v", scoped)
	}

	if _, err := s.ListEntries("missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("ListEntries missing group = %v, want ErrGroupNotFound", err)
	}
}

func TestSearchEntries(t *testing.T) {
	s, _ := openTestSession(t)

	if _, err := s.CreateEntry("", EntryData{Title: "GitHub", Username: "jdoe"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEntry("", EntryData{Title: "Bank", Notes: "checking account"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEntry("", EntryData{Title: "Misc", Tags: []string{"finance"}}); err != nil {
		t.Fatal(err)
	}
	recycled, err := s.CreateEntry("", EntryData{Title: "GitLab"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(recycled.ID); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		query string
		want  int
	}{
		{"github", 1},
		{"GITHUB", 1},
		{"account", 1},
		{"finance", 1},
		{"gitlab", 0},
		{"nowhere", 0},
	}
	for _, tc := range cases {
		items, err := s.SearchEntries(tc.query)
		if err != nil {
			t.Fatalf("SearchEntries(%q): %v", tc.query, err)
		}
		if len(items) != tc.want {
			t.Errorf("SearchEntries(%q) = %d results, want %d", tc.query, len(items), tc.want)
		}
	}
}

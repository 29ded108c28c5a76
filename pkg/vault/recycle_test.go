package vault

import (
	"errors"
	"testing"
	"time"
)

func TestEnsureRecycleBin(t *testing.T) {
	tree := NewTree("Test")

	bin := tree.EnsureRecycleBin()
	if bin == nil {
		t.Fatal("EnsureRecycleBin returned nil")
	}
	if bin.Name != RecycleBinName {
		t.Errorf("Name = %q, want %q", bin.Name, RecycleBinName)
	}
	if bin.ParentID != tree.Root().ID {
		t.Errorf("bin should live directly under root")
	}
	if !tree.RecycleBinEnabled {
		t.Error("RecycleBinEnabled should be set")
	}
	if tree.RecycleBinChanged.IsZero() {
		t.Error("RecycleBinChanged should be set")
	}

	// Idempotent: asking again returns the same group.
	again := tree.EnsureRecycleBin()
	if again != bin {
		t.Errorf("second EnsureRecycleBin = %v, want same group", again.ID)
	}
	if tree.GroupCount() != 2 {
		t.Errorf("GroupCount = %d, want root and one bin", tree.GroupCount())
	}
}

func TestEnsureRecycleBinAdoptsExistingGroup(t *testing.T) {
	tree := NewTree("Test")

	existing := &Group{Name: RecycleBinName}
	if err := tree.AddGroup(tree.Root().ID, existing); err != nil {
		t.Fatal(err)
	}

	bin := tree.EnsureRecycleBin()
	if bin != existing {
		t.Errorf("EnsureRecycleBin should adopt the existing %q group", RecycleBinName)
	}
}

func TestSetRecycleBinUnresolvableID(t *testing.T) {
	tree := NewTree("Test")

	tree.SetRecycleBin("no-such-group", true, time.Now())
	if tree.RecycleBinID() != "" {
		t.Errorf("RecycleBinID = %q, want empty for unresolvable id", tree.RecycleBinID())
	}

	// A later EnsureRecycleBin establishes a fresh bin.
	if bin := tree.EnsureRecycleBin(); bin == nil || bin.Name != RecycleBinName {
		t.Error("EnsureRecycleBin should recover from a dangling bin id")
	}
}

func TestDeleteRecycleBinIsPermanent(t *testing.T) {
	s, _ := openTestSession(t)

	entry, err := s.CreateEntry("", EntryData{Title: "doomed"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(entry.ID); err != nil {
		t.Fatal(err)
	}

	binID := binGroupID(t, s)
	if err := s.DeleteGroup(binID, DeleteGroupOptions{Recursive: true}); err != nil {
		t.Fatalf("DeleteGroup bin: %v", err)
	}
	if _, err := s.GetGroup(binID); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("bin after delete = %v, want ErrGroupNotFound", err)
	}
	if _, err := s.GetEntry(entry.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("recycled entry after bin delete = %v, want ErrEntryNotFound", err)
	}

	// The next soft delete establishes a fresh bin.
	entry2, err := s.CreateEntry("", EntryData{Title: "next"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(entry2.ID); err != nil {
		t.Fatalf("DeleteEntry after bin removal: %v", err)
	}
	if _, err := s.GetEntry(entry2.ID); err != nil {
		t.Errorf("entry should survive in the new bin: %v", err)
	}
}

func TestDeleteGroupContainingBinIsPermanent(t *testing.T) {
	s, _ := openTestSession(t)

	parent, err := s.CreateGroup("", GroupData{Name: "Archive"})
	if err != nil {
		t.Fatal(err)
	}
	entry, err := s.CreateEntry("", EntryData{Title: "doomed"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntry(entry.ID); err != nil {
		t.Fatal(err)
	}

	// Tuck the bin under another group, then delete that group without
	// Permanent. The subtree holds the bin, so the delete is structural.
	binID := binGroupID(t, s)
	if err := s.MoveGroup(binID, parent.ID); err != nil {
		t.Fatalf("MoveGroup bin: %v", err)
	}
	if err := s.DeleteGroup(parent.ID, DeleteGroupOptions{Recursive: true}); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, err := s.GetGroup(parent.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("parent after delete = %v, want ErrGroupNotFound", err)
	}
	if _, err := s.GetGroup(binID); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("bin after delete = %v, want ErrGroupNotFound", err)
	}
}

func TestRecycleBinSurvivesSearchExclusion(t *testing.T) {
	s, _ := openTestSession(t)

	entry, err := s.CreateEntry("", EntryData{Title: "findable"})
	if err != nil {
		t.Fatal(err)
	}
	items, err := s.SearchEntries("findable")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("before delete = %d results, want 1", len(items))
	}

	if err := s.DeleteEntry(entry.ID); err != nil {
		t.Fatal(err)
	}
	items, err = s.SearchEntries("findable")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("after delete = %d results, want 0", len(items))
	}

	// Listing by the bin's id still reaches it.
	scoped, err := s.ListEntries(binGroupID(t, s))
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].ID != entry.ID {
		t.Errorf("bin listing = %v", scoped)
	}
}

// binGroupID finds the recycle bin through the public group listing.
func binGroupID(t *testing.T, s *Session) string {
	t.Helper()
	root, err := s.ListGroups()
	if err != nil {
		t.Fatal(err)
	}
	for _, child := range root.Children {
		if child.Name == RecycleBinName {
			return child.ID
		}
	}
	t.Fatal("recycle bin not found")
	return ""
}

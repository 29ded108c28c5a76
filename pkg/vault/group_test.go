package vault

import (
	"errors"
	"testing"
)

func TestCreateGroup(t *testing.T) {
	s, _ := openTestSession(t)

	info, err := s.CreateGroup("", GroupData{Name: "Work", Notes: "job stuff", IconID: 5})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if info.ID == "" {
		t.Error("ID should be assigned")
	}
	if info.Name != "Work" || info.Notes != "job stuff" || info.IconID != 5 {
		t.Errorf("info = %+v", info)
	}

	root, err := s.ListGroups()
	if err != nil {
		t.Fatal(err)
	}
	if info.ParentID != root.ID {
		t.Errorf("ParentID = %q, want root %q", info.ParentID, root.ID)
	}
	if len(root.Children) != 1 || root.Children[0].ID != info.ID {
		t.Errorf("root children = %v", root.Children)
	}

	nested, err := s.CreateGroup(info.ID, GroupData{Name: "Projects"})
	if err != nil {
		t.Fatalf("CreateGroup nested: %v", err)
	}
	if nested.ParentID != info.ID {
		t.Errorf("nested ParentID = %q, want %q", nested.ParentID, info.ID)
	}

	if _, err := s.CreateGroup("missing", GroupData{Name: "x"}); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("CreateGroup under missing parent = %v, want ErrGroupNotFound", err)
	}
}

func TestGetGroup(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateGroup("", GroupData{Name: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEntry(created.ID, EntryData{Title: "x"}); err != nil {
		t.Fatal(err)
	}

	info, err := s.GetGroup(created.ID)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if info.Entries != 1 {
		t.Errorf("Entries = %d, want 1", info.Entries)
	}

	if _, err := s.GetGroup("missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("GetGroup missing = %v, want ErrGroupNotFound", err)
	}
}

func TestUpdateGroup(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateGroup("", GroupData{Name: "Old", Notes: "keep"})
	if err != nil {
		t.Fatal(err)
	}

	name := "New"
	info, err := s.UpdateGroup(created.ID, GroupPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	if info.Name != "New" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Notes != "keep" {
		t.Errorf("untouched Notes = %q", info.Notes)
	}
}

func TestDeleteGroupSoft(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateGroup("", GroupData{Name: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	entry, err := s.CreateEntry(created.ID, EntryData{Title: "x", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteGroup(created.ID, DeleteGroupOptions{Recursive: true}); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	// The group and its entry survive under the recycle bin.
	info, err := s.GetGroup(created.ID)
	if err != nil {
		t.Fatalf("GetGroup after soft delete: %v", err)
	}
	if info.Entries != 1 {
		t.Errorf("Entries = %d, want 1", info.Entries)
	}
	if pw, _ := s.GetEntryPassword(entry.ID); pw != "pw" {
		t.Errorf("password after recycle = %q", pw)
	}
}

func TestDeleteGroupPermanent(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateGroup("", GroupData{Name: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	entry, err := s.CreateEntry(created.ID, EntryData{Title: "x"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteGroup(created.ID, DeleteGroupOptions{Recursive: true, Permanent: true}); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, err := s.GetGroup(created.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("GetGroup = %v, want ErrGroupNotFound", err)
	}
	if _, err := s.GetEntry(entry.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("GetEntry = %v, want ErrEntryNotFound", err)
	}
}

func TestDeleteGroupNotEmpty(t *testing.T) {
	s, _ := openTestSession(t)

	created, err := s.CreateGroup("", GroupData{Name: "Work"})
	if err != nil {
		t.Fatal(err)
	}

	// One nested group two levels down still counts as non-empty.
	nested, err := s.CreateGroup(created.ID, GroupData{Name: "Inner"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEntry(nested.ID, EntryData{Title: "deep"}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteGroup(created.ID, DeleteGroupOptions{}); !errors.Is(err, ErrGroupNotEmpty) {
		t.Errorf("DeleteGroup = %v, want ErrGroupNotEmpty", err)
	}

	// An empty group deletes without Recursive.
	empty, err := s.CreateGroup("", GroupData{Name: "Empty"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteGroup(empty.ID, DeleteGroupOptions{}); err != nil {
		t.Errorf("DeleteGroup empty = %v", err)
	}
}

func TestDeleteGroupRoot(t *testing.T) {
	s, _ := openTestSession(t)

	root, err := s.ListGroups()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteGroup(root.ID, DeleteGroupOptions{Recursive: true, Permanent: true}); !errors.Is(err, ErrCannotDeleteRoot) {
		t.Errorf("DeleteGroup root = %v, want ErrCannotDeleteRoot", err)
	}
}

func TestMoveGroup(t *testing.T) {
	s, _ := openTestSession(t)

	a, err := s.CreateGroup("", GroupData{Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.CreateGroup("", GroupData{Name: "B"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MoveGroup(b.ID, a.ID); err != nil {
		t.Fatalf("MoveGroup: %v", err)
	}
	moved, err := s.GetGroup(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if moved.ParentID != a.ID {
		t.Errorf("ParentID = %q, want %q", moved.ParentID, a.ID)
	}

	// Moving back to the root via the empty id.
	if err := s.MoveGroup(b.ID, ""); err != nil {
		t.Fatalf("MoveGroup to root: %v", err)
	}
	root, _ := s.ListGroups()
	moved, _ = s.GetGroup(b.ID)
	if moved.ParentID != root.ID {
		t.Errorf("ParentID = %q, want root", moved.ParentID)
	}
}

func TestMoveGroupCircular(t *testing.T) {
	s, _ := openTestSession(t)

	a, err := s.CreateGroup("", GroupData{Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.CreateGroup(a.ID, GroupData{Name: "B"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.CreateGroup(b.ID, GroupData{Name: "C"})
	if err != nil {
		t.Fatal(err)
	}

	// Into itself, into a child, and into a deeper descendant.
	for _, target := range []string{a.ID, b.ID, c.ID} {
		if err := s.MoveGroup(a.ID, target); !errors.Is(err, ErrCircularMove) {
			t.Errorf("MoveGroup a -> %s = %v, want ErrCircularMove", target, err)
		}
	}

	// The structure is untouched after the rejected moves.
	got, err := s.GetGroup(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	root, _ := s.ListGroups()
	if got.ParentID != root.ID {
		t.Errorf("ParentID = %q, want root after rejected moves", got.ParentID)
	}
}

func TestMoveGroupRoot(t *testing.T) {
	s, _ := openTestSession(t)

	a, err := s.CreateGroup("", GroupData{Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	root, _ := s.ListGroups()
	if err := s.MoveGroup(root.ID, a.ID); !errors.Is(err, ErrCannotMoveRoot) {
		t.Errorf("MoveGroup root = %v, want ErrCannotMoveRoot", err)
	}
}

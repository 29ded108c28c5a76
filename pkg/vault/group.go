package vault

import (
	"fmt"
	"time"
)

// ListGroups returns the full group hierarchy rooted at the vault's root
// group.
func (s *Session) ListGroups() (GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return GroupInfo{}, ErrNotOpen
	}
	return groupInfo(s.tree.Root()), nil
}

// GetGroup returns one group's projection including its subtree.
func (s *Session) GetGroup(id string) (GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return GroupInfo{}, ErrNotOpen
	}

	g := s.tree.Group(id)
	if g == nil {
		return GroupInfo{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return groupInfo(g), nil
}

// CreateGroup adds a new group under the given parent. An empty parent id
// targets the root group.
func (s *Session) CreateGroup(parentID string, data GroupData) (GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return GroupInfo{}, ErrNotOpen
	}

	parent, err := s.resolveGroup(parentID)
	if err != nil {
		return GroupInfo{}, err
	}

	now := time.Now().UTC()
	g := &Group{
		Name:     data.Name,
		Notes:    data.Notes,
		IconID:   data.IconID,
		Created:  now,
		Modified: now,
	}
	if err := s.tree.AddGroup(parent.ID, g); err != nil {
		return GroupInfo{}, err
	}
	s.modified = true
	return groupInfo(g), nil
}

// UpdateGroup applies a partial update to a group's own fields. Structure
// is untouched; use MoveGroup to relocate.
func (s *Session) UpdateGroup(id string, patch GroupPatch) (GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return GroupInfo{}, ErrNotOpen
	}

	g := s.tree.Group(id)
	if g == nil {
		return GroupInfo{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}

	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.Notes != nil {
		g.Notes = *patch.Notes
	}
	if patch.IconID != nil {
		g.IconID = *patch.IconID
	}

	g.Modified = time.Now().UTC()
	s.modified = true
	return groupInfo(g), nil
}

// DeleteGroup removes a group. Without Permanent the group moves to the
// recycle bin; with Permanent the subtree is removed outright and all
// secrets in it are wiped. A non-empty group requires Recursive.
//
// Deleting the recycle bin itself, or a group the bin sits under, is always
// structural: the bin cannot be recycled into itself.
func (s *Session) DeleteGroup(id string, opts DeleteGroupOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return ErrNotOpen
	}

	g := s.tree.Group(id)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	if g == s.tree.Root() {
		return ErrCannotDeleteRoot
	}
	if !g.IsEmpty() && !opts.Recursive {
		return fmt.Errorf("%w: %s", ErrGroupNotEmpty, id)
	}

	permanent := opts.Permanent
	if !permanent {
		binID := s.tree.RecycleBinID()
		if binID != "" && s.tree.IsAncestor(id, binID) {
			permanent = true
		}
	}

	s.tree.detachGroup(g)
	if permanent {
		s.tree.removeGroupSubtree(g)
	} else {
		bin := s.tree.EnsureRecycleBin()
		s.tree.attachGroup(bin, g)
		now := time.Now().UTC()
		g.Modified = now
		g.LocationChanged = now
	}
	s.modified = true
	return nil
}

// MoveGroup relocates a group under a new parent. An empty target id means
// the root group. Moving a group into itself or any of its descendants is
// a circular move and is rejected at any depth.
func (s *Session) MoveGroup(id, targetParentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return ErrNotOpen
	}

	g := s.tree.Group(id)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	if g == s.tree.Root() {
		return ErrCannotMoveRoot
	}
	target, err := s.resolveGroup(targetParentID)
	if err != nil {
		return err
	}
	if s.tree.IsAncestor(id, target.ID) {
		return fmt.Errorf("%w: %s into %s", ErrCircularMove, id, target.ID)
	}

	s.tree.detachGroup(g)
	s.tree.attachGroup(target, g)

	now := time.Now().UTC()
	g.Modified = now
	g.LocationChanged = now
	s.modified = true
	return nil
}

// groupInfo builds the recursive projection of a group.
func groupInfo(g *Group) GroupInfo {
	info := GroupInfo{
		ID:       g.ID,
		ParentID: g.ParentID,
		Name:     g.Name,
		Notes:    g.Notes,
		IconID:   g.IconID,
	}
	for _, child := range g.Children() {
		switch n := child.(type) {
		case *Entry:
			info.Entries++
		case *Group:
			info.Children = append(info.Children, groupInfo(n))
		}
	}
	return info
}

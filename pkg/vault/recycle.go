package vault

import "time"

// RecycleBin returns the current recycle-bin group, or nil if none has been
// established yet.
func (t *Tree) RecycleBin() *Group {
	if t.recycleBinID == "" {
		return nil
	}
	return t.groups[t.recycleBinID]
}

// RecycleBinID returns the remembered recycle-bin group id, empty if none.
func (t *Tree) RecycleBinID() string { return t.recycleBinID }

// SetRecycleBin records recycle-bin state decoded from a vault file. A
// remembered id that does not resolve to a group is dropped so the next
// soft delete re-establishes the bin.
func (t *Tree) SetRecycleBin(id string, enabled bool, changed time.Time) {
	if id != "" && t.groups[id] == nil {
		id = ""
	}
	t.recycleBinID = id
	t.RecycleBinEnabled = enabled
	t.RecycleBinChanged = changed
}

// EnsureRecycleBin returns the recycle-bin group, establishing one if
// needed. Resolution order: the remembered id, then any existing group
// named "Recycle Bin" (first match in depth-first order), then a new group
// created under root.
//
// The enabled flag and change timestamp are refreshed on every call, even
// when an existing bin is reused.
func (t *Tree) EnsureRecycleBin() *Group {
	defer func() {
		t.RecycleBinEnabled = true
		t.RecycleBinChanged = time.Now().UTC()
	}()

	if bin := t.RecycleBin(); bin != nil {
		return bin
	}

	if bin := t.findGroupByName(t.root, RecycleBinName); bin != nil {
		t.recycleBinID = bin.ID
		return bin
	}

	now := time.Now().UTC()
	bin := &Group{
		Name:     RecycleBinName,
		IconID:   recycleBinIcon,
		Created:  now,
		Modified: now,
	}
	// AddGroup against the root cannot fail: the parent always resolves and
	// the id is freshly assigned.
	_ = t.AddGroup(t.root.ID, bin)
	t.recycleBinID = bin.ID
	return bin
}

// findGroupByName walks the subtree under g in child order and returns the
// first group with the given name.
func (t *Tree) findGroupByName(g *Group, name string) *Group {
	if g.Name == name && g != t.root {
		return g
	}
	for _, child := range g.children {
		if sub, ok := child.(*Group); ok {
			if found := t.findGroupByName(sub, name); found != nil {
				return found
			}
		}
	}
	return nil
}

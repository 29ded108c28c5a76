package vault

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mithrilvault/mithrilctl/pkg/secure"
)

// RecycleBinName is the well-known display name of the soft-delete group.
const RecycleBinName = "Recycle Bin"

// recycleBinIcon is the standard trash-can icon index.
const recycleBinIcon = 43

// Node is a member of a group's ordered child list, either *Group or *Entry.
// Groups and entries are interleaved in insertion order and that order is
// preserved across serialization round-trips.
type Node interface {
	NodeID() string
}

// Group is a named container of child groups and entries.
type Group struct {
	ID       string
	ParentID string // empty for the root group
	Name     string
	Notes    string
	IconID   int

	Created         time.Time
	Modified        time.Time
	LocationChanged time.Time

	children []Node
}

// NodeID implements Node.
func (g *Group) NodeID() string { return g.ID }

// Children returns the ordered child list. Callers must treat it as
// read-only; all structural changes go through the Tree.
func (g *Group) Children() []Node { return g.children }

// IsEmpty reports whether the group has no child groups or entries.
func (g *Group) IsEmpty() bool { return len(g.children) == 0 }

// Entry is a single credential record.
type Entry struct {
	ID       string
	GroupID  string
	Title    string
	Username string
	URL      string
	Notes    string
	IconID   int
	Tags     []string

	Created         time.Time
	Modified        time.Time
	Accessed        time.Time
	LocationChanged time.Time

	password *secure.Blob
	otp      *secure.Blob
	custom   map[string]Value
}

// NodeID implements Node.
func (e *Entry) NodeID() string { return e.ID }

// SetPassword replaces the entry's password, storing it encrypted in memory.
// An empty password clears the field.
func (e *Entry) SetPassword(pw string) error {
	if pw == "" {
		e.password.Destroy()
		e.password = nil
		return nil
	}
	blob, err := secure.NewBlobString(pw)
	if err != nil {
		return err
	}
	e.password.Destroy()
	e.password = blob
	return nil
}

// HasPassword reports whether the entry carries a non-empty password.
func (e *Entry) HasPassword() bool { return e.password != nil }

// Password decrypts and returns the password. An entry without a password
// yields an empty string, not an error.
func (e *Entry) Password() (string, error) {
	if e.password == nil {
		return "", nil
	}
	return e.password.RevealString()
}

// SetOTP replaces the entry's one-time-password seed. Like the password it
// is a reserved field held encrypted in memory; it round-trips through
// serialization but has no dedicated retrieval operation.
func (e *Entry) SetOTP(value string) error {
	if value == "" {
		e.otp.Destroy()
		e.otp = nil
		return nil
	}
	blob, err := secure.NewBlobString(value)
	if err != nil {
		return err
	}
	e.otp.Destroy()
	e.otp = blob
	return nil
}

// OTP decrypts and returns the one-time-password seed, empty if unset.
func (e *Entry) OTP() (string, error) {
	if e.otp == nil {
		return "", nil
	}
	return e.otp.RevealString()
}

// SetCustomField stores a custom field value. Keys naming standard fields
// are rejected so the custom map can never shadow a scalar column.
func (e *Entry) SetCustomField(key, value string, protected bool) error {
	if IsReservedField(key) {
		return fmt.Errorf("%w: %s", ErrReservedField, key)
	}
	v := PlainValue(value)
	if protected {
		var err error
		if v, err = ProtectedValue(value); err != nil {
			return err
		}
	}
	if e.custom == nil {
		e.custom = make(map[string]Value)
	}
	if old, ok := e.custom[key]; ok {
		old.destroy()
	}
	e.custom[key] = v
	return nil
}

// CustomField returns a custom field value by key.
func (e *Entry) CustomField(key string) (Value, bool) {
	v, ok := e.custom[key]
	return v, ok
}

// CustomFieldKeys returns all custom field keys in sorted order, so
// projections are deterministic regardless of map iteration.
func (e *Entry) CustomFieldKeys() []string {
	keys := make([]string, 0, len(e.custom))
	for k := range e.custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClearCustomFields drops every custom field, wiping protected values.
func (e *Entry) ClearCustomFields() {
	for _, v := range e.custom {
		v.destroy()
	}
	e.custom = nil
}

// destroySecrets wipes all protected material held by the entry.
func (e *Entry) destroySecrets() {
	e.password.Destroy()
	e.password = nil
	e.otp.Destroy()
	e.otp = nil
	e.ClearCustomFields()
}

// KDFConfig carries key-derivation parameters through open and save. The
// codec interprets them; the tree only transports them.
type KDFConfig struct {
	MemoryKiB   uint64
	Iterations  uint64
	Parallelism uint32
}

// DefaultKDFConfig returns the Argon2id parameters used for new vaults,
// following OWASP recommendations.
func DefaultKDFConfig() KDFConfig {
	return KDFConfig{MemoryKiB: 64 * 1024, Iterations: 3, Parallelism: 4}
}

// Tree is the in-memory form of a decrypted vault.
//
// Nodes are arena-indexed: every group and entry is reachable through an id
// map, and each node carries its parent id as a back-reference. Structural
// operations are a map lookup plus a splice of the parent's ordered child
// list; nothing traverses recursively to find a node.
type Tree struct {
	Name        string
	Description string
	Generator   string

	RecycleBinEnabled bool
	RecycleBinChanged time.Time

	KDF KDFConfig

	root         *Group
	groups       map[string]*Group
	entries      map[string]*Entry
	recycleBinID string
}

// NewTree creates a tree with a single root group carrying the vault name.
func NewTree(name string) *Tree {
	now := time.Now().UTC()
	root := &Group{
		ID:       NewID(),
		Name:     name,
		Created:  now,
		Modified: now,
	}
	t := &Tree{
		Name:    name,
		KDF:     DefaultKDFConfig(),
		root:    root,
		groups:  map[string]*Group{root.ID: root},
		entries: map[string]*Entry{},
	}
	return t
}

// RestoreTree builds a tree around a decoded root group. Only the root is
// indexed; the codec attaches the rest of the hierarchy through AddGroup
// and AddEntry so every node lands in the arena.
func RestoreTree(name string, root *Group) *Tree {
	if root.ID == "" {
		root.ID = NewID()
	}
	root.ParentID = ""
	return &Tree{
		Name:    name,
		KDF:     DefaultKDFConfig(),
		root:    root,
		groups:  map[string]*Group{root.ID: root},
		entries: map[string]*Entry{},
	}
}

// NewID returns a fresh node identifier.
func NewID() string {
	return uuid.NewString()
}

// Root returns the root group.
func (t *Tree) Root() *Group { return t.root }

// Group looks up a group by id. Returns nil if absent.
func (t *Tree) Group(id string) *Group { return t.groups[id] }

// Entry looks up an entry by id. Returns nil if absent.
func (t *Tree) Entry(id string) *Entry { return t.entries[id] }

// GroupCount returns the number of groups including the root.
func (t *Tree) GroupCount() int { return len(t.groups) }

// EntryCount returns the number of entries including recycled ones.
func (t *Tree) EntryCount() int { return len(t.entries) }

// AddGroup indexes g and appends it to the parent's child list. The id is
// assigned if empty. Used both by the codec while loading and by the
// mutation engine for new groups.
func (t *Tree) AddGroup(parentID string, g *Group) error {
	parent := t.groups[parentID]
	if parent == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, parentID)
	}
	if g.ID == "" {
		g.ID = NewID()
	}
	if t.groups[g.ID] != nil || t.entries[g.ID] != nil {
		return fmt.Errorf("vault: duplicate node id %s", g.ID)
	}
	g.ParentID = parent.ID
	t.groups[g.ID] = g
	parent.children = append(parent.children, g)
	return nil
}

// AddEntry indexes e and appends it to the group's child list.
func (t *Tree) AddEntry(groupID string, e *Entry) error {
	group := t.groups[groupID]
	if group == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	if t.groups[e.ID] != nil || t.entries[e.ID] != nil {
		return fmt.Errorf("vault: duplicate node id %s", e.ID)
	}
	e.GroupID = group.ID
	t.entries[e.ID] = e
	group.children = append(group.children, e)
	return nil
}

// IsAncestor reports whether ancestorID lies on the parent chain of id,
// or equals it. Walking parent back-references makes the circular-move
// check a bounded loop instead of a subtree search.
func (t *Tree) IsAncestor(ancestorID, id string) bool {
	for cur := id; cur != ""; {
		if cur == ancestorID {
			return true
		}
		g := t.groups[cur]
		if g == nil {
			return false
		}
		cur = g.ParentID
	}
	return false
}

// InRecycleBin reports whether the group with the given id is the recycle
// bin or lies beneath it.
func (t *Tree) InRecycleBin(groupID string) bool {
	if t.recycleBinID == "" {
		return false
	}
	return t.IsAncestor(t.recycleBinID, groupID)
}

// WalkEntries visits every entry in depth-first child order starting at the
// root, giving deterministic iteration independent of map order.
func (t *Tree) WalkEntries(visit func(e *Entry)) {
	t.walkGroup(t.root, visit)
}

func (t *Tree) walkGroup(g *Group, visit func(e *Entry)) {
	for _, child := range g.children {
		switch n := child.(type) {
		case *Entry:
			visit(n)
		case *Group:
			t.walkGroup(n, visit)
		}
	}
}

// Destroy wipes every secret held in the tree. The tree is unusable
// afterwards.
func (t *Tree) Destroy() {
	for _, e := range t.entries {
		e.destroySecrets()
	}
}

// detachEntry splices an entry out of its parent's child list. The entry
// stays indexed; callers either reattach or remove it.
func (t *Tree) detachEntry(e *Entry) {
	if parent := t.groups[e.GroupID]; parent != nil {
		parent.children = spliceChild(parent.children, e.ID)
	}
}

// attachEntry appends an entry to a group's child list and updates the
// back-reference.
func (t *Tree) attachEntry(group *Group, e *Entry) {
	e.GroupID = group.ID
	group.children = append(group.children, e)
}

// detachGroup splices a group out of its parent's child list. The subtree
// stays indexed.
func (t *Tree) detachGroup(g *Group) {
	if parent := t.groups[g.ParentID]; parent != nil {
		parent.children = spliceChild(parent.children, g.ID)
	}
}

// attachGroup appends a group to a parent's child list and updates the
// back-reference.
func (t *Tree) attachGroup(parent *Group, g *Group) {
	g.ParentID = parent.ID
	parent.children = append(parent.children, g)
}

// removeEntry permanently removes a detached entry, wiping its secrets.
func (t *Tree) removeEntry(e *Entry) {
	e.destroySecrets()
	delete(t.entries, e.ID)
}

// removeGroupSubtree permanently removes a detached group and everything
// beneath it, wiping all secrets.
func (t *Tree) removeGroupSubtree(g *Group) {
	for _, child := range g.children {
		switch n := child.(type) {
		case *Entry:
			t.removeEntry(n)
		case *Group:
			t.removeGroupSubtree(n)
		}
	}
	g.children = nil
	if t.recycleBinID == g.ID {
		t.recycleBinID = ""
	}
	delete(t.groups, g.ID)
}

// spliceChild removes the node with the given id from an ordered child
// list, preserving the order of the remaining nodes.
func spliceChild(children []Node, id string) []Node {
	for i, child := range children {
		if child.NodeID() == id {
			return append(children[:i], children[i+1:]...)
		}
	}
	return children
}

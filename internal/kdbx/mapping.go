package kdbx

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gokeepasslib "github.com/tobischo/gokeepasslib/v3"
	"github.com/tobischo/gokeepasslib/v3/wrappers"

	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

// tagSeparators are the characters KeePass-family applications use to
// delimit entry tags.
const tagSeparators = ";,"

// buildTree converts a decoded database into the arena tree. Protected
// values arrive in plaintext (the database is unlocked by the caller) and
// are immediately re-encrypted into in-memory containers.
func buildTree(db *gokeepasslib.Database) (*vault.Tree, error) {
	if db.Content == nil || db.Content.Root == nil || len(db.Content.Root.Groups) == 0 {
		return nil, fmt.Errorf("%w: missing root group", vault.ErrInvalidFile)
	}

	kroot := &db.Content.Root.Groups[0]
	meta := db.Content.Meta

	name := kroot.Name
	if meta != nil && meta.DatabaseName != "" {
		name = meta.DatabaseName
	}

	tree := vault.RestoreTree(name, groupShell(kroot))
	if err := loadChildren(tree, tree.Root(), kroot); err != nil {
		return nil, err
	}

	if meta != nil {
		tree.Description = meta.DatabaseDescription
		tree.Generator = meta.Generator

		binID := ""
		if meta.RecycleBinUUID != (gokeepasslib.UUID{}) {
			binID = idFromUUID(meta.RecycleBinUUID)
		}
		var changed time.Time
		if meta.RecycleBinChanged != nil {
			changed = meta.RecycleBinChanged.Time
		}
		tree.SetRecycleBin(binID, meta.RecycleBinEnabled.Bool, changed)
	}

	if kdf := readKDF(db); kdf != nil {
		tree.KDF = *kdf
	}
	return tree, nil
}

// loadChildren attaches a decoded group's subtree to the arena. KDBX keeps
// subgroups and entries in separate sequences, so child order within each
// kind is preserved and groups precede entries.
func loadChildren(tree *vault.Tree, parent *vault.Group, kg *gokeepasslib.Group) error {
	for i := range kg.Groups {
		sub := &kg.Groups[i]
		g := groupShell(sub)
		if err := tree.AddGroup(parent.ID, g); err != nil {
			return fmt.Errorf("%w: %v", vault.ErrInvalidFile, err)
		}
		if err := loadChildren(tree, g, sub); err != nil {
			return err
		}
	}
	for i := range kg.Entries {
		e, err := loadEntry(&kg.Entries[i])
		if err != nil {
			return err
		}
		if err := tree.AddEntry(parent.ID, e); err != nil {
			return fmt.Errorf("%w: %v", vault.ErrInvalidFile, err)
		}
	}
	return nil
}

// groupShell converts a decoded group's own fields, without children.
func groupShell(kg *gokeepasslib.Group) *vault.Group {
	return &vault.Group{
		ID:              idFromUUID(kg.UUID),
		Name:            kg.Name,
		Notes:           kg.Notes,
		IconID:          int(kg.IconID),
		Created:         wrapperTime(kg.Times.CreationTime),
		Modified:        wrapperTime(kg.Times.LastModificationTime),
		LocationChanged: wrapperTime(kg.Times.LocationChanged),
	}
}

// loadEntry converts a decoded entry, splitting its value list into the
// scalar columns, the reserved protected fields, and custom fields.
func loadEntry(ke *gokeepasslib.Entry) (*vault.Entry, error) {
	e := &vault.Entry{
		ID:              idFromUUID(ke.UUID),
		IconID:          int(ke.IconID),
		Tags:            splitTags(ke.Tags),
		Created:         wrapperTime(ke.Times.CreationTime),
		Modified:        wrapperTime(ke.Times.LastModificationTime),
		Accessed:        wrapperTime(ke.Times.LastAccessTime),
		LocationChanged: wrapperTime(ke.Times.LocationChanged),
	}

	for _, vd := range ke.Values {
		content := vd.Value.Content
		switch vd.Key {
		case vault.FieldTitle:
			e.Title = content
		case vault.FieldUserName:
			e.Username = content
		case vault.FieldURL:
			e.URL = content
		case vault.FieldNotes:
			e.Notes = content
		case vault.FieldPassword:
			if err := e.SetPassword(content); err != nil {
				return nil, err
			}
		case vault.FieldOTP:
			if err := e.SetOTP(content); err != nil {
				return nil, err
			}
		default:
			if err := e.SetCustomField(vd.Key, content, vd.Value.Protected.Bool); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

// buildRoot converts the arena tree back into the library's group
// hierarchy for encoding.
func buildRoot(tree *vault.Tree) (gokeepasslib.Group, error) {
	return buildGroup(tree.Root())
}

func buildGroup(g *vault.Group) (gokeepasslib.Group, error) {
	kg := gokeepasslib.NewGroup()
	kg.UUID = uuidFromID(g.ID)
	kg.Name = g.Name
	kg.Notes = g.Notes
	kg.IconID = int64(g.IconID)
	setTimes(&kg.Times, g.Created, g.Modified, time.Time{}, g.LocationChanged)

	for _, child := range g.Children() {
		switch n := child.(type) {
		case *vault.Group:
			sub, err := buildGroup(n)
			if err != nil {
				return gokeepasslib.Group{}, err
			}
			kg.Groups = append(kg.Groups, sub)
		case *vault.Entry:
			ke, err := buildEntry(n)
			if err != nil {
				return gokeepasslib.Group{}, err
			}
			kg.Entries = append(kg.Entries, ke)
		}
	}
	return kg, nil
}

func buildEntry(e *vault.Entry) (gokeepasslib.Entry, error) {
	ke := gokeepasslib.NewEntry()
	ke.UUID = uuidFromID(e.ID)
	ke.IconID = int64(e.IconID)
	ke.Tags = strings.Join(e.Tags, ";")
	setTimes(&ke.Times, e.Created, e.Modified, e.Accessed, e.LocationChanged)

	password, err := e.Password()
	if err != nil {
		return gokeepasslib.Entry{}, err
	}
	ke.Values = append(ke.Values,
		plainValue(vault.FieldTitle, e.Title),
		plainValue(vault.FieldUserName, e.Username),
		protectedValue(vault.FieldPassword, password),
		plainValue(vault.FieldURL, e.URL),
		plainValue(vault.FieldNotes, e.Notes),
	)

	otp, err := e.OTP()
	if err != nil {
		return gokeepasslib.Entry{}, err
	}
	if otp != "" {
		ke.Values = append(ke.Values, protectedValue(vault.FieldOTP, otp))
	}

	for _, key := range e.CustomFieldKeys() {
		v, _ := e.CustomField(key)
		content, err := v.Reveal()
		if err != nil {
			return gokeepasslib.Entry{}, err
		}
		if v.Protected() {
			ke.Values = append(ke.Values, protectedValue(key, content))
		} else {
			ke.Values = append(ke.Values, plainValue(key, content))
		}
	}
	return ke, nil
}

func plainValue(key, content string) gokeepasslib.ValueData {
	return gokeepasslib.ValueData{Key: key, Value: gokeepasslib.V{Content: content}}
}

func protectedValue(key, content string) gokeepasslib.ValueData {
	return gokeepasslib.ValueData{
		Key:   key,
		Value: gokeepasslib.V{Content: content, Protected: wrappers.NewBoolWrapper(true)},
	}
}

// setTimes overrides the timestamps the library preset on a fresh node.
// Zero times leave the preset values alone.
func setTimes(td *gokeepasslib.TimeData, created, modified, accessed, locationChanged time.Time) {
	if !created.IsZero() {
		td.CreationTime = &wrappers.TimeWrapper{Time: created}
	}
	if !modified.IsZero() {
		td.LastModificationTime = &wrappers.TimeWrapper{Time: modified}
	}
	if !accessed.IsZero() {
		td.LastAccessTime = &wrappers.TimeWrapper{Time: accessed}
	}
	if !locationChanged.IsZero() {
		td.LocationChanged = &wrappers.TimeWrapper{Time: locationChanged}
	}
}

func wrapperTime(w *wrappers.TimeWrapper) time.Time {
	if w == nil {
		return time.Time{}
	}
	return w.Time
}

// idFromUUID renders a library UUID as the canonical string id used by the
// tree.
func idFromUUID(ku gokeepasslib.UUID) string {
	id, err := uuid.FromBytes(ku[:])
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// uuidFromID parses a tree id back into a library UUID. Ids always
// originate as UUIDs; anything else gets a fresh one.
func uuidFromID(id string) gokeepasslib.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gokeepasslib.NewUUID()
	}
	var ku gokeepasslib.UUID
	copy(ku[:], parsed[:])
	return ku
}

func splitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	fields := strings.FieldsFunc(tags, func(r rune) bool {
		return strings.ContainsRune(tagSeparators, r)
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

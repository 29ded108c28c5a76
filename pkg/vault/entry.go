package vault

import (
	"fmt"
	"strings"
	"time"
)

// ListEntries returns shallow projections of entries. With a group id it
// returns only that group's direct entry children in child order; with an
// empty id it returns every entry in the tree in depth-first order.
func (s *Session) ListEntries(groupID string) ([]EntryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return nil, ErrNotOpen
	}

	var items []EntryItem
	if groupID == "" {
		s.tree.WalkEntries(func(e *Entry) {
			items = append(items, entryItem(e))
		})
		return items, nil
	}

	group := s.tree.Group(groupID)
	if group == nil {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	for _, child := range group.Children() {
		if e, ok := child.(*Entry); ok {
			items = append(items, entryItem(e))
		}
	}
	return items, nil
}

// SearchEntries returns entries whose title, username, URL, notes, or tags
// contain the query, case-insensitively. Recycled entries are skipped.
func (s *Session) SearchEntries(query string) ([]EntryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return nil, ErrNotOpen
	}

	needle := strings.ToLower(query)
	var items []EntryItem
	s.tree.WalkEntries(func(e *Entry) {
		if s.tree.InRecycleBin(e.GroupID) {
			return
		}
		if entryMatches(e, needle) {
			items = append(items, entryItem(e))
		}
	})
	return items, nil
}

// GetEntry returns the full projection of an entry: every scalar field,
// decrypted unprotected custom fields, and protection metadata for all
// custom fields. Protected values never appear.
func (s *Session) GetEntry(id string) (EntryDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return EntryDetails{}, ErrNotOpen
	}

	e := s.tree.Entry(id)
	if e == nil {
		return EntryDetails{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	e.Accessed = time.Now().UTC()
	return entryDetails(e)
}

// GetEntryPassword decrypts and returns the entry's password. An entry
// without a password yields an empty string; only a missing entry is an
// error.
func (s *Session) GetEntryPassword(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return "", ErrNotOpen
	}

	e := s.tree.Entry(id)
	if e == nil {
		return "", fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	e.Accessed = time.Now().UTC()
	return e.Password()
}

// GetProtectedCustomField decrypts and returns one protected custom field.
// Standard field names are never custom fields; an unprotected field is a
// distinct error so callers learn they used the wrong accessor.
func (s *Session) GetProtectedCustomField(id, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return "", ErrNotOpen
	}

	e := s.tree.Entry(id)
	if e == nil {
		return "", fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if IsReservedField(key) {
		return "", fmt.Errorf("%w: %s", ErrFieldNotFound, key)
	}
	v, ok := e.CustomField(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFieldNotFound, key)
	}
	if !v.Protected() {
		return "", fmt.Errorf("%w: %s", ErrFieldNotProtected, key)
	}
	e.Accessed = time.Now().UTC()
	return v.Reveal()
}

// CreateEntry adds a new entry to the given group. An empty group id
// targets the root group.
func (s *Session) CreateEntry(groupID string, data EntryData) (EntryDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return EntryDetails{}, ErrNotOpen
	}

	group, err := s.resolveGroup(groupID)
	if err != nil {
		return EntryDetails{}, err
	}

	now := time.Now().UTC()
	e := &Entry{
		Title:    data.Title,
		Username: data.Username,
		URL:      data.URL,
		Notes:    data.Notes,
		IconID:   data.IconID,
		Tags:     append([]string(nil), data.Tags...),
		Created:  now,
		Modified: now,
		Accessed: now,
	}
	if err := e.SetPassword(data.Password); err != nil {
		return EntryDetails{}, err
	}
	if err := setCustomFields(e, data.CustomFields, data.ProtectedCustomFields); err != nil {
		e.destroySecrets()
		return EntryDetails{}, err
	}

	if err := s.tree.AddEntry(group.ID, e); err != nil {
		e.destroySecrets()
		return EntryDetails{}, err
	}
	s.modified = true
	return entryDetails(e)
}

// UpdateEntry applies a partial update. Present scalar fields overwrite
// individually; if either custom-field map is present the entire
// custom-field set is replaced.
func (s *Session) UpdateEntry(id string, patch EntryPatch) (EntryDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return EntryDetails{}, ErrNotOpen
	}

	e := s.tree.Entry(id)
	if e == nil {
		return EntryDetails{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	// Validate custom-field keys before clearing anything, so a rejected
	// patch leaves the entry untouched.
	replaceCustom := patch.CustomFields != nil || patch.ProtectedCustomFields != nil
	if replaceCustom {
		for key := range patch.CustomFields {
			if IsReservedField(key) {
				return EntryDetails{}, fmt.Errorf("%w: %s", ErrReservedField, key)
			}
		}
		for key := range patch.ProtectedCustomFields {
			if IsReservedField(key) {
				return EntryDetails{}, fmt.Errorf("%w: %s", ErrReservedField, key)
			}
		}
	}

	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Username != nil {
		e.Username = *patch.Username
	}
	if patch.URL != nil {
		e.URL = *patch.URL
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	if patch.IconID != nil {
		e.IconID = *patch.IconID
	}
	if patch.Tags != nil {
		e.Tags = append([]string(nil), patch.Tags...)
	}
	if patch.Password != nil {
		if err := e.SetPassword(*patch.Password); err != nil {
			return EntryDetails{}, err
		}
	}
	if replaceCustom {
		e.ClearCustomFields()
		if err := setCustomFields(e, patch.CustomFields, patch.ProtectedCustomFields); err != nil {
			return EntryDetails{}, err
		}
	}

	e.Modified = time.Now().UTC()
	s.modified = true
	return entryDetails(e)
}

// DeleteEntry soft-deletes an entry into the recycle bin. Entries are never
// removed structurally through this path.
func (s *Session) DeleteEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return ErrNotOpen
	}

	e := s.tree.Entry(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	bin := s.tree.EnsureRecycleBin()
	s.tree.detachEntry(e)
	s.tree.attachEntry(bin, e)

	now := time.Now().UTC()
	e.Modified = now
	e.LocationChanged = now
	s.modified = true
	return nil
}

// MoveEntry relocates an entry to another group. Both ids are resolved
// before anything is detached, so a bad target cannot orphan the entry.
func (s *Session) MoveEntry(id, targetGroupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return ErrNotOpen
	}

	e := s.tree.Entry(id)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	target, err := s.resolveGroup(targetGroupID)
	if err != nil {
		return err
	}

	s.tree.detachEntry(e)
	s.tree.attachEntry(target, e)

	now := time.Now().UTC()
	e.Modified = now
	e.LocationChanged = now
	s.modified = true
	return nil
}

// resolveGroup maps an id to a group, with the empty id meaning root.
// Callers hold s.mu with an open tree.
func (s *Session) resolveGroup(id string) (*Group, error) {
	if id == "" {
		return s.tree.Root(), nil
	}
	g := s.tree.Group(id)
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return g, nil
}

// setCustomFields stores both custom-field maps on an entry.
func setCustomFields(e *Entry, plain, protected map[string]string) error {
	for key, value := range plain {
		if err := e.SetCustomField(key, value, false); err != nil {
			return err
		}
	}
	for key, value := range protected {
		if err := e.SetCustomField(key, value, true); err != nil {
			return err
		}
	}
	return nil
}

func entryItem(e *Entry) EntryItem {
	return EntryItem{
		ID:       e.ID,
		GroupID:  e.GroupID,
		Title:    e.Title,
		Username: e.Username,
		URL:      e.URL,
		Tags:     append([]string(nil), e.Tags...),
	}
}

func entryDetails(e *Entry) (EntryDetails, error) {
	details := EntryDetails{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Title:       e.Title,
		Username:    e.Username,
		URL:         e.URL,
		Notes:       e.Notes,
		IconID:      e.IconID,
		Tags:        append([]string(nil), e.Tags...),
		HasPassword: e.HasPassword(),
		Created:     e.Created,
		Modified:    e.Modified,
		Accessed:    e.Accessed,
	}
	for _, key := range e.CustomFieldKeys() {
		v, _ := e.CustomField(key)
		details.Fields = append(details.Fields, FieldInfo{Key: key, Protected: v.Protected()})
		if !v.Protected() {
			value, err := v.Reveal()
			if err != nil {
				return EntryDetails{}, err
			}
			if details.CustomFields == nil {
				details.CustomFields = make(map[string]string)
			}
			details.CustomFields[key] = value
		}
	}
	return details, nil
}

func entryMatches(e *Entry, needle string) bool {
	for _, field := range []string{e.Title, e.Username, e.URL, e.Notes} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

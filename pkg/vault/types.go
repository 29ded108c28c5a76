package vault

import "time"

// Application identity, written into lock sidecars and vault metadata.
const (
	AppName    = "MithrilVault"
	AppVersion = "1.2.0"
)

// Credentials are the secrets that unlock a vault file. At least one of the
// two must be present for open, create, and save.
type Credentials struct {
	Password    string
	KeyfilePath string
}

// Provided reports whether any credential form was supplied.
func (c Credentials) Provided() bool {
	return c.Password != "" || c.KeyfilePath != ""
}

// FileInfo is the result of a header-only inspection of a vault file,
// available without credentials.
type FileInfo struct {
	Valid     bool
	Supported bool
	Version   string
}

// Codec translates between raw vault file bytes and the in-memory tree.
// The on-disk format, key derivation, and authenticated encryption all live
// behind this interface.
type Codec interface {
	// Decode decrypts raw bytes into a tree and reports the format version.
	Decode(data []byte, creds Credentials) (*Tree, string, error)

	// Encode serializes and encrypts a tree.
	Encode(tree *Tree, creds Credentials) ([]byte, error)

	// Inspect classifies raw bytes by header alone.
	Inspect(data []byte) (FileInfo, error)
}

// EntryData is the input for creating an entry.
type EntryData struct {
	Title    string
	Username string
	Password string
	URL      string
	Notes    string
	IconID   int
	Tags     []string

	CustomFields          map[string]string
	ProtectedCustomFields map[string]string
}

// EntryPatch is a partial update. Nil fields are untouched. If either
// custom-field map is non-nil the entry's whole custom-field set is
// replaced, so passing one empty map clears all custom fields.
type EntryPatch struct {
	Title    *string
	Username *string
	Password *string
	URL      *string
	Notes    *string
	IconID   *int
	Tags     []string

	CustomFields          map[string]string
	ProtectedCustomFields map[string]string
}

// EntryItem is the shallow projection used by listings. No password, no
// protected data.
type EntryItem struct {
	ID       string
	GroupID  string
	Title    string
	Username string
	URL      string
	Tags     []string
}

// FieldInfo describes one custom field without exposing protected values.
type FieldInfo struct {
	Key       string
	Protected bool
}

// EntryDetails is the full projection of a single entry. Unprotected custom
// fields appear in CustomFields; protected ones appear only as metadata in
// Fields.
type EntryDetails struct {
	ID          string
	GroupID     string
	Title       string
	Username    string
	URL         string
	Notes       string
	IconID      int
	Tags        []string
	HasPassword bool

	CustomFields map[string]string
	Fields       []FieldInfo

	Created  time.Time
	Modified time.Time
	Accessed time.Time
}

// GroupData is the input for creating a group.
type GroupData struct {
	Name   string
	Notes  string
	IconID int
}

// GroupPatch is a partial group update. Nil fields are untouched.
type GroupPatch struct {
	Name   *string
	Notes  *string
	IconID *int
}

// GroupInfo is the projection of a group, with its subtree of child groups.
type GroupInfo struct {
	ID       string
	ParentID string
	Name     string
	Notes    string
	IconID   int
	Entries  int
	Children []GroupInfo
}

// DeleteGroupOptions controls group deletion.
type DeleteGroupOptions struct {
	// Recursive allows deleting a group that still has children.
	Recursive bool

	// Permanent removes the subtree outright instead of moving it to the
	// recycle bin.
	Permanent bool
}

// CreateOptions configures a new vault.
type CreateOptions struct {
	// Name is the database name and root group name. Defaults to the file
	// name without extension.
	Name string

	// Description is stored in the vault metadata.
	Description string

	// DefaultGroups seeds the vault with a starter group set.
	DefaultGroups bool

	// KDF overrides the key-derivation parameters for the new file.
	KDF *KDFConfig
}

// DefaultGroupNames is the starter group set for new vaults.
var DefaultGroupNames = []string{"General", "Email", "Banking", "Social"}

// Info describes the open vault.
type Info struct {
	Path        string
	Name        string
	Description string
	Version     string
	Modified    bool
	RootGroupID string
}

// Stats are aggregate counts over the open vault.
type Stats struct {
	Groups          int
	Entries         int
	RecycledEntries int
}

// Config reports the open vault's format configuration.
type Config struct {
	Version string
	KDF     KDFConfig
}

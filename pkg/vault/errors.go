package vault

import "errors"

// Sentinel errors returned by Session and the tree operations. Callers match
// with errors.Is; wrapped variants carry the offending id, key, or path.
var (
	// Session state misuse.
	ErrNotOpen     = errors.New("vault: no vault is open")
	ErrAlreadyOpen = errors.New("vault: a vault is already open")

	// Credentials.
	ErrInvalidCredentials = errors.New("vault: invalid password or keyfile")
	ErrNoCredentials      = errors.New("vault: no password or keyfile provided")
	ErrKeyfileNotFound    = errors.New("vault: keyfile not found")
	ErrKeyfileInvalid     = errors.New("vault: invalid keyfile")

	// Lookups.
	ErrEntryNotFound     = errors.New("vault: entry not found")
	ErrGroupNotFound     = errors.New("vault: group not found")
	ErrFieldNotFound     = errors.New("vault: custom field not found")
	ErrFieldNotProtected = errors.New("vault: custom field is not protected")
	ErrReservedField     = errors.New("vault: field name is reserved for a standard field")

	// Structural constraints.
	ErrCannotDeleteRoot = errors.New("vault: cannot delete the root group")
	ErrCannotMoveRoot   = errors.New("vault: cannot move the root group")
	ErrCircularMove     = errors.New("vault: cannot move a group into itself or a descendant")
	ErrGroupNotEmpty    = errors.New("vault: group is not empty")

	// File format, reported by the codec.
	ErrInvalidFile        = errors.New("vault: not a valid vault file")
	ErrUnsupportedVersion = errors.New("vault: unsupported vault format version")
	ErrUnsupportedCipher  = errors.New("vault: unsupported cipher")
	ErrUnsupportedKDF     = errors.New("vault: unsupported key derivation function")
	ErrHeaderIntegrity    = errors.New("vault: header integrity check failed")

	// Filesystem.
	ErrFileNotFound = errors.New("vault: vault file not found")
	ErrFileExists   = errors.New("vault: a file already exists at this path")
)

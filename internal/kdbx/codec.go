// Package kdbx adapts the KDBX4 file format to the vault tree model.
//
// Decoding validates the raw file signature before handing the payload to
// the format library, so unsupported files are distinguished from wrong
// credentials. Encoding always produces KDBX 4 regardless of the version
// the vault was loaded from.
package kdbx

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	gokeepasslib "github.com/tobischo/gokeepasslib/v3"
	"github.com/tobischo/gokeepasslib/v3/wrappers"

	"github.com/mithrilvault/mithrilctl/pkg/vault"
)

// Codec implements vault.Codec on top of the KDBX format.
type Codec struct{}

// New returns a KDBX codec.
func New() *Codec {
	return &Codec{}
}

// Inspect reports whether data carries a KDBX signature this codec can
// open, without attempting decryption.
func (c *Codec) Inspect(data []byte) (vault.FileInfo, error) {
	h := parseFileHeader(data)
	return vault.FileInfo{
		Valid:     h.valid,
		Supported: h.supported(),
		Version:   h.version(),
	}, nil
}

// Decode decrypts and parses a vault file into a tree. The returned string
// is the format version of the file that was read.
func (c *Codec) Decode(data []byte, creds vault.Credentials) (*vault.Tree, string, error) {
	h := parseFileHeader(data)
	if !h.valid {
		return nil, "", vault.ErrInvalidFile
	}
	if !h.supported() {
		return nil, "", fmt.Errorf("%w: kdbx %s", vault.ErrUnsupportedVersion, h.version())
	}

	dbCreds, err := buildCredentials(creds)
	if err != nil {
		return nil, "", err
	}

	db := gokeepasslib.NewDatabase()
	db.Credentials = dbCreds
	if err := gokeepasslib.NewDecoder(bytes.NewReader(data)).Decode(db); err != nil {
		return nil, "", mapDecodeError(err)
	}
	if err := db.UnlockProtectedEntries(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", vault.ErrInvalidFile, err)
	}

	tree, err := buildTree(db)
	if err != nil {
		return nil, "", err
	}
	return tree, h.version(), nil
}

// Encode serializes a tree as a KDBX 4 payload.
func (c *Codec) Encode(tree *vault.Tree, creds vault.Credentials) ([]byte, error) {
	dbCreds, err := buildCredentials(creds)
	if err != nil {
		return nil, err
	}

	root, err := buildRoot(tree)
	if err != nil {
		return nil, err
	}

	db := gokeepasslib.NewDatabase(gokeepasslib.WithDatabaseKDBXVersion4())
	db.Credentials = dbCreds
	db.Content.Root = &gokeepasslib.RootData{Groups: []gokeepasslib.Group{root}}

	meta := db.Content.Meta
	meta.DatabaseName = tree.Name
	meta.DatabaseDescription = tree.Description
	meta.Generator = tree.Generator
	meta.RecycleBinEnabled = wrappers.NewBoolWrapper(tree.RecycleBinEnabled)
	if binID := tree.RecycleBinID(); binID != "" {
		meta.RecycleBinUUID = uuidFromID(binID)
	}
	if !tree.RecycleBinChanged.IsZero() {
		meta.RecycleBinChanged = &wrappers.TimeWrapper{Time: tree.RecycleBinChanged}
	}

	applyKDF(db, tree.KDF)

	if err := db.LockProtectedEntries(); err != nil {
		return nil, fmt.Errorf("vault: lock protected values: %w", err)
	}

	var buf bytes.Buffer
	if err := gokeepasslib.NewEncoder(&buf).Encode(db); err != nil {
		return nil, fmt.Errorf("vault: encode kdbx: %w", err)
	}
	return buf.Bytes(), nil
}

// buildCredentials resolves the password and keyfile combination into
// library credentials, validating keyfile existence up front.
func buildCredentials(creds vault.Credentials) (*gokeepasslib.DBCredentials, error) {
	if creds.KeyfilePath != "" {
		if _, err := os.Stat(creds.KeyfilePath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", vault.ErrKeyfileNotFound, creds.KeyfilePath)
			}
			return nil, fmt.Errorf("%w: %v", vault.ErrKeyfileInvalid, err)
		}
	}

	switch {
	case creds.Password != "" && creds.KeyfilePath != "":
		dbCreds, err := gokeepasslib.NewPasswordAndKeyCredentials(creds.Password, creds.KeyfilePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vault.ErrKeyfileInvalid, err)
		}
		return dbCreds, nil
	case creds.KeyfilePath != "":
		dbCreds, err := gokeepasslib.NewKeyCredentials(creds.KeyfilePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vault.ErrKeyfileInvalid, err)
		}
		return dbCreds, nil
	case creds.Password != "":
		return gokeepasslib.NewPasswordCredentials(creds.Password), nil
	default:
		return nil, vault.ErrNoCredentials
	}
}

// mapDecodeError classifies a library decode failure. After the signature
// has been validated, an authentication failure is indistinguishable from
// corruption of the encrypted payload, so wrong credentials is the default
// classification.
func mapDecodeError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "cipher"):
		return fmt.Errorf("%w: %v", vault.ErrUnsupportedCipher, err)
	case strings.Contains(msg, "kdf"), strings.Contains(msg, "key derivation"):
		return fmt.Errorf("%w: %v", vault.ErrUnsupportedKDF, err)
	case strings.Contains(msg, "header sha"), strings.Contains(msg, "header hash"):
		return fmt.Errorf("%w: %v", vault.ErrHeaderIntegrity, err)
	default:
		return fmt.Errorf("%w: %v", vault.ErrInvalidCredentials, err)
	}
}

// applyKDF writes the Argon2 cost parameters into the freshly created
// database header.
func applyKDF(db *gokeepasslib.Database, kdf vault.KDFConfig) {
	if db.Header == nil || db.Header.FileHeaders == nil || db.Header.FileHeaders.KdfParameters == nil {
		return
	}
	p := db.Header.FileHeaders.KdfParameters
	if kdf.MemoryKiB > 0 {
		p.Memory = kdf.MemoryKiB * 1024
	}
	if kdf.Iterations > 0 {
		p.Iterations = kdf.Iterations
	}
	if kdf.Parallelism > 0 {
		p.Parallelism = kdf.Parallelism
	}
}

// readKDF extracts the Argon2 cost parameters from a decoded header, or
// nil when the file predates KDF parameter blocks (KDBX 3).
func readKDF(db *gokeepasslib.Database) *vault.KDFConfig {
	if db.Header == nil || db.Header.FileHeaders == nil || db.Header.FileHeaders.KdfParameters == nil {
		return nil
	}
	p := db.Header.FileHeaders.KdfParameters
	if p.Memory == 0 && p.Iterations == 0 {
		return nil
	}
	return &vault.KDFConfig{
		MemoryKiB:   p.Memory / 1024,
		Iterations:  p.Iterations,
		Parallelism: p.Parallelism,
	}
}

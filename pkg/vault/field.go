package vault

import "github.com/mithrilvault/mithrilctl/pkg/secure"

// Standard field names. These live as scalar fields on Entry and are never
// stored in the custom-field map, matching the fixed per-entry columns of
// the vault file format.
const (
	FieldTitle    = "Title"
	FieldUserName = "UserName"
	FieldPassword = "Password"
	FieldURL      = "URL"
	FieldNotes    = "Notes"
	FieldOTP      = "otp"
)

var reservedFields = map[string]bool{
	FieldTitle:    true,
	FieldUserName: true,
	FieldPassword: true,
	FieldURL:      true,
	FieldNotes:    true,
	FieldOTP:      true,
}

// IsReservedField reports whether key names a standard field rather than a
// custom one.
func IsReservedField(key string) bool {
	return reservedFields[key]
}

// Value is a single custom-field value, either plain or protected.
//
// A protected value is held encrypted in memory and only decrypted by an
// explicit Reveal call. The zero Value is an empty plain value.
type Value struct {
	plain string
	blob  *secure.Blob
}

// PlainValue wraps an unprotected field value.
func PlainValue(s string) Value {
	return Value{plain: s}
}

// ProtectedValue encrypts a field value for in-memory storage.
func ProtectedValue(s string) (Value, error) {
	blob, err := secure.NewBlobString(s)
	if err != nil {
		return Value{}, err
	}
	return Value{blob: blob}, nil
}

// Protected reports whether the value is held encrypted.
func (v Value) Protected() bool {
	return v.blob != nil
}

// Reveal returns the field value, decrypting it if protected.
func (v Value) Reveal() (string, error) {
	if v.blob == nil {
		return v.plain, nil
	}
	return v.blob.RevealString()
}

// destroy wipes protected material. Plain values have nothing to wipe.
func (v Value) destroy() {
	v.blob.Destroy()
}

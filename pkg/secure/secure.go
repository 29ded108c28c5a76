// Package secure provides containers for secret material held in process
// memory.
//
// String and Bytes own their backing storage and wipe it on Destroy. Blob
// keeps a secret encrypted at rest in memory under an ephemeral
// ChaCha20-Poly1305 key and only decrypts on an explicit Reveal call.
//
// All three types redact themselves when formatted with the fmt verbs, so a
// stray log statement cannot leak a secret.
package secure

import (
	"crypto/subtle"

	"github.com/mithrilvault/mithrilctl/pkg/crypto"
)

// Redacted is the placeholder emitted when a secure container is formatted.
const Redacted = "[REDACTED]"

// String holds a secret string in wipeable storage.
//
// Go strings are immutable and cannot be zeroed, so the secret lives in a
// byte slice and is only materialized as a string inside Value.
type String struct {
	data []byte
}

// NewString copies s into a secure container.
func NewString(s string) *String {
	return &String{data: []byte(s)}
}

// Value returns the secret as a string.
func (s *String) Value() string {
	if s == nil {
		return ""
	}
	return string(s.data)
}

// Len returns the secret length in bytes.
func (s *String) Len() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}

// IsEmpty reports whether the container holds no data.
func (s *String) IsEmpty() bool {
	return s.Len() == 0
}

// Equal compares two secrets in constant time.
func (s *String) Equal(other *String) bool {
	if s == nil || other == nil {
		return s.Len() == 0 && other.Len() == 0
	}
	return subtle.ConstantTimeCompare(s.data, other.data) == 1
}

// Destroy wipes the backing storage. The container is empty afterwards and
// safe to keep using.
func (s *String) Destroy() {
	if s == nil {
		return
	}
	crypto.SecureWipe(s.data)
	s.data = nil
}

// String implements fmt.Stringer and always redacts.
func (s *String) String() string { return Redacted }

// GoString implements fmt.GoStringer and always redacts.
func (s *String) GoString() string { return Redacted }

// Bytes holds secret binary data in wipeable storage.
type Bytes struct {
	data []byte
}

// NewBytes copies b into a secure container.
func NewBytes(b []byte) *Bytes {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Bytes{data: cp}
}

// Value returns the secret bytes. The returned slice is the backing storage;
// callers must not retain it past Destroy.
func (b *Bytes) Value() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the secret length in bytes.
func (b *Bytes) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Destroy wipes the backing storage.
func (b *Bytes) Destroy() {
	if b == nil {
		return
	}
	crypto.SecureWipe(b.data)
	b.data = nil
}

// String implements fmt.Stringer and always redacts.
func (b *Bytes) String() string { return Redacted }

// GoString implements fmt.GoStringer and always redacts.
func (b *Bytes) GoString() string { return Redacted }

// Blob keeps a secret encrypted in memory.
//
// Each Blob carries its own random key, so revealing one secret never exposes
// key material shared with another. The plaintext exists only transiently
// inside NewBlob and Reveal.
type Blob struct {
	key        []byte
	nonce      []byte
	ciphertext []byte
}

// NewBlob encrypts plaintext under a fresh random key and returns the
// container. The caller keeps ownership of plaintext and should wipe it.
func NewBlob(plaintext []byte) (*Blob, error) {
	key, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	ciphertext, nonce, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		crypto.SecureWipe(key)
		return nil, err
	}
	return &Blob{key: key, nonce: nonce, ciphertext: ciphertext}, nil
}

// NewBlobString encrypts a string secret.
func NewBlobString(plaintext string) (*Blob, error) {
	buf := []byte(plaintext)
	defer crypto.SecureWipe(buf)
	return NewBlob(buf)
}

// Reveal decrypts and returns the secret. The caller owns the returned slice
// and should wipe it when done.
func (p *Blob) Reveal() ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return crypto.Decrypt(p.key, p.ciphertext, p.nonce)
}

// RevealString decrypts and returns the secret as a string.
func (p *Blob) RevealString() (string, error) {
	buf, err := p.Reveal()
	if err != nil {
		return "", err
	}
	s := string(buf)
	crypto.SecureWipe(buf)
	return s, nil
}

// Destroy wipes the key. The ciphertext is unrecoverable afterwards.
func (p *Blob) Destroy() {
	if p == nil {
		return
	}
	crypto.SecureWipe(p.key)
	crypto.SecureWipe(p.ciphertext)
	p.key = nil
	p.nonce = nil
	p.ciphertext = nil
}

// String implements fmt.Stringer and always redacts.
func (p *Blob) String() string { return Redacted }

// GoString implements fmt.GoStringer and always redacts.
func (p *Blob) GoString() string { return Redacted }

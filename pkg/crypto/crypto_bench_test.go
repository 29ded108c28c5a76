package crypto_test

import (
	"crypto/rand"
	"testing"

	"github.com/mithrilvault/mithrilctl/pkg/crypto"
)

// BenchmarkEncrypt measures ChaCha20-Poly1305 sealing with a 1KB payload,
// the typical size of a protected field plus overhead.
func BenchmarkEncrypt(b *testing.B) {
	key, err := crypto.NewKey()
	if err != nil {
		b.Fatal(err)
	}
	data := make([]byte, 1024)
	if _, err := rand.Read(data); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := crypto.Encrypt(key, data); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecrypt measures opening with a 1KB payload.
func BenchmarkDecrypt(b *testing.B) {
	key, err := crypto.NewKey()
	if err != nil {
		b.Fatal(err)
	}
	data := make([]byte, 1024)
	if _, err := rand.Read(data); err != nil {
		b.Fatal(err)
	}
	ciphertext, nonce, err := crypto.Encrypt(key, data)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := crypto.Decrypt(key, ciphertext, nonce); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSecureWipe measures zeroizing a 1KB buffer.
func BenchmarkSecureWipe(b *testing.B) {
	data := make([]byte, 1024)

	b.ReportAllocs()
	b.SetBytes(1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		crypto.SecureWipe(data)
	}
}

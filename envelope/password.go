package envelope

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// DerivePasswordKey derives the AES-256 key of the password variant:
// PBKDF2-HMAC-SHA256(password, salt, 100000 iterations, 32 bytes).
func DerivePasswordKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, KeyLen, sha256.New)
}

// EncryptWithPassword wraps plaintext and filename in a password envelope.
//
// Output format: salt(16B) || iv(12B) || ciphertext || tag(16B)
//
// Salt and iv are drawn fresh from crypto/rand on every call, so encrypting
// the same document twice yields unrelated envelopes.
func EncryptWithPassword(plaintext []byte, filename, password string) ([]byte, error) {
	salt, err := randomBytes(SaltLen)
	if err != nil {
		return nil, err
	}

	key := DerivePasswordKey(password, salt)
	sealed, err := seal(key, Document{Name: filename, Data: plaintext})
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, SaltLen+len(sealed))
	out = append(out, salt...)
	out = append(out, sealed...)
	return out, nil
}

// DecryptWithPassword opens a password envelope.
//
// Input format: salt(16B) || iv(12B) || ciphertext || tag(16B)
//
// A wrong password, a truncated envelope and a flipped byte all return
// ErrAuthenticationFailed.
func DecryptWithPassword(env []byte, password string) (*Document, error) {
	if len(env) < MinPasswordEnvelopeLen {
		return nil, ErrAuthenticationFailed
	}

	key := DerivePasswordKey(password, env[:SaltLen])
	return open(key, env[SaltLen:])
}

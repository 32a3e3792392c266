// Package envelope implements the encrypted document envelope.
//
// Two variants exist, differing only in how the AES-256-GCM key is obtained:
//
//	password:  salt(16) || iv(12) || AES-GCM(PBKDF2-SHA256(password, salt, 100000), iv, payload)
//	signature: iv(12) || AES-GCM(SHA-256(sign("Encrypting doc: " || digest)), iv, payload)
//
// The signature key is SHA-256 of the raw 65-byte compact signature. It is not
// a hash of a base64 or hex text form of that signature, so envelopes from
// tools that hash the text encoding do not open here.
//
// The GCM tag (16 bytes) is appended to the ciphertext. The payload is the
// JSON object {"name": <filename>, "data": [<byte>, ...]}.
//
// Every decryption failure, whatever its cause, is reported as
// ErrAuthenticationFailed so callers cannot tell a wrong key from a damaged
// envelope.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	// SaltLen is the PBKDF2 salt length of the password variant.
	SaltLen = 16

	// IVLen is the AES-GCM nonce length.
	IVLen = 12

	// TagLen is the AES-GCM authentication tag length.
	TagLen = 16

	// KeyLen is the AES-256 key length.
	KeyLen = 32

	// PBKDF2Iterations is the fixed iteration count of the password variant.
	PBKDF2Iterations = 100000

	// MinPasswordEnvelopeLen is salt + iv + tag with an empty payload.
	MinPasswordEnvelopeLen = SaltLen + IVLen + TagLen

	// MinSignerEnvelopeLen is iv + tag with an empty payload.
	MinSignerEnvelopeLen = IVLen + TagLen
)

// Document is the decrypted content of an envelope.
type Document struct {
	Name string
	Data []byte
}

// randomBytes returns n bytes from the OS CSPRNG.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	return b, nil
}

// newGCM builds an AES-256-GCM AEAD for key.
func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrKeyDerivation, KeyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: AES cipher creation failed: %w", ErrKeyDerivation, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: GCM creation failed: %w", ErrKeyDerivation, err)
	}
	return gcm, nil
}

// seal encrypts the serialized payload under key with a fresh iv and returns
// iv || ciphertext || tag.
func seal(key []byte, doc Document) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := marshalPayload(doc)
	if err != nil {
		return nil, err
	}

	iv, err := randomBytes(IVLen)
	if err != nil {
		return nil, err
	}

	return gcm.Seal(iv, iv, plaintext, nil), nil
}

// open reverses seal. Any failure collapses to ErrAuthenticationFailed.
func open(key []byte, sealed []byte) (*Document, error) {
	if len(sealed) < MinSignerEnvelopeLen {
		return nil, ErrAuthenticationFailed
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	plaintext, err := gcm.Open(nil, sealed[:IVLen], sealed[IVLen:], nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	doc, err := unmarshalPayload(plaintext)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return doc, nil
}

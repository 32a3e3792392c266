package envelope

import (
	"crypto/sha256"
	"fmt"

	"github.com/bitfsorg/docnotary-go/digest"
)

// KeyMessagePrefix is prepended to the digest text to form the message whose
// signature becomes the envelope key.
const KeyMessagePrefix = "Encrypting doc: "

// MessageSigner produces a detached signature over a message. For the
// signature variant to be decryptable the signer must return the same
// signature for the same message every time.
type MessageSigner interface {
	Sign(message []byte) ([]byte, error)
}

// KeyMessage returns the fixed message signed to derive the key for d.
func KeyMessage(d digest.Digest) []byte {
	return []byte(KeyMessagePrefix + d.String())
}

// DeriveSignerKey asks s to sign the key message for d and returns
// SHA-256(signature). The raw signature bytes are hashed, not a text encoding.
func DeriveSignerKey(s MessageSigner, d digest.Digest) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil signer", ErrKeyDerivation)
	}
	sig, err := s.Sign(KeyMessage(d))
	if err != nil {
		return nil, fmt.Errorf("%w: sign key message: %w", ErrKeyDerivation, err)
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("%w: empty signature", ErrKeyDerivation)
	}
	key := sha256.Sum256(sig)
	return key[:], nil
}

// EncryptWithSigner wraps plaintext and filename in a signature envelope
// bound to the signer's identity and the digest d.
//
// Output format: iv(12B) || ciphertext || tag(16B)
func EncryptWithSigner(plaintext []byte, filename string, s MessageSigner, d digest.Digest) ([]byte, error) {
	key, err := DeriveSignerKey(s, d)
	if err != nil {
		return nil, err
	}
	return seal(key, Document{Name: filename, Data: plaintext})
}

// DecryptWithSigner re-derives the key by signing the same message again and
// opens the envelope. A different signer or digest yields a different key
// and therefore ErrAuthenticationFailed.
func DecryptWithSigner(env []byte, s MessageSigner, d digest.Digest) (*Document, error) {
	key, err := DeriveSignerKey(s, d)
	if err != nil {
		return nil, err
	}
	return open(key, env)
}

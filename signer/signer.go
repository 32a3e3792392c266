// Package signer produces and verifies detached signatures over documents.
//
// Signatures are Bitcoin Signed Message compact signatures on secp256k1.
// They are deterministic (RFC 6979), so signing the same message with the
// same key always yields the same bytes, and the signer's public key can be
// recovered from (message, signature) alone.
package signer

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	bsm "github.com/bsv-blockchain/go-sdk/compat/bsm"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/docnotary-go/digest"
)

// CompactSignatureLen is the length of a BSM compact signature.
const CompactSignatureLen = 65

// Signer signs messages on behalf of one identity.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	Identity() Identity
}

// Recoverer recovers the identity that produced a signature. Recovery is a
// pure function of its inputs.
type Recoverer interface {
	Recover(message, sig []byte) (Identity, error)
}

// DigestMessage is the message signed to attest a document: the digest's
// 0x-prefixed hex text.
func DigestMessage(d digest.Digest) []byte {
	return []byte(d.String())
}

// SignDigest signs the attestation message for d.
func SignDigest(s Signer, d digest.Digest) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil signer", ErrSigningFailed)
	}
	return s.Sign(DigestMessage(d))
}

// KeySigner signs with an in-memory secp256k1 private key.
type KeySigner struct {
	key *ec.PrivateKey
	id  Identity
}

// Compile-time interface checks.
var (
	_ Signer    = (*KeySigner)(nil)
	_ Recoverer = BSM{}
)

// NewKeySigner wraps key. Addresses are encoded for net.
func NewKeySigner(key *ec.PrivateKey, net Network) (*KeySigner, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrSigningFailed)
	}
	id, err := IdentityFromPublicKey(key.PubKey(), net)
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: key, id: id}, nil
}

// GenerateKeySigner creates a signer with a fresh random key.
func GenerateKeySigner(net Network) (*KeySigner, error) {
	key, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %w", ErrSigningFailed, err)
	}
	return NewKeySigner(key, net)
}

// KeySignerFromWIF parses a WIF-encoded private key.
func KeySignerFromWIF(wif string, net Network) (*KeySigner, error) {
	key, err := ec.PrivateKeyFromWif(strings.TrimSpace(wif))
	if err != nil {
		return nil, fmt.Errorf("%w: parse WIF: %w", ErrSigningFailed, err)
	}
	return NewKeySigner(key, net)
}

// Sign returns a 65-byte compact signature over message.
func (s *KeySigner) Sign(message []byte) ([]byte, error) {
	sig, err := bsm.SignMessage(s.key, message)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return sig, nil
}

// Identity returns the signer's identity.
func (s *KeySigner) Identity() Identity { return s.id }

// PublicKey returns the signer's public key.
func (s *KeySigner) PublicKey() *ec.PublicKey { return s.key.PubKey() }

// BSM recovers identities from Bitcoin Signed Message signatures.
type BSM struct {
	// Network selects the address encoding of recovered identities.
	Network Network
}

// Recover returns the identity whose key produced sig over message.
func (b BSM) Recover(message, sig []byte) (Identity, error) {
	if len(sig) != CompactSignatureLen {
		return Identity{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, CompactSignatureLen, len(sig))
	}
	pub, _, err := bsm.PubKeyFromSignature(sig, message)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if pub == nil {
		return Identity{}, ErrInvalidSignature
	}
	return IdentityFromPublicKey(pub, b.Network)
}

// RecoverDigest recovers the identity that signed the attestation message
// for d.
func RecoverDigest(r Recoverer, d digest.Digest, sig []byte) (Identity, error) {
	return r.Recover(DigestMessage(d), sig)
}

// CachingSigner memoizes signatures per message. It lets a signer whose
// scheme is not deterministic still serve the signature envelope, which must
// see the same signature on encrypt and decrypt.
type CachingSigner struct {
	inner Signer

	mu    sync.Mutex
	cache map[string][]byte
}

var _ Signer = (*CachingSigner)(nil)

// NewCachingSigner wraps inner.
func NewCachingSigner(inner Signer) *CachingSigner {
	return &CachingSigner{inner: inner, cache: make(map[string][]byte)}
}

// Sign returns the cached signature for message, signing on first use.
func (c *CachingSigner) Sign(message []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sig, ok := c.cache[string(message)]; ok {
		return append([]byte(nil), sig...), nil
	}
	sig, err := c.inner.Sign(message)
	if err != nil {
		return nil, err
	}
	c.cache[string(message)] = append([]byte(nil), sig...)
	return sig, nil
}

// Identity returns the wrapped signer's identity.
func (c *CachingSigner) Identity() Identity { return c.inner.Identity() }

// EncodeSignature returns the base64 text form of a signature.
func EncodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

// DecodeSignature parses the base64 text form. 0x-prefixed hex is accepted
// as well.
func DecodeSignature(s string) ([]byte, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSignature)
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		if b, ok := decodeHex(raw); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%w: bad hex", ErrInvalidSignature)
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return b, nil
}

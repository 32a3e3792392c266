// Package digest computes and formats the content digest that identifies a
// document everywhere else in the system.
//
// A digest is the SHA-256 of the document's plaintext bytes. It is computed
// once, before any encryption choice, and serves as the registry key and as
// the message signed for authenticity. Its canonical text form is "0x"
// followed by 64 lowercase hex characters.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Size is the length of a digest in bytes.
const Size = sha256.Size

// Prefix is prepended to the hex text form.
const Prefix = "0x"

// Digest is the SHA-256 of a document's plaintext.
type Digest [Size]byte

// Zero is the all-zero digest. It never identifies a real document in practice
// and is rejected by the registry.
var Zero Digest

// Sum returns the digest of data. Empty input is valid.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// SumReader hashes everything read from r.
func SumReader(r io.Reader) (Digest, error) {
	if r == nil {
		return Zero, fmt.Errorf("%w: nil reader", ErrHashing)
	}
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Zero, fmt.Errorf("%w: %w", ErrHashing, err)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// SumFile hashes the file at path.
func SumFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Zero, fmt.Errorf("%w: %w", ErrHashing, err)
	}
	defer func() { _ = f.Close() }()
	return SumReader(f)
}

// FromBytes copies a 32-byte slice into a Digest.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidDigest, len(b), Size)
	}
	copy(d[:], b)
	return d, nil
}

// Parse decodes the text form. The 0x prefix is optional and hex digits may be
// in either case.
func Parse(s string) (Digest, error) {
	var d Digest
	raw := strings.TrimSpace(s)
	if len(raw) >= 2 && (raw[:2] == "0x" || raw[:2] == "0X") {
		raw = raw[2:]
	}
	if len(raw) != Size*2 {
		return d, fmt.Errorf("%w: %q", ErrInvalidDigest, s)
	}
	if _, err := hex.Decode(d[:], []byte(raw)); err != nil {
		return d, fmt.Errorf("%w: %w", ErrInvalidDigest, err)
	}
	return d, nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(s string) Digest {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the canonical 0x-prefixed lowercase hex form.
func (d Digest) String() string {
	return Prefix + hex.EncodeToString(d[:])
}

// Hex returns the lowercase hex form without prefix.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of the digest as a slice.
func (d Digest) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, d[:])
	return out
}

// IsZero reports whether d is the all-zero digest.
func (d Digest) IsZero() bool {
	return d == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

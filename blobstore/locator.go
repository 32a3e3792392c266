package blobstore

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Locator schemes.
const (
	SchemeBlake3 = "b3"
	SchemeIPFS   = "ipfs"
)

const (
	prefixBlake3 = SchemeBlake3 + ":"
	prefixIPFS   = SchemeIPFS + "://"
)

// Locator is a parsed blob locator.
//
//	b3:<64 lowercase hex>   local content address (BLAKE3-256)
//	ipfs://<cid>            pinned IPFS content
type Locator struct {
	Scheme string
	ID     string
}

// ParseLocator parses s into a Locator.
func ParseLocator(s string) (Locator, error) {
	switch {
	case strings.HasPrefix(s, prefixBlake3):
		id := strings.ToLower(s[len(prefixBlake3):])
		b, err := hex.DecodeString(id)
		if err != nil || len(b) != blake3Size {
			return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, s)
		}
		return Locator{Scheme: SchemeBlake3, ID: id}, nil

	case strings.HasPrefix(s, prefixIPFS):
		cid := s[len(prefixIPFS):]
		if !validCID(cid) {
			return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, s)
		}
		return Locator{Scheme: SchemeIPFS, ID: cid}, nil
	}
	return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, s)
}

// String returns the canonical text form.
func (l Locator) String() string {
	switch l.Scheme {
	case SchemeBlake3:
		return prefixBlake3 + l.ID
	case SchemeIPFS:
		return prefixIPFS + l.ID
	default:
		return l.Scheme + ":" + l.ID
	}
}

// IPFSLocator returns the locator string for cid.
func IPFSLocator(cid string) string { return prefixIPFS + cid }

const blake3Size = 32

// blake3Locator returns the b3 locator of data.
func blake3Locator(data []byte) Locator {
	sum := blake3.Sum256(data)
	return Locator{Scheme: SchemeBlake3, ID: hex.EncodeToString(sum[:])}
}

// validCID accepts base58 (CIDv0) and base32/base36 (CIDv1) alphabets.
func validCID(cid string) bool {
	if len(cid) < 8 || len(cid) > 128 {
		return false
	}
	for _, c := range cid {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}

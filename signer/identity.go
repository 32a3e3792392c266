package signer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/script"
)

// HashLen is the length of a public-key hash (HASH160).
const HashLen = 20

// Network selects the address encoding of an identity.
type Network int

const (
	MainNet Network = iota
	TestNet
)

// ParseNetwork maps a configured network name to a Network. Regtest shares
// the testnet address prefix.
func ParseNetwork(name string) (Network, error) {
	switch strings.ToLower(name) {
	case "mainnet", "main", "":
		return MainNet, nil
	case "testnet", "test", "regtest":
		return TestNet, nil
	default:
		return MainNet, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
	}
}

func (n Network) String() string {
	if n == TestNet {
		return "testnet"
	}
	return "mainnet"
}

// Identity is a signer identity: the HASH160 of a compressed public key. An
// uncompressed key and its compressed form are the same identity. Two identities
// are equal when their hashes match, regardless of the text form they were
// parsed from.
type Identity struct {
	hash    [HashLen]byte
	network Network
}

// IdentityFromPublicKey returns the identity of a compressed public key.
func IdentityFromPublicKey(pub *ec.PublicKey, net Network) (Identity, error) {
	if pub == nil {
		return Identity{}, fmt.Errorf("%w: nil public key", ErrInvalidIdentity)
	}
	return identityFromKeyBytes(pub.Compressed(), net), nil
}

// ParsePublicKey parses a compressed or uncompressed secp256k1 public key and
// rejects points that are not on the curve.
func ParsePublicKey(b []byte) (*ec.PublicKey, error) {
	pub, err := ec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	if !pub.Validate() {
		return nil, fmt.Errorf("%w: public key is not on the curve", ErrInvalidIdentity)
	}
	return pub, nil
}

// IdentityFromHash wraps a 20-byte public-key hash.
func IdentityFromHash(hash []byte, net Network) (Identity, error) {
	if len(hash) != HashLen {
		return Identity{}, fmt.Errorf("%w: hash must be %d bytes, got %d", ErrInvalidIdentity, HashLen, len(hash))
	}
	var id Identity
	copy(id.hash[:], hash)
	id.network = net
	return id, nil
}

func identityFromKeyBytes(serialized []byte, net Network) Identity {
	var id Identity
	copy(id.hash[:], bsvhash.Hash160(serialized))
	id.network = net
	return id
}

// ParseIdentity accepts any of the text forms of an identity:
//
//	P2PKH address          1BoatSLRHtKNngkdXEeobR76b53LETtpyT
//	public key (33/65 B)   02a1...  or 0x02A1...
//	public-key hash (20 B) 0x751e76e8199196d454941c45d1b3a323f1433bd6
//
// Hex forms are case-insensitive. An address carries its own network; hex
// forms are tagged MainNet.
func ParseIdentity(s string) (Identity, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}

	if b, ok := decodeHex(raw); ok {
		switch len(b) {
		case HashLen:
			return IdentityFromHash(b, MainNet)
		case 33, 65:
			pub, err := ParsePublicKey(b)
			if err != nil {
				return Identity{}, err
			}
			return IdentityFromPublicKey(pub, MainNet)
		}
	}

	addr, err := script.NewAddressFromString(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	net := MainNet
	if raw[0] != '1' {
		net = TestNet
	}
	return IdentityFromHash(addr.PublicKeyHash, net)
}

// decodeHex decodes an optionally 0x-prefixed hex string of either case.
func decodeHex(s string) ([]byte, bool) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if len(s) == 0 || len(s)%2 != 0 {
		return nil, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Hash returns a copy of the public-key hash.
func (i Identity) Hash() []byte {
	out := make([]byte, HashLen)
	copy(out, i.hash[:])
	return out
}

// Network returns the address network the identity was created for.
func (i Identity) Network() Network { return i.network }

// IsZero reports whether i is the zero Identity.
func (i Identity) IsZero() bool {
	return i.hash == [HashLen]byte{}
}

// Equal compares public-key hashes. The network is ignored.
func (i Identity) Equal(other Identity) bool {
	return bytes.Equal(i.hash[:], other.hash[:])
}

// Address returns the P2PKH address, or "" for the zero identity.
func (i Identity) Address() string {
	if i.IsZero() {
		return ""
	}
	addr, err := script.NewAddressFromPublicKeyHash(i.hash[:], i.network == MainNet)
	if err != nil {
		return ""
	}
	return addr.AddressString
}

// String returns the P2PKH address.
func (i Identity) String() string {
	return i.Address()
}

// HashHex returns the 0x-prefixed lowercase hex of the public-key hash.
func (i Identity) HashHex() string {
	return "0x" + hex.EncodeToString(i.hash[:])
}

package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/docnotary-go/signer"
)

const (
	// BIP44 path constants.
	PurposeBIP44    = 44
	CoinTypeBSV     = 236
	IdentityChain   = 0
	DefaultAccount  = 0
	DefaultKeyIndex = 0

	// BIP32 hardened offset.
	Hardened = 0x80000000
)

// Wallet derives signing identities from a BIP39 seed.
//
// Identity keys live at m/44'/236'/{account}'/0/{index}.
type Wallet struct {
	masterKey *bip32.ExtendedKey
	network   signer.Network
}

// NewWallet creates a Wallet from a BIP39 seed.
func NewWallet(seed []byte, network signer.Network) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}

	params := &chaincfg.MainNet
	if network == signer.TestNet {
		params = &chaincfg.TestNet
	}

	masterKey, err := bip32.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return &Wallet{masterKey: masterKey, network: network}, nil
}

// Network returns the address network of derived identities.
func (w *Wallet) Network() signer.Network {
	return w.network
}

// IdentityPath returns the derivation path of an identity key.
func IdentityPath(account, index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", PurposeBIP44, CoinTypeBSV, account, IdentityChain, index)
}

// DeriveSigner derives the identity key at m/44'/236'/account'/0/index.
func (w *Wallet) DeriveSigner(account, index uint32) (*signer.KeySigner, error) {
	if account >= Hardened {
		return nil, fmt.Errorf("%w: account %d exceeds hardened boundary", ErrIndexOutOfRange, account)
	}
	if index >= Hardened {
		return nil, fmt.Errorf("%w: index %d exceeds hardened boundary", ErrIndexOutOfRange, index)
	}

	key := w.masterKey
	for _, step := range []uint32{
		PurposeBIP44 + Hardened,
		CoinTypeBSV + Hardened,
		account + Hardened,
		IdentityChain,
		index,
	} {
		next, err := key.Child(step)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDerivationFailed, IdentityPath(account, index), err)
		}
		key = next
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}

	return signer.NewKeySigner(privKey, w.network)
}

// DefaultSigner derives the identity at m/44'/236'/0'/0/0.
func (w *Wallet) DefaultSigner() (*signer.KeySigner, error) {
	return w.DeriveSigner(DefaultAccount, DefaultKeyIndex)
}

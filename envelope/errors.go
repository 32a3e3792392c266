package envelope

import "errors"

var (
	// ErrAuthenticationFailed is returned for every decryption failure:
	// wrong password, wrong signer, truncated or tampered envelope.
	ErrAuthenticationFailed = errors.New("envelope: wrong password or corrupted file")

	// ErrKeyDerivation indicates the key could not be derived, for example
	// because the signer refused or returned an empty signature.
	ErrKeyDerivation = errors.New("envelope: key derivation failed")

	// ErrRandomSource indicates the CSPRNG failed to produce salt or iv.
	ErrRandomSource = errors.New("envelope: random source failed")
)

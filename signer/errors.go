package signer

import "errors"

var (
	// ErrSigningFailed indicates the signing key is missing or signing failed.
	ErrSigningFailed = errors.New("signer: signing failed")

	// ErrInvalidSignature indicates a signature is malformed or no key can be
	// recovered from it.
	ErrInvalidSignature = errors.New("signer: invalid signature")

	// ErrInvalidIdentity indicates a string is not an address, public key or
	// public-key hash.
	ErrInvalidIdentity = errors.New("signer: invalid identity")

	// ErrInvalidNetwork indicates an unknown network name.
	ErrInvalidNetwork = errors.New("signer: invalid network")
)

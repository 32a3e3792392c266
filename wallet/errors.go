package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrIndexOutOfRange indicates an account or key index is not below 2^31.
	ErrIndexOutOfRange = errors.New("wallet: derivation index out of range")

	// ErrDecryptionFailed indicates wrong password or corrupted key file.
	ErrDecryptionFailed = errors.New("wallet: key file decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates seed checksum verification failed after decryption.
	ErrChecksumMismatch = errors.New("wallet: seed checksum mismatch")

	// ErrInvalidSeed indicates the seed is empty.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrKeyFileExists indicates an identity key file is already present.
	ErrKeyFileExists = errors.New("wallet: key file already exists")

	// ErrKeyFileNotFound indicates no identity key file exists in the data directory.
	ErrKeyFileNotFound = errors.New("wallet: key file not found")

	// ErrKeyFileIO indicates the key file could not be read or written.
	ErrKeyFileIO = errors.New("wallet: key file I/O failure")
)

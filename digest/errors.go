package digest

import "errors"

var (
	// ErrHashing indicates the input could not be read while hashing.
	ErrHashing = errors.New("digest: hashing failed")

	// ErrInvalidDigest indicates a digest is not 32 bytes or not valid hex.
	ErrInvalidDigest = errors.New("digest: invalid digest")
)

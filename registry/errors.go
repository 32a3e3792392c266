package registry

import "errors"

var (
	// ErrAlreadyRegistered indicates a record for the digest already exists.
	ErrAlreadyRegistered = errors.New("registry: document already registered")

	// ErrNotFound indicates no record exists for the digest. Ledger.Get
	// reports this as a normal (nil, false, nil) result instead.
	ErrNotFound = errors.New("registry: document not found")

	// ErrInvalidRequest indicates a store request is missing required fields.
	ErrInvalidRequest = errors.New("registry: invalid request")

	// ErrUnavailable indicates a transient failure reaching the ledger. It is
	// the only retryable registry error.
	ErrUnavailable = errors.New("registry: ledger unavailable")

	// ErrStorage indicates a local backend failed to read or write.
	ErrStorage = errors.New("registry: storage failure")

	// ErrCorruptRecord indicates a persisted record could not be decoded.
	ErrCorruptRecord = errors.New("registry: corrupt record")
)

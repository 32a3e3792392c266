package authenticity

import "errors"

var (
	// ErrUnresolvableIdentity indicates the claimed identity could not be
	// turned into a public-key hash.
	ErrUnresolvableIdentity = errors.New("authenticity: cannot resolve claimed identity")

	// ErrNoRecord indicates a check was requested without a record.
	ErrNoRecord = errors.New("authenticity: no record")

	// ErrUnknownOutcome indicates an unrecognized outcome name.
	ErrUnknownOutcome = errors.New("authenticity: unknown outcome")
)

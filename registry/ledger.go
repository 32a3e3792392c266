package registry

import (
	"context"

	"github.com/bitfsorg/docnotary-go/digest"
)

// Ledger is the registry boundary used by the notary pipeline. It is
// implemented locally by Registry and remotely by registryapi.Client.
type Ledger interface {
	// Store creates the record for req.Digest. It fails with
	// ErrAlreadyRegistered when a record already exists and leaves the
	// existing record untouched.
	Store(ctx context.Context, req StoreRequest) (*Receipt, error)

	// Get returns the record for d. A missing record is (nil, false, nil).
	Get(ctx context.Context, d digest.Digest) (*Record, bool, error)

	// Verify reports whether a record for d exists.
	Verify(ctx context.Context, d digest.Digest) (bool, error)

	// List returns the records owned by owner, oldest first.
	List(ctx context.Context, owner string) ([]*Record, error)
}

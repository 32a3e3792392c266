// Package registry is the append-only document ledger: digest -> owner,
// locator, timestamp and optional signature. Records are immutable; the first
// store of a digest wins.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/logger"
	"github.com/bitfsorg/docnotary-go/signer"
)

// Registry implements Ledger over a Store.
type Registry struct {
	store   Store
	network signer.Network
	now     func() time.Time
	log     *logger.Logger
}

// Compile-time interface check.
var _ Ledger = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) { r.log = logger.OrNop(l).Named("registry") }
}

// WithNetwork selects the address encoding used for owners.
func WithNetwork(net signer.Network) Option {
	return func(r *Registry) { r.network = net }
}

// New creates a Registry backed by store.
func New(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:   store,
		network: signer.MainNet,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes the underlying store.
func (r *Registry) Close() error { return r.store.Close() }

// CanonicalOwner parses owner as an identity and returns its address on the
// registry's network, so every text form of one identity lists together.
func (r *Registry) CanonicalOwner(owner string) (string, error) {
	id, err := signer.ParseIdentity(owner)
	if err != nil {
		return "", fmt.Errorf("%w: owner: %w", ErrInvalidRequest, err)
	}
	id, err = signer.IdentityFromHash(id.Hash(), r.network)
	if err != nil {
		return "", fmt.Errorf("%w: owner: %w", ErrInvalidRequest, err)
	}
	return id.Address(), nil
}

// Store records req. The signature is stored as supplied and not verified.
func (r *Registry) Store(ctx context.Context, req StoreRequest) (*Receipt, error) {
	if req.Digest.IsZero() {
		return nil, fmt.Errorf("%w: zero digest", ErrInvalidRequest)
	}
	owner, err := r.CanonicalOwner(req.Owner)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Digest:    req.Digest,
		Owner:     owner,
		Locator:   req.Locator,
		Timestamp: r.now().UTC().Truncate(time.Second),
		Signature: req.Signature.clone(),
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		ev := r.log.Warn()
		if errors.Is(err, ErrAlreadyRegistered) {
			ev = r.log.Info()
		}
		ev.Err(err).Str("digest", req.Digest.String()).Msg("store rejected")
		return nil, err
	}

	r.log.Info().
		Str("digest", rec.Digest.String()).
		Str("owner", rec.Owner).
		Str("locator", rec.Locator).
		Bool("signed", rec.Signature.Present).
		Msg("document registered")
	return rec.Receipt(), nil
}

// Get returns the record for d, or (nil, false, nil) when none exists.
func (r *Registry) Get(ctx context.Context, d digest.Digest) (*Record, bool, error) {
	rec, err := r.store.Lookup(ctx, d)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Verify reports whether d is registered.
func (r *Registry) Verify(ctx context.Context, d digest.Digest) (bool, error) {
	return r.store.Exists(ctx, d)
}

// List returns owner's records, oldest first. Owner may be any identity form.
func (r *Registry) List(ctx context.Context, owner string) ([]*Record, error) {
	canonical, err := r.CanonicalOwner(owner)
	if err != nil {
		return nil, err
	}
	return r.store.ListByOwner(ctx, canonical)
}

// Package authenticity decides whether a registered document's signature was
// produced by a claimed identity.
package authenticity

import (
	"context"
	"fmt"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/registry"
	"github.com/bitfsorg/docnotary-go/signer"
)

// Outcome is the result of an authenticity check.
type Outcome int

const (
	// Authentic: the signature recovers to the claimed identity.
	Authentic Outcome = iota + 1
	// SignatureMismatch: the signature recovers to someone else, or to no one.
	SignatureMismatch
	// NoSignaturePresent: the record carries no signature.
	NoSignaturePresent
)

func (o Outcome) String() string {
	switch o {
	case Authentic:
		return "authentic"
	case SignatureMismatch:
		return "signature_mismatch"
	case NoSignaturePresent:
		return "no_signature"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, c := range []Outcome{Authentic, SignatureMismatch, NoSignaturePresent} {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownOutcome, text)
}

// IdentityResolver turns a claimed identity string into an Identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, claimed string) (signer.Identity, error)
}

// ResolverFunc adapts a function to IdentityResolver.
type ResolverFunc func(ctx context.Context, claimed string) (signer.Identity, error)

func (f ResolverFunc) Resolve(ctx context.Context, claimed string) (signer.Identity, error) {
	return f(ctx, claimed)
}

// ParseResolver resolves only the literal identity forms accepted by
// signer.ParseIdentity.
var ParseResolver IdentityResolver = ResolverFunc(func(_ context.Context, claimed string) (signer.Identity, error) {
	return signer.ParseIdentity(claimed)
})

// Checker performs authenticity checks.
type Checker struct {
	Recoverer signer.Recoverer
	Resolver  IdentityResolver
}

// NewChecker returns a Checker using Bitcoin Signed Message recovery and
// resolver. A nil resolver means ParseResolver.
func NewChecker(resolver IdentityResolver) *Checker {
	if resolver == nil {
		resolver = ParseResolver
	}
	return &Checker{Recoverer: signer.BSM{}, Resolver: resolver}
}

// Check decides whether rec's signature over d was produced by claimed.
// It fails only when the claim cannot be resolved or rec is nil; a bad
// signature is an Outcome, not an error.
func (c *Checker) Check(ctx context.Context, d digest.Digest, rec *registry.Record, claimed string) (Outcome, error) {
	if rec == nil {
		return 0, ErrNoRecord
	}
	if !rec.Signature.Present {
		return NoSignaturePresent, nil
	}

	want, err := c.resolver().Resolve(ctx, claimed)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnresolvableIdentity, err)
	}

	got, err := signer.RecoverDigest(c.recoverer(), d, rec.Signature.Bytes)
	if err != nil {
		return SignatureMismatch, nil
	}
	if !got.Equal(want) {
		return SignatureMismatch, nil
	}
	return Authentic, nil
}

// CheckRecordOwner checks rec's signature against the owner stored in rec.
func (c *Checker) CheckRecordOwner(ctx context.Context, rec *registry.Record) (Outcome, error) {
	if rec == nil {
		return 0, ErrNoRecord
	}
	return c.Check(ctx, rec.Digest, rec, rec.Owner)
}

func (c *Checker) recoverer() signer.Recoverer {
	if c.Recoverer == nil {
		return signer.BSM{}
	}
	return c.Recoverer
}

func (c *Checker) resolver() IdentityResolver {
	if c.Resolver == nil {
		return ParseResolver
	}
	return c.Resolver
}

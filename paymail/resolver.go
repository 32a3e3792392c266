// Package paymail resolves claimed identities that are names rather than
// keys: paymail handles (alias@domain, via bsvalias PKI) and bare domains
// (via a _docnotary TXT binding).
package paymail

import (
	"context"
	"fmt"

	"github.com/bitfsorg/docnotary-go/authenticity"
	"github.com/bitfsorg/docnotary-go/signer"
)

// Resolver implements authenticity.IdentityResolver. Literal identities
// (address, public key, key hash) are parsed locally; handles go to the
// network.
type Resolver struct {
	Client  *Client
	DNS     DNSResolver
	Network signer.Network
}

// Compile-time interface check.
var _ authenticity.IdentityResolver = (*Resolver)(nil)

// NewResolver builds a Resolver. A nil dns uses DefaultDNSResolver for both
// the TXT bindings and the client's SRV discovery.
func NewResolver(dns DNSResolver, net signer.Network, opts ...ClientOption) *Resolver {
	if dns == nil {
		dns = DefaultDNSResolver
	}
	opts = append([]ClientOption{WithDNSResolver(dns)}, opts...)
	return &Resolver{Client: NewClient(opts...), DNS: dns, Network: net}
}

// Resolve turns claimed into an identity.
func (r *Resolver) Resolve(ctx context.Context, claimed string) (signer.Identity, error) {
	if id, err := signer.ParseIdentity(claimed); err == nil {
		return id, nil
	}

	h, err := ParseHandle(claimed)
	if err != nil {
		return signer.Identity{}, err
	}

	switch h.Kind {
	case KindPaymail:
		pub, err := r.Client.ResolvePKI(ctx, h.Alias, h.Domain)
		if err != nil {
			return signer.Identity{}, err
		}
		return signer.IdentityFromPublicKey(pub, r.Network)
	case KindDomain:
		return ResolveDomainBinding(ctx, h.Domain, r.DNS)
	default:
		return signer.Identity{}, fmt.Errorf("%w: %q", ErrInvalidHandle, claimed)
	}
}

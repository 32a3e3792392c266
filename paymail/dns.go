package paymail

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/bitfsorg/docnotary-go/signer"
)

// DNSResolver defines the DNS lookups used for identity resolution.
// This allows tests to mock DNS resolution.
type DNSResolver interface {
	// LookupSRV looks up SRV records for the given service, proto, and name.
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)

	// LookupTXT looks up TXT records for the given name.
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// systemDNSResolver wraps net.DefaultResolver.
type systemDNSResolver struct{}

func (systemDNSResolver) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	return net.DefaultResolver.LookupSRV(ctx, service, proto, name)
}

func (systemDNSResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return net.DefaultResolver.LookupTXT(ctx, name)
}

// DefaultDNSResolver is the system resolver. It performs no DNSSEC checks;
// use DNSSECResolver where bindings must be authenticated.
var DefaultDNSResolver DNSResolver = systemDNSResolver{}

// SRVPaymail is the paymail service label: _bsvalias._tcp.{domain}.
const SRVPaymail = "bsvalias"

// BindingPrefix starts the TXT record that binds a domain to an identity:
//
//	_docnotary.example.com. TXT "docnotary=1BoatSLRHtKNngkdXEeobR76b53LETtpyT"
const (
	BindingLabel  = "_docnotary"
	BindingPrefix = "docnotary="
)

// ResolveEndpoints resolves SRV records for a domain.
// Returns endpoint addresses (host:port) sorted by priority then weight.
func ResolveEndpoints(ctx context.Context, domain, service string, resolver DNSResolver) ([]string, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrDNSLookupFailed)
	}
	if service == "" {
		return nil, fmt.Errorf("%w: empty service", ErrDNSLookupFailed)
	}

	_, addrs, err := resolver.LookupSRV(ctx, service, "tcp", domain)
	if err != nil {
		return nil, fmt.Errorf("%w: SRV lookup for _%s._tcp.%s: %w", ErrDNSLookupFailed, service, domain, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no SRV records for _%s._tcp.%s", ErrNoEndpoints, service, domain)
	}

	// Priority ascending, then weight descending.
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Priority != addrs[j].Priority {
			return addrs[i].Priority < addrs[j].Priority
		}
		return addrs[i].Weight > addrs[j].Weight
	})

	endpoints := make([]string, len(addrs))
	for i, srv := range addrs {
		host := strings.TrimSuffix(srv.Target, ".")
		endpoints[i] = net.JoinHostPort(host, fmt.Sprint(srv.Port))
	}
	return endpoints, nil
}

// ResolveDomainBinding looks up _docnotary.{domain} TXT and returns the
// identity in the first docnotary= record. The value may be any form
// accepted by signer.ParseIdentity.
func ResolveDomainBinding(ctx context.Context, domain string, resolver DNSResolver) (signer.Identity, error) {
	if domain == "" {
		return signer.Identity{}, fmt.Errorf("%w: empty domain", ErrDNSLookupFailed)
	}

	name := BindingLabel + "." + domain
	txts, err := resolver.LookupTXT(ctx, name)
	if err != nil {
		return signer.Identity{}, fmt.Errorf("%w: TXT lookup for %s: %w", ErrDNSLookupFailed, name, err)
	}

	for _, txt := range txts {
		txt = strings.TrimSpace(txt)
		if !strings.HasPrefix(txt, BindingPrefix) {
			continue
		}
		id, err := signer.ParseIdentity(strings.TrimPrefix(txt, BindingPrefix))
		if err != nil {
			return signer.Identity{}, fmt.Errorf("%w: %s: %w", ErrInvalidPubKey, name, err)
		}
		return id, nil
	}
	return signer.Identity{}, fmt.Errorf("%w: %s", ErrNoBinding, name)
}

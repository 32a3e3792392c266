package paymail

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// HandleKind distinguishes the two resolvable claim forms.
type HandleKind int

const (
	// KindPaymail is alias@domain.
	KindPaymail HandleKind = iota + 1
	// KindDomain is a bare domain bound through a TXT record.
	KindDomain
)

// Handle is a parsed claimed identity that needs network resolution.
type Handle struct {
	Kind   HandleKind
	Alias  string // empty for KindDomain
	Domain string // lowercase, no trailing dot
}

// ParseHandle parses "alias@domain" or "domain". A leading "$" on a paymail
// (the HandCash style) is accepted.
func ParseHandle(s string) (Handle, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Handle{}, fmt.Errorf("%w: empty", ErrInvalidHandle)
	}

	alias, domain, isPaymail := strings.Cut(raw, "@")
	if !isPaymail {
		domain = raw
	}
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if !validDomain(domain) {
		return Handle{}, fmt.Errorf("%w: bad domain %q", ErrInvalidHandle, domain)
	}

	if !isPaymail {
		return Handle{Kind: KindDomain, Domain: domain}, nil
	}

	alias = strings.ToLower(strings.TrimPrefix(alias, "$"))
	if alias == "" || strings.ContainsAny(alias, "@/?#{} \t") {
		return Handle{}, fmt.Errorf("%w: bad alias %q", ErrInvalidHandle, alias)
	}
	return Handle{Kind: KindPaymail, Alias: alias, Domain: domain}, nil
}

// String returns the canonical form.
func (h Handle) String() string {
	if h.Kind == KindPaymail {
		return h.Alias + "@" + h.Domain
	}
	return h.Domain
}

// validDomain requires at least two labels of letters, digits and hyphens.
func validDomain(domain string) bool {
	if _, ok := dns.IsDomainName(domain); !ok {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" || l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
		for _, c := range l {
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
				return false
			}
		}
	}
	return true
}

package paymail

import "errors"

var (
	// ErrInvalidHandle indicates a claim that is neither alias@domain nor a
	// domain name.
	ErrInvalidHandle = errors.New("paymail: invalid handle")

	// ErrDNSLookupFailed indicates a DNS SRV/TXT lookup failed.
	ErrDNSLookupFailed = errors.New("paymail: DNS lookup failed")

	// ErrDNSSECValidationFailed indicates the upstream resolver did not
	// authenticate the answer (AD flag clear).
	ErrDNSSECValidationFailed = errors.New("paymail: DNSSEC validation failed")

	// ErrPaymailDiscovery indicates .well-known/bsvalias fetch failed.
	ErrPaymailDiscovery = errors.New("paymail: capability discovery failed")

	// ErrPKIResolution indicates the Paymail PKI endpoint returned an error.
	ErrPKIResolution = errors.New("paymail: PKI resolution failed")

	// ErrNoEndpoints indicates no SRV records were found for the domain.
	ErrNoEndpoints = errors.New("paymail: no endpoints found")

	// ErrInvalidPubKey indicates a public key is not a valid secp256k1 key.
	ErrInvalidPubKey = errors.New("paymail: invalid public key")

	// ErrNoBinding indicates a domain publishes no docnotary= TXT record.
	ErrNoBinding = errors.New("paymail: no identity binding for domain")
)

package paymail

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/go-resty/resty/v2"
)

// Capabilities holds discovered Paymail server capabilities.
type Capabilities struct {
	PKI           string // URL template for public key infrastructure
	PublicProfile string // URL template for profile info
	VerifyPubKey  string // URL template for key verification
}

// PKIResponse holds the response from a Paymail PKI endpoint.
type PKIResponse struct {
	BSVAlias string `json:"bsvalias"`
	Handle   string `json:"handle"`
	PubKey   string `json:"pubkey"` // hex-encoded compressed public key
}

// wellKnownResponse is the JSON structure of .well-known/bsvalias.
type wellKnownResponse struct {
	BSVAlias     string         `json:"bsvalias"`
	Capabilities map[string]any `json:"capabilities"`
}

// Known Paymail capability keys.
const (
	capPKI           = "pki"
	capPKIFull       = "0c4339ef99c2"
	capPublicProfile = "f12f968c92d6"
	capVerifyPubKey  = "a9f510c16bde"
)

// maxResponseSize bounds discovery and PKI responses.
const maxResponseSize = 64 << 10

// Client talks to paymail servers.
type Client struct {
	http   *resty.Client
	dns    DNSResolver
	scheme string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDNSResolver sets the resolver used for SRV discovery.
func WithDNSResolver(r DNSResolver) ClientOption {
	return func(c *Client) { c.dns = r }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = resty.NewWithClient(hc) }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithPlainHTTP makes discovery use http:// instead of https://. Intended for
// local testing only.
func WithPlainHTTP() ClientOption {
	return func(c *Client) { c.scheme = "http" }
}

// NewClient creates a paymail client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:   resty.New().SetTimeout(15 * time.Second),
		dns:    DefaultDNSResolver,
		scheme: "https",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// serviceHost picks the paymail host for domain: the best SRV target when
// one is published, otherwise the domain itself.
func (c *Client) serviceHost(ctx context.Context, domain string) string {
	endpoints, err := ResolveEndpoints(ctx, domain, SRVPaymail, c.dns)
	if err != nil || len(endpoints) == 0 {
		return domain
	}
	host, port, err := net.SplitHostPort(endpoints[0])
	if err != nil {
		return domain
	}
	if port == "443" && c.scheme == "https" {
		return host
	}
	return endpoints[0]
}

// DiscoverCapabilities fetches .well-known/bsvalias for domain.
func (c *Client) DiscoverCapabilities(ctx context.Context, domain string) (*Capabilities, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrPaymailDiscovery)
	}

	u := c.scheme + "://" + c.serviceHost(ctx, domain) + "/.well-known/bsvalias"
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymailDiscovery, err)
	}

	var wk wellKnownResponse
	if err := json.Unmarshal(body, &wk); err != nil {
		return nil, fmt.Errorf("%w: parsing JSON: %w", ErrPaymailDiscovery, err)
	}

	caps := &Capabilities{}
	for key, val := range wk.Capabilities {
		urlStr, ok := val.(string)
		if !ok {
			continue
		}
		switch {
		case key == capPKI || key == capPKIFull:
			caps.PKI = urlStr
		case key == capPublicProfile:
			caps.PublicProfile = urlStr
		case key == capVerifyPubKey:
			caps.VerifyPubKey = urlStr
		}
	}
	return caps, nil
}

// ResolvePKI resolves alias@domain to its public key.
func (c *Client) ResolvePKI(ctx context.Context, alias, domain string) (*ec.PublicKey, error) {
	if alias == "" || domain == "" {
		return nil, fmt.Errorf("%w: alias and domain are required", ErrPKIResolution)
	}

	caps, err := c.DiscoverCapabilities(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPKIResolution, err)
	}
	if caps.PKI == "" {
		return nil, fmt.Errorf("%w: no PKI capability found for %s", ErrPKIResolution, domain)
	}

	pkiURL := strings.ReplaceAll(caps.PKI, "{alias}", url.PathEscape(alias))
	pkiURL = strings.ReplaceAll(pkiURL, "{domain.tld}", domain)
	if u, err := url.Parse(pkiURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("%w: bad PKI template %q", ErrPKIResolution, caps.PKI)
	}

	body, err := c.getJSON(ctx, pkiURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPKIResolution, err)
	}

	var pki PKIResponse
	if err := json.Unmarshal(body, &pki); err != nil {
		return nil, fmt.Errorf("%w: parsing PKI response: %w", ErrPKIResolution, err)
	}
	if pki.Handle != "" && !strings.EqualFold(pki.Handle, alias+"@"+domain) {
		return nil, fmt.Errorf("%w: response is for %q", ErrPKIResolution, pki.Handle)
	}
	if pki.PubKey == "" {
		return nil, fmt.Errorf("%w: empty public key in response", ErrPKIResolution)
	}

	raw, err := hex.DecodeString(pki.PubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex: %w", ErrInvalidPubKey, err)
	}
	if len(raw) != 33 {
		return nil, fmt.Errorf("%w: expected 33 bytes, got %d", ErrInvalidPubKey, len(raw))
	}
	pub, err := ec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPubKey, err)
	}
	if !pub.Validate() {
		return nil, fmt.Errorf("%w: not on the curve", ErrInvalidPubKey)
	}
	return pub, nil
}

func (c *Client) getJSON(ctx context.Context, u string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(u)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d", u, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("GET %s: response too large", u)
	}
	return body, nil
}

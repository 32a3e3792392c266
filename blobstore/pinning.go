package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Defaults for a Pinata-compatible pinning service.
const (
	DefaultPinningURL     = "https://api.pinata.cloud"
	DefaultGatewayURL     = "https://gateway.pinata.cloud"
	DefaultPinningTimeout = 60 * time.Second

	pinFilePath = "/pinning/pinFileToIPFS"
)

// PinningConfig configures a PinningStore.
type PinningConfig struct {
	APIURL     string
	GatewayURL string
	Token      string // bearer token (JWT) for the pinning API
	Timeout    time.Duration
	FileName   string // multipart file name; defaults to "envelope.bin"
	MaxSize    int    // largest blob accepted either way; defaults to MaxBlobSize
}

// PinningStore uploads blobs to a Pinata-compatible pinning service and
// fetches them back through an IPFS HTTP gateway.
type PinningStore struct {
	api      *resty.Client
	gateway  *resty.Client
	fileName string
	maxSize  int
}

// Compile-time interface check.
var _ Store = (*PinningStore)(nil)

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// NewPinningStore builds a PinningStore. Empty URLs fall back to the Pinata
// defaults.
func NewPinningStore(cfg PinningConfig) (*PinningStore, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultPinningURL
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultGatewayURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPinningTimeout
	}
	if cfg.FileName == "" {
		cfg.FileName = "envelope.bin"
	}
	if cfg.MaxSize <= 0 || cfg.MaxSize > MaxBlobSize {
		cfg.MaxSize = MaxBlobSize
	}
	for _, raw := range []string{cfg.APIURL, cfg.GatewayURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, raw)
		}
	}

	api := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		api.SetAuthToken(cfg.Token)
	}

	// The limit is enforced while reading, so an oversized gateway response
	// is never buffered whole.
	gateway := resty.New().
		SetBaseURL(strings.TrimRight(cfg.GatewayURL, "/")).
		SetTimeout(cfg.Timeout).
		SetResponseBodyLimit(cfg.MaxSize)

	return &PinningStore{api: api, gateway: gateway, fileName: cfg.FileName, maxSize: cfg.MaxSize}, nil
}

// Put pins data and returns an ipfs:// locator.
func (p *PinningStore) Put(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	if len(data) > p.maxSize {
		return "", ErrTooLarge
	}

	var out pinResponse
	resp, err := p.api.R().
		SetContext(ctx).
		SetFileReader("file", p.fileName, bytes.NewReader(data)).
		SetResult(&out).
		Post(pinFilePath)
	if err != nil {
		return "", mapTransportError(ctx, "pin", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return "", fmt.Errorf("pin: %w", err)
	}
	if !validCID(out.IpfsHash) {
		return "", fmt.Errorf("%w: pin response has no valid IpfsHash", ErrRejected)
	}
	return IPFSLocator(out.IpfsHash), nil
}

// Get fetches an ipfs:// locator through the gateway.
func (p *PinningStore) Get(ctx context.Context, locator string) ([]byte, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}
	if loc.Scheme != SchemeIPFS {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, loc.Scheme)
	}

	resp, err := p.gateway.R().
		SetContext(ctx).
		Get("/ipfs/" + loc.ID)
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, fmt.Errorf("fetch %s: %w", locator, ErrTooLarge)
	}
	if err != nil {
		return nil, mapTransportError(ctx, "fetch", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", locator, err)
	}

	data := resp.Body()
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch %s: %w: empty response", locator, ErrNotFound)
	}
	return data, nil
}

// mapTransportError classifies a failed request. Caller cancellation is
// returned as is; every other transport failure, including deadline expiry,
// is ErrUnavailable.
func mapTransportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return fmt.Errorf("%w: http %d: %s", ErrUnavailable, code, body)
	default:
		return fmt.Errorf("%w: http %d: %s", ErrRejected, code, body)
	}
}

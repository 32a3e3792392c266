package registryapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/registry"
)

// DefaultClientTimeout bounds each registry request.
const DefaultClientTimeout = 30 * time.Second

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a registry.Ledger backed by a remote registry server.
type Client struct {
	http *resty.Client
}

// Compile-time interface check.
var _ registry.Ledger = (*Client)(nil)

// NewClient creates a Client for the server at cfg.BaseURL.
func NewClient(cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("registryapi: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientTimeout
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}, nil
}

// Store registers req on the server.
func (c *Client) Store(ctx context.Context, req registry.StoreRequest) (*registry.Receipt, error) {
	var out ReceiptBody
	var errBody ErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(StoreRequestBody{
			Digest:    req.Digest,
			Locator:   req.Locator,
			Owner:     req.Owner,
			Signature: encodeSig(req.Signature),
		}).
		SetResult(&out).
		SetError(&errBody).
		Post("/v1/documents")
	if err != nil {
		return nil, transportError(ctx, "store", err)
	}
	if err := statusError(resp, errBody); err != nil {
		return nil, err
	}
	return bodyToReceipt(out), nil
}

// Get fetches the record for d. A 404 is reported as (nil, false, nil).
func (c *Client) Get(ctx context.Context, d digest.Digest) (*registry.Record, bool, error) {
	var out RecordBody
	var errBody ErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("digest", d.String()).
		SetResult(&out).
		SetError(&errBody).
		Get("/v1/documents/{digest}")
	if err != nil {
		return nil, false, transportError(ctx, "get", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, false, nil
	}
	if err := statusError(resp, errBody); err != nil {
		return nil, false, err
	}

	rec, err := bodyToRecord(out)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", registry.ErrCorruptRecord, err)
	}
	return rec, true, nil
}

// Verify reports whether d is registered on the server.
func (c *Client) Verify(ctx context.Context, d digest.Digest) (bool, error) {
	var out ExistsBody
	var errBody ErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("digest", d.String()).
		SetResult(&out).
		SetError(&errBody).
		Get("/v1/documents/{digest}/exists")
	if err != nil {
		return false, transportError(ctx, "verify", err)
	}
	if err := statusError(resp, errBody); err != nil {
		return false, err
	}
	return out.Registered, nil
}

// List returns the records owned by owner, oldest first.
func (c *Client) List(ctx context.Context, owner string) ([]*registry.Record, error) {
	var out ListBody
	var errBody ErrorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("owner", owner).
		SetResult(&out).
		SetError(&errBody).
		Get("/v1/owners/{owner}/documents")
	if err != nil {
		return nil, transportError(ctx, "list", err)
	}
	if err := statusError(resp, errBody); err != nil {
		return nil, err
	}

	recs := make([]*registry.Record, 0, len(out.Documents))
	for _, b := range out.Documents {
		rec, err := bodyToRecord(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", registry.ErrCorruptRecord, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// transportError maps a failed request to registry.ErrUnavailable unless the
// caller cancelled it.
func transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("registryapi: %s: %w", op, ctx.Err())
	}
	return fmt.Errorf("registryapi: %s: %w: %w", op, registry.ErrUnavailable, err)
}

func statusError(resp *resty.Response, body ErrorBody) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	msg := body.Error
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusConflict:
		return registry.ErrAlreadyRegistered
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", registry.ErrInvalidRequest, msg)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", registry.ErrNotFound, msg)
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: http %d: %s", registry.ErrUnavailable, code, msg)
	default:
		return fmt.Errorf("registryapi: unexpected status %d: %s", code, msg)
	}
}

// Package registryapi exposes a registry.Ledger over HTTP and provides the
// matching client.
//
//	POST /v1/documents                    store      201 | 400 | 409 | 503
//	GET  /v1/documents/{digest}           get        200 | 400 | 404
//	GET  /v1/documents/{digest}/exists    verify     200 | 400
//	GET  /v1/owners/{owner}/documents     list       200 | 400
//
// Signatures travel as base64 strings; an absent signature is JSON null.
package registryapi

import (
	"time"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/registry"
	"github.com/bitfsorg/docnotary-go/signer"
)

// Error codes carried in error bodies.
const (
	CodeAlreadyRegistered = "already_registered"
	CodeNotFound          = "not_found"
	CodeInvalidRequest    = "invalid_request"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

// StoreRequestBody is the JSON body of POST /v1/documents.
type StoreRequestBody struct {
	Digest    digest.Digest `json:"digest"`
	Locator   string        `json:"locator"`
	Owner     string        `json:"owner"`
	Signature *string       `json:"signature"`
}

// RecordBody is the JSON form of a registry.Record.
type RecordBody struct {
	Digest    digest.Digest `json:"digest"`
	Owner     string        `json:"owner"`
	Locator   string        `json:"locator"`
	Timestamp time.Time     `json:"timestamp"`
	Signature *string       `json:"signature"`
}

// ReceiptBody is the JSON form of a registry.Receipt.
type ReceiptBody struct {
	Digest    digest.Digest `json:"digest"`
	Owner     string        `json:"owner"`
	Locator   string        `json:"locator"`
	Timestamp time.Time     `json:"timestamp"`
}

// ExistsBody answers GET /v1/documents/{digest}/exists.
type ExistsBody struct {
	Digest     digest.Digest `json:"digest"`
	Registered bool          `json:"registered"`
}

// ListBody answers GET /v1/owners/{owner}/documents.
type ListBody struct {
	Owner     string       `json:"owner"`
	Documents []RecordBody `json:"documents"`
}

// ErrorBody is returned with every non-2xx status.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func encodeSig(s registry.Signature) *string {
	if !s.Present {
		return nil
	}
	text := signer.EncodeSignature(s.Bytes)
	return &text
}

func decodeSig(text *string) (registry.Signature, error) {
	if text == nil {
		return registry.NoSignature(), nil
	}
	if *text == "" {
		return registry.SignatureOf(nil), nil
	}
	b, err := signer.DecodeSignature(*text)
	if err != nil {
		return registry.Signature{}, err
	}
	return registry.SignatureOf(b), nil
}

func recordToBody(rec *registry.Record) RecordBody {
	return RecordBody{
		Digest:    rec.Digest,
		Owner:     rec.Owner,
		Locator:   rec.Locator,
		Timestamp: rec.Timestamp.UTC(),
		Signature: encodeSig(rec.Signature),
	}
}

func bodyToRecord(b RecordBody) (*registry.Record, error) {
	sig, err := decodeSig(b.Signature)
	if err != nil {
		return nil, err
	}
	return &registry.Record{
		Digest:    b.Digest,
		Owner:     b.Owner,
		Locator:   b.Locator,
		Timestamp: b.Timestamp.UTC(),
		Signature: sig,
	}, nil
}

func receiptToBody(r *registry.Receipt) ReceiptBody {
	return ReceiptBody{
		Digest:    r.Digest,
		Owner:     r.Owner,
		Locator:   r.Locator,
		Timestamp: r.Timestamp.UTC(),
	}
}

func bodyToReceipt(b ReceiptBody) *registry.Receipt {
	return &registry.Receipt{
		Digest:    b.Digest,
		Owner:     b.Owner,
		Locator:   b.Locator,
		Timestamp: b.Timestamp.UTC(),
	}
}

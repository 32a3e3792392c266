package blobstore

import "errors"

var (
	// ErrNotFound indicates no content exists for the locator.
	ErrNotFound = errors.New("blobstore: content not found")

	// ErrUnavailable indicates a transient failure (network error, timeout,
	// rate limit, server error). Callers may retry.
	ErrUnavailable = errors.New("blobstore: store unavailable")

	// ErrRejected indicates the remote service refused the request.
	ErrRejected = errors.New("blobstore: request rejected")

	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("blobstore: unauthorized")

	// ErrIntegrity indicates stored bytes no longer match their locator.
	ErrIntegrity = errors.New("blobstore: content does not match locator")

	// ErrInvalidLocator indicates a malformed locator string.
	ErrInvalidLocator = errors.New("blobstore: invalid locator")

	// ErrUnsupportedLocator indicates a well-formed locator this store
	// cannot serve.
	ErrUnsupportedLocator = errors.New("blobstore: unsupported locator scheme")

	// ErrEmptyContent indicates an attempt to store empty content.
	ErrEmptyContent = errors.New("blobstore: content is empty")

	// ErrTooLarge indicates content exceeds MaxBlobSize.
	ErrTooLarge = errors.New("blobstore: content exceeds maximum size")

	// ErrIOFailure indicates a local file read/write error.
	ErrIOFailure = errors.New("blobstore: I/O failure")

	// ErrInvalidEndpoint indicates a malformed service URL.
	ErrInvalidEndpoint = errors.New("blobstore: invalid endpoint URL")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("blobstore: invalid base directory")
)

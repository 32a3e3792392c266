package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfsorg/docnotary-go/logger"
)

// CachedStore puts blobs to a remote store and serves reads from a local
// FileStore first:
//
//  1. Local FileStore (content blobs and cached copies)
//  2. Remote store, caching the result locally
//
// Caching is best-effort; a failed local write never fails the call.
type CachedStore struct {
	Local  *FileStore
	Remote Store
	Log    *logger.Logger
}

// Compile-time interface check.
var _ Store = (*CachedStore)(nil)

// NewCachedStore layers local over remote.
func NewCachedStore(local *FileStore, remote Store, log *logger.Logger) *CachedStore {
	return &CachedStore{Local: local, Remote: remote, Log: logger.OrNop(log).Named("blobcache")}
}

// Put uploads data to the remote store and keeps a local copy.
func (c *CachedStore) Put(ctx context.Context, data []byte) (string, error) {
	if c.Remote == nil {
		return c.Local.Put(ctx, data)
	}

	locator, err := c.Remote.Put(ctx, data)
	if err != nil {
		return "", err
	}
	c.keep(ctx, locator, data)
	return locator, nil
}

// Get resolves locator from the local cache, then the remote store.
func (c *CachedStore) Get(ctx context.Context, locator string) ([]byte, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	if c.Local != nil {
		data, err := c.getLocal(ctx, loc)
		if err == nil {
			return data, nil
		}
		// Only fall through on a miss; other errors are real failures.
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("local cache: %w", err)
		}
	}

	if c.Remote == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}

	data, err := c.Remote.Get(ctx, locator)
	if err != nil {
		return nil, err
	}
	if loc.Scheme == SchemeBlake3 && blake3Locator(data).ID != loc.ID {
		return nil, fmt.Errorf("%w: remote %s", ErrIntegrity, locator)
	}
	c.keep(ctx, locator, data)
	return data, nil
}

func (c *CachedStore) getLocal(ctx context.Context, loc Locator) ([]byte, error) {
	if loc.Scheme == SchemeBlake3 {
		return c.Local.Get(ctx, loc.String())
	}
	return c.Local.GetCopy(ctx, loc.String())
}

func (c *CachedStore) keep(ctx context.Context, locator string, data []byte) {
	if c.Local == nil {
		return
	}

	var err error
	if loc, perr := ParseLocator(locator); perr == nil && loc.Scheme == SchemeBlake3 {
		_, err = c.Local.Put(ctx, data)
	} else {
		err = c.Local.PutCopy(ctx, locator, data)
	}
	if err != nil {
		logger.OrNop(c.Log).Warn().Err(err).Str("locator", locator).Msg("cache write failed")
	}
}

package blobstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"
)

// copiesDir holds cached copies of remote blobs, keyed by locator.
const copiesDir = "remote"

// FileStore is a content-addressed Store on the local filesystem.
// Blobs live at {baseDir}/{hex[:2]}/{hex}, where hex is the BLAKE3-256 of the
// content; the first two hex chars shard the directory.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-based store rooted at baseDir, creating the
// directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory.
func (fs *FileStore) BaseDir() string { return fs.baseDir }

// HexToPath converts a hex content key to its sharded path under baseDir.
func HexToPath(baseDir, hexKey string) string {
	return filepath.Join(baseDir, hexKey[:2], hexKey)
}

// Put stores data and returns its b3 locator. Storing the same bytes twice
// is a no-op returning the same locator.
func (fs *FileStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	if len(data) > MaxBlobSize {
		return "", ErrTooLarge
	}

	loc := blake3Locator(data)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := writeFileAtomic(HexToPath(fs.baseDir, loc.ID), data); err != nil {
		return "", err
	}
	return loc.String(), nil
}

// Get returns the blob for a b3 locator, re-hashing it before returning.
func (fs *FileStore) Get(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}
	if loc.Scheme != SchemeBlake3 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocator, loc.Scheme)
	}

	fs.mu.RLock()
	data, err := readFile(HexToPath(fs.baseDir, loc.ID))
	fs.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if blake3Locator(data).ID != loc.ID {
		return nil, fmt.Errorf("%w: %s", ErrIntegrity, locator)
	}
	return data, nil
}

// PutCopy caches data fetched from a remote locator.
func (fs *FileStore) PutCopy(ctx context.Context, locator string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyContent
	}
	if _, err := ParseLocator(locator); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return writeFileAtomic(fs.copyPath(locator), data)
}

// GetCopy returns the cached copy for a remote locator, or ErrNotFound.
func (fs *FileStore) GetCopy(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ParseLocator(locator); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return readFile(fs.copyPath(locator))
}

func (fs *FileStore) copyPath(locator string) string {
	sum := blake3.Sum256([]byte(locator))
	return HexToPath(filepath.Join(fs.baseDir, copiesDir), hex.EncodeToString(sum[:]))
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return data, nil
}

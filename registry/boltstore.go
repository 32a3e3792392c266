package registry

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/docnotary-go/digest"
)

var (
	bucketDocuments = []byte("documents")
	bucketOwners    = []byte("documents_owner")
)

// BoltStore persists records in a bbolt database. Records are keyed by digest
// and encoded as deterministic CBOR; a secondary bucket indexes them by owner.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrStorage, err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %w", ErrStorage, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocuments, bucketOwners} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// ownerKey is owner || 0x00 || digest.
func ownerKey(owner string, d digest.Digest) []byte {
	k := make([]byte, 0, len(owner)+1+digest.Size)
	k = append(k, owner...)
	k = append(k, 0)
	return append(k, d[:]...)
}

func ownerPrefix(owner string) []byte {
	return append([]byte(owner), 0)
}

// Insert stores rec inside a single write transaction so the existence
// check and the put cannot interleave with another writer.
func (s *BoltStore) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrInvalidRequest
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record: %w", ErrStorage, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		if docs.Get(rec.Digest[:]) != nil {
			return ErrAlreadyRegistered
		}
		if err := docs.Put(rec.Digest[:], data); err != nil {
			return fmt.Errorf("put record: %w", err)
		}
		if err := tx.Bucket(bucketOwners).Put(ownerKey(rec.Owner, rec.Digest), nil); err != nil {
			return fmt.Errorf("put owner index: %w", err)
		}
		return nil
	})
	if err == nil || err == ErrAlreadyRegistered {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func (s *BoltStore) Lookup(ctx context.Context, d digest.Digest) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get(d[:])
		if data == nil {
			return ErrNotFound
		}
		var err error
		rec, err = decodeRecord(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) Exists(ctx context.Context, d digest.Digest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketDocuments).Get(d[:]) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return found, nil
}

func (s *BoltStore) ListByOwner(ctx context.Context, owner string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*Record
	prefix := ownerPrefix(owner)
	err := s.db.View(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		c := tx.Bucket(bucketOwners).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			data := docs.Get(k[len(prefix):])
			if data == nil {
				return fmt.Errorf("%w: dangling owner index entry", ErrCorruptRecord)
			}
			rec, err := decodeRecord(data)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortRecords(out)
	return out, nil
}

package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/registry/migrations"
)

// SQLStore persists records in a SQLite database. The digest column is the
// primary key; duplicate inserts are rejected by the database itself.
type SQLStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Store = (*SQLStore)(nil)

// OpenSQLStore opens or creates the SQLite database at dbPath and applies the
// schema migrations.
func OpenSQLStore(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrStorage, err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %w", ErrStorage, err)
	}
	// SQLite permits one writer; a single connection keeps inserts serialized.
	db.SetMaxOpenConns(1)

	if err := migrations.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &SQLStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrInvalidRequest
	}

	var sig any
	if rec.Signature.Present {
		sig = append([]byte{}, rec.Signature.Bytes...)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (digest, owner, locator, created_at, signature)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(digest) DO NOTHING`,
		rec.Digest.Bytes(), rec.Owner, rec.Locator, rec.Timestamp.Unix(), sig)
	if err != nil {
		return classifySQLError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classifySQLError(err)
	}
	if n == 0 {
		return ErrAlreadyRegistered
	}
	return nil
}

func (s *SQLStore) Lookup(ctx context.Context, d digest.Digest) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT digest, owner, locator, created_at, signature
		 FROM documents WHERE digest = ?`, d.Bytes())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLStore) Exists(ctx context.Context, d digest.Digest) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE digest = ?`, d.Bytes()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classifySQLError(err)
	}
	return true, nil
}

func (s *SQLStore) ListByOwner(ctx context.Context, owner string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT digest, owner, locator, created_at, signature
		 FROM documents WHERE owner = ?
		 ORDER BY created_at, digest`, owner)
	if err != nil {
		return nil, classifySQLError(err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLError(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rawDigest []byte
		rec       Record
		createdAt int64
		sig       sql.Null[[]byte]
	)
	if err := row.Scan(&rawDigest, &rec.Owner, &rec.Locator, &createdAt, &sig); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, classifySQLError(err)
	}

	d, err := digest.FromBytes(rawDigest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	rec.Digest = d
	rec.Timestamp = time.Unix(createdAt, 0).UTC()
	if sig.Valid {
		rec.Signature = SignatureOf(sig.V)
	}
	return &rec, nil
}

// classifySQLError maps a primary key violation to ErrAlreadyRegistered, lock
// contention to ErrUnavailable and everything else, including other
// constraint failures, to ErrStorage. Context errors pass through unchanged.
func classifySQLError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		if serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return ErrAlreadyRegistered
		}
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

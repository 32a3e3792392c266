package registry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/logger"
	"github.com/bitfsorg/docnotary-go/signer"
)

// --- Helpers ---

var fixedNow = time.Date(2024, 5, 1, 12, 30, 45, 987654321, time.FixedZone("X", 3*3600))

func fixedClock() time.Time { return fixedNow }

func testIdentity(t *testing.T, b byte) signer.Identity {
	t.Helper()
	id, err := signer.IdentityFromHash(bytes.Repeat([]byte{b}, signer.HashLen), signer.MainNet)
	require.NoError(t, err)
	return id
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(NewMemStore(), WithClock(fixedClock), WithLogger(logger.Nop()))
}

type failingStore struct {
	*MemStore
	err error
}

func (f failingStore) Insert(context.Context, *Record) error { return f.err }
func (f failingStore) Lookup(context.Context, digest.Digest) (*Record, error) {
	return nil, f.err
}

// --- Store ---

func TestRegistry_StoreAndGet(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	owner := testIdentity(t, 0x11)
	d := digest.Sum([]byte("hello"))

	receipt, err := r.Store(ctx, StoreRequest{
		Digest:    d,
		Locator:   "ipfs://bafy",
		Owner:     owner.Address(),
		Signature: SignatureOf([]byte("sig")),
	})
	require.NoError(t, err)
	assert.Equal(t, d, receipt.Digest)
	assert.Equal(t, owner.Address(), receipt.Owner)
	assert.Equal(t, "ipfs://bafy", receipt.Locator)
	assert.True(t, time.Date(2024, 5, 1, 9, 30, 45, 0, time.UTC).Equal(receipt.Timestamp))
	assert.Equal(t, time.UTC, receipt.Timestamp.Location())

	rec, ok, err := r.Get(ctx, d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, receipt.Timestamp.Equal(rec.Timestamp))
	assert.Equal(t, []byte("sig"), rec.Signature.Bytes)
	assert.True(t, rec.Signature.Present)

	ok, err = r.Verify(ctx, d)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistry_GetMissingIsNotAnError(t *testing.T) {
	r := newTestRegistry(t)
	rec, ok, err := r.Get(context.Background(), digest.Sum([]byte("missing")))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rec)

	ok, err = r.Verify(context.Background(), digest.Sum([]byte("missing")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_SecondStoreFails(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	d := digest.Sum([]byte("hello"))
	a, b := testIdentity(t, 0x11), testIdentity(t, 0x22)

	_, err := r.Store(ctx, StoreRequest{Digest: d, Locator: "L1", Owner: a.Address()})
	require.NoError(t, err)

	_, err = r.Store(ctx, StoreRequest{Digest: d, Locator: "L2", Owner: b.Address()})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	rec, ok, err := r.Get(ctx, d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "L1", rec.Locator)
	assert.Equal(t, a.Address(), rec.Owner)
}

func TestRegistry_OwnerFormsAreCanonicalized(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	id := testIdentity(t, 0xab)

	for i, form := range []string{
		id.Address(),
		id.HashHex(),
		strings.ToUpper(id.HashHex()[2:]),
	} {
		d := digest.Sum([]byte{byte(i)})
		receipt, err := r.Store(ctx, StoreRequest{Digest: d, Owner: form})
		require.NoError(t, err)
		assert.Equal(t, id.Address(), receipt.Owner)
	}

	recs, err := r.List(ctx, id.HashHex())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestRegistry_TestnetOwnerEncoding(t *testing.T) {
	r := New(NewMemStore(), WithNetwork(signer.TestNet))
	id := testIdentity(t, 0x33)

	receipt, err := r.Store(context.Background(), StoreRequest{
		Digest: digest.Sum([]byte("x")),
		Owner:  id.Address(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, id.Address(), receipt.Owner)

	parsed, err := signer.ParseIdentity(receipt.Owner)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(id))
	assert.Equal(t, signer.TestNet, parsed.Network())
}

func TestRegistry_InvalidRequests(t *testing.T) {
	r := newTestRegistry(t)
	owner := testIdentity(t, 0x11).Address()

	tests := []struct {
		name string
		req  StoreRequest
	}{
		{"zero digest", StoreRequest{Owner: owner}},
		{"empty owner", StoreRequest{Digest: digest.Sum([]byte("a"))}},
		{"garbage owner", StoreRequest{Digest: digest.Sum([]byte("a")), Owner: "not an identity"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Store(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	_, err := r.List(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRegistry_EmptyLocatorAccepted(t *testing.T) {
	r := newTestRegistry(t)
	receipt, err := r.Store(context.Background(), StoreRequest{
		Digest: digest.Sum([]byte("a")),
		Owner:  testIdentity(t, 0x11).Address(),
	})
	require.NoError(t, err)
	assert.Equal(t, "", receipt.Locator)
}

func TestRegistry_StoreDoesNotAliasSignature(t *testing.T) {
	r := newTestRegistry(t)
	sig := []byte{1, 2, 3}
	req := StoreRequest{
		Digest:    digest.Sum([]byte("a")),
		Owner:     testIdentity(t, 0x11).Address(),
		Signature: Signature{Bytes: sig, Present: true},
	}
	_, err := r.Store(context.Background(), req)
	require.NoError(t, err)
	sig[0] = 9

	rec, _, err := r.Get(context.Background(), req.Digest)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, rec.Signature.Bytes)
}

func TestRegistry_BackendErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	r := New(failingStore{MemStore: NewMemStore(), err: boom})
	ctx := context.Background()

	_, err := r.Store(ctx, StoreRequest{Digest: digest.Sum([]byte("a")), Owner: testIdentity(t, 1).Address()})
	assert.ErrorIs(t, err, boom)

	_, ok, err := r.Get(ctx, digest.Sum([]byte("a")))
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestRegistry_ListOrder(t *testing.T) {
	now := time.Unix(1000, 0)
	r := New(NewMemStore(), WithClock(func() time.Time { return now }))
	ctx := context.Background()
	owner := testIdentity(t, 0x44).Address()

	for _, name := range []string{"first", "second", "third"} {
		_, err := r.Store(ctx, StoreRequest{Digest: digest.Sum([]byte(name)), Locator: name, Owner: owner})
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}

	recs, err := r.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "first", recs[0].Locator)
	assert.Equal(t, "second", recs[1].Locator)
	assert.Equal(t, "third", recs[2].Locator)
}

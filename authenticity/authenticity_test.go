package authenticity

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/registry"
	"github.com/bitfsorg/docnotary-go/signer"
)

// --- Helpers ---

func newSigner(t *testing.T) *signer.KeySigner {
	t.Helper()
	s, err := signer.GenerateKeySigner(signer.MainNet)
	require.NoError(t, err)
	return s
}

func signedRecord(t *testing.T, s signer.Signer, data string) *registry.Record {
	t.Helper()
	d := digest.Sum([]byte(data))
	sig, err := signer.SignDigest(s, d)
	require.NoError(t, err)
	return &registry.Record{
		Digest:    d,
		Owner:     s.Identity().Address(),
		Locator:   "b3:test",
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Signature: registry.SignatureOf(sig),
	}
}

// --- Check ---

func TestCheck_Outcomes(t *testing.T) {
	alice, bob := newSigner(t), newSigner(t)
	rec := signedRecord(t, alice, "contract.pdf")

	unsigned := rec.Clone()
	unsigned.Signature = registry.NoSignature()

	garbage := rec.Clone()
	garbage.Signature = registry.SignatureOf([]byte("not a signature"))

	tests := []struct {
		name    string
		rec     *registry.Record
		claimed string
		want    Outcome
	}{
		{"authentic by address", rec, alice.Identity().Address(), Authentic},
		{"authentic by pubkey", rec, hex.EncodeToString(alice.PublicKey().Compressed()), Authentic},
		{"authentic by uncompressed pubkey", rec, hex.EncodeToString(alice.PublicKey().Uncompressed()), Authentic},
		{"other signer by uncompressed pubkey", rec, hex.EncodeToString(bob.PublicKey().Uncompressed()), SignatureMismatch},
		{"authentic by hash", rec, alice.Identity().HashHex(), Authentic},
		{"other signer", rec, bob.Identity().Address(), SignatureMismatch},
		{"no signature", unsigned, alice.Identity().Address(), NoSignaturePresent},
		{"unrecoverable signature", garbage, alice.Identity().Address(), SignatureMismatch},
	}

	c := NewChecker(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Check(context.Background(), tt.rec.Digest, tt.rec, tt.claimed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_SignatureOverDifferentDigest(t *testing.T) {
	alice := newSigner(t)
	rec := signedRecord(t, alice, "original")

	got, err := NewChecker(nil).Check(context.Background(), digest.Sum([]byte("forged")), rec, alice.Identity().Address())
	require.NoError(t, err)
	assert.Equal(t, SignatureMismatch, got)
}

func TestCheck_NoSignatureSkipsResolution(t *testing.T) {
	rec := &registry.Record{Digest: digest.Sum([]byte("x"))}
	got, err := NewChecker(nil).Check(context.Background(), rec.Digest, rec, "definitely not an identity")
	require.NoError(t, err)
	assert.Equal(t, NoSignaturePresent, got)
}

func TestCheck_UnresolvableClaim(t *testing.T) {
	rec := signedRecord(t, newSigner(t), "x")
	_, err := NewChecker(nil).Check(context.Background(), rec.Digest, rec, "nobody")
	assert.ErrorIs(t, err, ErrUnresolvableIdentity)
	assert.ErrorIs(t, err, signer.ErrInvalidIdentity)
}

func TestCheck_NilRecord(t *testing.T) {
	_, err := NewChecker(nil).Check(context.Background(), digest.Sum(nil), nil, "x")
	assert.ErrorIs(t, err, ErrNoRecord)

	_, err = NewChecker(nil).CheckRecordOwner(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestCheck_CustomResolver(t *testing.T) {
	alice := newSigner(t)
	rec := signedRecord(t, alice, "x")

	resolver := ResolverFunc(func(_ context.Context, claimed string) (signer.Identity, error) {
		if claimed == "alice@example.com" {
			return alice.Identity(), nil
		}
		return signer.Identity{}, errors.New("unknown handle")
	})
	c := NewChecker(resolver)

	got, err := c.Check(context.Background(), rec.Digest, rec, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, Authentic, got)

	_, err = c.Check(context.Background(), rec.Digest, rec, "eve@example.com")
	assert.ErrorIs(t, err, ErrUnresolvableIdentity)
}

func TestCheck_ZeroValueChecker(t *testing.T) {
	alice := newSigner(t)
	rec := signedRecord(t, alice, "x")

	var c Checker
	got, err := c.Check(context.Background(), rec.Digest, rec, alice.Identity().Address())
	require.NoError(t, err)
	assert.Equal(t, Authentic, got)
}

func TestCheckRecordOwner(t *testing.T) {
	alice, bob := newSigner(t), newSigner(t)
	c := NewChecker(nil)

	rec := signedRecord(t, alice, "x")
	got, err := c.CheckRecordOwner(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, Authentic, got)

	// Record stored by bob with alice's signature.
	rec.Owner = bob.Identity().Address()
	got, err = c.CheckRecordOwner(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, SignatureMismatch, got)
}

// --- Outcome ---

func TestOutcome_Text(t *testing.T) {
	for _, o := range []Outcome{Authentic, SignatureMismatch, NoSignaturePresent} {
		b, err := json.Marshal(o)
		require.NoError(t, err)

		var back Outcome
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, o, back)
	}

	assert.Equal(t, "unknown", Outcome(0).String())

	var o Outcome
	assert.ErrorIs(t, o.UnmarshalText([]byte("maybe")), ErrUnknownOutcome)
}

// Package notary runs the document pipelines: register (hash, encrypt,
// upload, sign, record) and retrieve (look up, fetch, decrypt, verify).
// Every step is checked in order and a failure stops the pipeline, so the
// registry is written only after everything else succeeded.
package notary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bitfsorg/docnotary-go/authenticity"
	"github.com/bitfsorg/docnotary-go/blobstore"
	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/envelope"
	"github.com/bitfsorg/docnotary-go/logger"
	"github.com/bitfsorg/docnotary-go/registry"
	"github.com/bitfsorg/docnotary-go/signer"
)

// Mode selects how an envelope key is derived.
type Mode int

const (
	// ModePassword derives the key from a password (PBKDF2).
	ModePassword Mode = iota
	// ModeSigner derives the key from the signer's signature over the digest.
	ModeSigner
)

// ParseMode maps "password" or "signer" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "password", "":
		return ModePassword, nil
	case "signer", "signature":
		return ModeSigner, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) String() string {
	if m == ModeSigner {
		return "signer"
	}
	return "password"
}

// Notary wires the registry, blob store, signer and authenticity checker.
type Notary struct {
	Ledger  registry.Ledger
	Blobs   blobstore.Store
	Signer  signer.Signer
	Checker *authenticity.Checker
	Log     *logger.Logger
}

// New creates a Notary. A nil checker uses authenticity.NewChecker(nil).
func New(ledger registry.Ledger, blobs blobstore.Store, s signer.Signer, checker *authenticity.Checker, log *logger.Logger) *Notary {
	if checker == nil {
		checker = authenticity.NewChecker(nil)
	}
	return &Notary{
		Ledger:  ledger,
		Blobs:   blobs,
		Signer:  s,
		Checker: checker,
		Log:     logger.OrNop(log).Named("notary"),
	}
}

// RegisterRequest is the input of Register.
type RegisterRequest struct {
	Filename string
	Data     []byte
	Mode     Mode
	Password string
	// Unsigned registers without an attestation signature.
	Unsigned bool
}

// Registration is the output of Register.
type Registration struct {
	Receipt      *registry.Receipt
	EnvelopeSize int
	Signature    []byte // nil when unsigned
}

// Register hashes, encrypts, uploads, signs and records a document.
func (n *Notary) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	if n.Signer == nil {
		return nil, ErrSignerRequired
	}
	if req.Mode == ModePassword && req.Password == "" {
		return nil, ErrPasswordRequired
	}
	if req.Mode != ModePassword && req.Mode != ModeSigner {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, req.Mode)
	}
	log := n.log()

	// 1. hash
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepHash, err}
	}
	d := digest.Sum(req.Data)
	log.Debug().Str("digest", d.String()).Int("size", len(req.Data)).Msg("hashed")

	// 2. precheck
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepPrecheck, err}
	}
	exists, err := n.Ledger.Verify(ctx, d)
	if err != nil {
		return nil, &StepError{StepPrecheck, err}
	}
	if exists {
		return nil, &StepError{StepPrecheck, registry.ErrAlreadyRegistered}
	}

	// 3. encrypt
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepEncrypt, err}
	}
	var env []byte
	if req.Mode == ModeSigner {
		env, err = envelope.EncryptWithSigner(req.Data, req.Filename, n.Signer, d)
	} else {
		env, err = envelope.EncryptWithPassword(req.Data, req.Filename, req.Password)
	}
	if err != nil {
		return nil, &StepError{StepEncrypt, err}
	}

	// 4. upload
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepUpload, err}
	}
	locator, err := n.Blobs.Put(ctx, env)
	if err != nil {
		return nil, &StepError{StepUpload, err}
	}
	log.Debug().Str("digest", d.String()).Str("locator", locator).Int("envelope_size", len(env)).Msg("uploaded")

	// 5. sign
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepSign, err}
	}
	sig := registry.NoSignature()
	var rawSig []byte
	if !req.Unsigned {
		rawSig, err = signer.SignDigest(n.Signer, d)
		if err != nil {
			return nil, &StepError{StepSign, err}
		}
		sig = registry.SignatureOf(rawSig)
	}

	// 6. store
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepStore, err}
	}
	receipt, err := n.Ledger.Store(ctx, registry.StoreRequest{
		Digest:    d,
		Locator:   locator,
		Owner:     n.Signer.Identity().Address(),
		Signature: sig,
	})
	if err != nil {
		return nil, &StepError{StepStore, err}
	}

	log.Info().
		Str("digest", d.String()).
		Str("locator", locator).
		Str("mode", req.Mode.String()).
		Bool("signed", !req.Unsigned).
		Msg("document registered")

	return &Registration{Receipt: receipt, EnvelopeSize: len(env), Signature: rawSig}, nil
}

// RetrieveRequest is the input of Retrieve.
type RetrieveRequest struct {
	Digest   digest.Digest
	Mode     Mode
	Password string
}

// Retrieval is the output of Retrieve.
type Retrieval struct {
	Document *envelope.Document
	Record   *registry.Record
	Outcome  authenticity.Outcome
}

// Retrieve fetches and decrypts a registered document and checks its
// signature against the record owner.
func (n *Notary) Retrieve(ctx context.Context, req RetrieveRequest) (*Retrieval, error) {
	if req.Mode == ModePassword && req.Password == "" {
		return nil, ErrPasswordRequired
	}
	if req.Mode == ModeSigner && n.Signer == nil {
		return nil, ErrSignerRequired
	}
	d := req.Digest

	// 1. lookup
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepLookup, err}
	}
	rec, ok, err := n.Ledger.Get(ctx, d)
	if err != nil {
		return nil, &StepError{StepLookup, err}
	}
	if !ok {
		return nil, &StepError{StepLookup, ErrNotRegistered}
	}

	// 2. fetch
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepFetch, err}
	}
	if rec.Locator == "" {
		return nil, &StepError{StepFetch, ErrNoLocator}
	}
	env, err := n.Blobs.Get(ctx, rec.Locator)
	if err != nil {
		return nil, &StepError{StepFetch, err}
	}

	// 3. decrypt
	if err := ctx.Err(); err != nil {
		return nil, &StepError{StepDecrypt, err}
	}
	var doc *envelope.Document
	if req.Mode == ModeSigner {
		doc, err = envelope.DecryptWithSigner(env, n.Signer, d)
	} else {
		doc, err = envelope.DecryptWithPassword(env, req.Password)
	}
	if err != nil {
		return nil, &StepError{StepDecrypt, err}
	}

	// 4. verify
	if got := digest.Sum(doc.Data); got != d {
		n.log().Warn().Str("digest", d.String()).Str("got", got.String()).Msg("digest mismatch")
		return nil, &StepError{StepVerify, ErrDigestMismatch}
	}

	// 5. authenticate
	outcome, err := n.Checker.CheckRecordOwner(ctx, rec)
	if err != nil {
		return nil, &StepError{StepAuthenticate, err}
	}

	n.log().Info().
		Str("digest", d.String()).
		Str("outcome", outcome.String()).
		Msg("document retrieved")

	return &Retrieval{Document: doc, Record: rec, Outcome: outcome}, nil
}

// CheckResult is the output of Check.
type CheckResult struct {
	Digest     digest.Digest
	Registered bool
	Record     *registry.Record // nil when not registered
	Outcome    authenticity.Outcome
}

// Check hashes data and reports its registration and authenticity against
// claimed. An empty claim checks against the record owner. Not being
// registered is a normal result.
func (n *Notary) Check(ctx context.Context, data []byte, claimed string) (*CheckResult, error) {
	return n.CheckDigest(ctx, digest.Sum(data), claimed)
}

// CheckDigest is Check for an already computed digest.
func (n *Notary) CheckDigest(ctx context.Context, d digest.Digest, claimed string) (*CheckResult, error) {
	rec, ok, err := n.Ledger.Get(ctx, d)
	if err != nil {
		return nil, &StepError{StepLookup, err}
	}
	res := &CheckResult{Digest: d, Registered: ok}
	if !ok {
		return res, nil
	}
	res.Record = rec

	if claimed == "" {
		claimed = rec.Owner
	}
	res.Outcome, err = n.Checker.Check(ctx, d, rec, claimed)
	if err != nil {
		return nil, &StepError{StepAuthenticate, err}
	}
	return res, nil
}

// List returns the documents registered by owner. An empty owner lists the
// notary signer's own documents.
func (n *Notary) List(ctx context.Context, owner string) ([]*registry.Record, error) {
	if owner == "" {
		if n.Signer == nil {
			return nil, ErrSignerRequired
		}
		owner = n.Signer.Identity().Address()
	}
	recs, err := n.Ledger.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("notary: list: %w", err)
	}
	return recs, nil
}

func (n *Notary) log() *logger.Logger { return logger.OrNop(n.Log) }

// IsAuthenticationFailure reports whether err is a decryption failure
// (wrong password, wrong signer or corrupted envelope).
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, envelope.ErrAuthenticationFailed)
}

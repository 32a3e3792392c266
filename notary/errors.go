package notary

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/docnotary-go/blobstore"
	"github.com/bitfsorg/docnotary-go/registry"
)

var (
	// ErrNotRegistered indicates the digest has no registry record.
	ErrNotRegistered = errors.New("notary: document not registered")

	// ErrDigestMismatch indicates decrypted content does not hash to the
	// registered digest.
	ErrDigestMismatch = errors.New("notary: decrypted content does not match digest")

	// ErrPasswordRequired indicates password mode without a password.
	ErrPasswordRequired = errors.New("notary: password required")

	// ErrSignerRequired indicates an operation that needs a signer was
	// invoked without one.
	ErrSignerRequired = errors.New("notary: signer required")

	// ErrNoLocator indicates the record has no blob locator to fetch.
	ErrNoLocator = errors.New("notary: record has no locator")

	// ErrInvalidMode indicates an unknown encryption mode.
	ErrInvalidMode = errors.New("notary: invalid encryption mode")
)

// Step names a stage of the register or retrieve pipeline.
type Step string

const (
	StepHash         Step = "hash"
	StepPrecheck     Step = "precheck"
	StepEncrypt      Step = "encrypt"
	StepUpload       Step = "upload"
	StepSign         Step = "sign"
	StepStore        Step = "store"
	StepLookup       Step = "lookup"
	StepFetch        Step = "fetch"
	StepDecrypt      Step = "decrypt"
	StepVerify       Step = "verify"
	StepAuthenticate Step = "authenticate"
)

// StepError reports which pipeline step failed. No step after Step ran.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("notary: %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep returns the step at which err occurred, if err carries one.
func FailedStep(err error) (Step, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}

// IsRetryable reports whether err is a transient store failure. It is the
// only error kind worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, blobstore.ErrUnavailable) || errors.Is(err, registry.ErrUnavailable)
}

package registry

import (
	"time"

	"github.com/bitfsorg/docnotary-go/digest"
)

// Signature is an optional detached signature. Present distinguishes "no
// signature supplied" from any byte value, including an empty one.
type Signature struct {
	Bytes   []byte
	Present bool
}

// NoSignature returns the absent marker.
func NoSignature() Signature { return Signature{} }

// SignatureOf marks sig as present. The bytes are copied.
func SignatureOf(sig []byte) Signature {
	return Signature{Bytes: append([]byte{}, sig...), Present: true}
}

func (s Signature) clone() Signature {
	if !s.Present {
		return Signature{}
	}
	return SignatureOf(s.Bytes)
}

// Record is a registered document. It is created once per digest and never
// modified afterwards.
type Record struct {
	Digest    digest.Digest
	Owner     string
	Locator   string
	Timestamp time.Time
	Signature Signature
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Signature = r.Signature.clone()
	return &c
}

// Receipt returns the registration receipt for r.
func (r *Record) Receipt() *Receipt {
	return &Receipt{
		Digest:    r.Digest,
		Owner:     r.Owner,
		Locator:   r.Locator,
		Timestamp: r.Timestamp,
	}
}

// Receipt confirms a successful store.
type Receipt struct {
	Digest    digest.Digest
	Owner     string
	Locator   string
	Timestamp time.Time
}

// StoreRequest carries the caller-supplied fields of a new record. The
// timestamp is assigned by the registry.
type StoreRequest struct {
	Digest    digest.Digest
	Locator   string
	Owner     string
	Signature Signature
}

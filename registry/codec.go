package registry

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/bitfsorg/docnotary-go/digest"
)

// encMode uses Core Deterministic Encoding so a record always has one byte
// representation.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("registry: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("registry: CBOR decoder initialization failed: " + err.Error())
	}
}

// storedRecord is the persisted form of a Record.
type storedRecord struct {
	Digest    []byte `cbor:"1,keyasint"`
	Owner     string `cbor:"2,keyasint"`
	Locator   string `cbor:"3,keyasint"`
	Timestamp int64  `cbor:"4,keyasint"`
	Signed    bool   `cbor:"5,keyasint"`
	Signature []byte `cbor:"6,keyasint,omitempty"`
}

func encodeRecord(rec *Record) ([]byte, error) {
	sr := storedRecord{
		Digest:    rec.Digest.Bytes(),
		Owner:     rec.Owner,
		Locator:   rec.Locator,
		Timestamp: rec.Timestamp.Unix(),
		Signed:    rec.Signature.Present,
	}
	if rec.Signature.Present {
		sr.Signature = rec.Signature.Bytes
	}
	return encMode.Marshal(sr)
}

func decodeRecord(data []byte) (*Record, error) {
	var sr storedRecord
	if err := decMode.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	d, err := digest.FromBytes(sr.Digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	rec := &Record{
		Digest:    d,
		Owner:     sr.Owner,
		Locator:   sr.Locator,
		Timestamp: time.Unix(sr.Timestamp, 0).UTC(),
	}
	if sr.Signed {
		rec.Signature = SignatureOf(sr.Signature)
	}
	return rec, nil
}

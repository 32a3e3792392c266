package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// payload is the JSON structure encrypted inside every envelope.
type payload struct {
	Name string    `json:"name"`
	Data byteArray `json:"data"`
}

// byteArray encodes as a JSON array of integers rather than base64, which is
// the form browser clients produce with Array.from(Uint8Array).
type byteArray []byte

func (b byteArray) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(b)*4+2)
	buf = append(buf, '[')
	for i, v := range b {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	return append(buf, ']'), nil
}

func (b *byteArray) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*b = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		// Base64 form written by encoding/json for plain []byte.
		var raw []byte
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*b = raw
		return nil
	}

	var ints []int
	if err := json.Unmarshal(trimmed, &ints); err != nil {
		return err
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("envelope: data[%d] = %d out of byte range", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// marshalPayload serializes doc without HTML escaping so filenames round-trip
// byte-for-byte with other JSON producers.
func marshalPayload(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload{Name: doc.Name, Data: doc.Data}); err != nil {
		return nil, fmt.Errorf("envelope: encode payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// unmarshalPayload parses the decrypted payload. Data is never nil.
func unmarshalPayload(data []byte) (*Document, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("envelope: decode payload: %w", err)
	}
	out := []byte(p.Data)
	if out == nil {
		out = []byte{}
	}
	return &Document{Name: p.Name, Data: out}, nil
}

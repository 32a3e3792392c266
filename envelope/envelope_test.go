package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/signer"
)

// --- Helpers ---

// hmacSigner is a deterministic MessageSigner keyed by secret.
type hmacSigner struct {
	secret []byte
}

func (s hmacSigner) Sign(message []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(message)
	return mac.Sum(nil), nil
}

type errSigner struct{ err error }

func (s errSigner) Sign([]byte) ([]byte, error) { return nil, s.err }

type emptySigner struct{}

func (emptySigner) Sign([]byte) ([]byte, error) { return []byte{}, nil }

// --- Password variant ---

func TestPasswordRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		password string
	}{
		{"hello", []byte("hello"), "hello.txt", "pw1"},
		{"empty data", []byte{}, "empty.bin", "pw"},
		{"binary", []byte{0x00, 0x01, 0xfe, 0xff}, "blob.bin", "p@ss"},
		{"unicode filename", []byte("contract"), "contrato-été <v2>.pdf", "pw"},
		{"empty password", []byte("data"), "a.txt", ""},
		{"larger", bytes.Repeat([]byte{0xab}, 64*1024), "big.bin", "long password with spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := EncryptWithPassword(tt.data, tt.filename, tt.password)
			require.NoError(t, err)

			doc, err := DecryptWithPassword(env, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.filename, doc.Name)
			assert.Equal(t, tt.data, doc.Data)
		})
	}
}

func TestPassword_EndToEndScenario(t *testing.T) {
	env, err := EncryptWithPassword([]byte("hello"), "hello.txt", "pw1")
	require.NoError(t, err)

	payload, err := marshalPayload(Document{Name: "hello.txt", Data: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, SaltLen+IVLen+len(payload)+TagLen, len(env))
	assert.Equal(t, len(env)-SaltLen-IVLen, len(env[28:]), "ciphertext starts at offset 28")

	doc, err := DecryptWithPassword(env, "pw1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), doc.Data)

	_, err = DecryptWithPassword(env, "pw2")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestPassword_FreshSaltAndIV(t *testing.T) {
	a, err := EncryptWithPassword([]byte("same"), "f", "pw")
	require.NoError(t, err)
	b, err := EncryptWithPassword([]byte("same"), "f", "pw")
	require.NoError(t, err)

	assert.NotEqual(t, a[:SaltLen], b[:SaltLen], "salt must differ")
	assert.NotEqual(t, a[SaltLen:SaltLen+IVLen], b[SaltLen:SaltLen+IVLen], "iv must differ")
	assert.NotEqual(t, a, b)
}

func TestPassword_TamperDetection(t *testing.T) {
	env, err := EncryptWithPassword([]byte("hi"), "x", "pw")
	require.NoError(t, err)

	// Every byte of the envelope is covered: salt and iv change the key or
	// nonce, ciphertext and tag fail the GCM check.
	for i := range env {
		tampered := append([]byte(nil), env...)
		tampered[i] ^= 0x01
		doc, err := DecryptWithPassword(tampered, "pw")
		assert.Nil(t, doc, "byte %d", i)
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "byte %d", i)
	}
}

func TestPassword_Truncated(t *testing.T) {
	env, err := EncryptWithPassword([]byte("hi"), "x", "pw")
	require.NoError(t, err)

	for _, n := range []int{0, 1, SaltLen, SaltLen + IVLen, MinPasswordEnvelopeLen - 1, len(env) - 1} {
		_, err := DecryptWithPassword(env[:n], "pw")
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "len %d", n)
	}
}

func TestPassword_GenericMessage(t *testing.T) {
	env, err := EncryptWithPassword([]byte("hi"), "x", "right")
	require.NoError(t, err)

	_, wrongPw := DecryptWithPassword(env, "wrong")
	env[len(env)-1] ^= 0xff
	_, corrupted := DecryptWithPassword(env, "right")

	require.Error(t, wrongPw)
	require.Error(t, corrupted)
	assert.Equal(t, wrongPw.Error(), corrupted.Error(), "failures must be indistinguishable")
	assert.Contains(t, wrongPw.Error(), "wrong password or corrupted file")
}

// TestPassword_ByteLayout builds an envelope by hand from the documented
// layout and checks that DecryptWithPassword reads it.
func TestPassword_ByteLayout(t *testing.T) {
	salt := bytes.Repeat([]byte{0x11}, SaltLen)
	iv := bytes.Repeat([]byte{0x22}, IVLen)
	key := DerivePasswordKey("pw1", salt)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	plaintext := []byte(`{"name":"hello.txt","data":[104,101,108,108,111]}`)
	ct := gcm.Seal(nil, iv, plaintext, nil)

	env := append(append(append([]byte{}, salt...), iv...), ct...)
	doc, err := DecryptWithPassword(env, "pw1")
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", doc.Name)
	assert.Equal(t, []byte("hello"), doc.Data)
}

func TestDerivePasswordKey(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := DerivePasswordKey("pw", salt)
	k2 := DerivePasswordKey("pw", salt)
	assert.Len(t, k1, KeyLen)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, DerivePasswordKey("pw", []byte("fedcba9876543210")))
	assert.NotEqual(t, k1, DerivePasswordKey("pw2", salt))
}

// --- Signature variant ---

func TestSignerRoundTrip(t *testing.T) {
	s := hmacSigner{secret: []byte("alice")}
	data := []byte("signed document body")
	d := digest.Sum(data)

	env, err := EncryptWithSigner(data, "deed.pdf", s, d)
	require.NoError(t, err)

	payload, err := marshalPayload(Document{Name: "deed.pdf", Data: data})
	require.NoError(t, err)
	assert.Equal(t, IVLen+len(payload)+TagLen, len(env), "no salt in the signature variant")

	doc, err := DecryptWithSigner(env, s, d)
	require.NoError(t, err)
	assert.Equal(t, "deed.pdf", doc.Name)
	assert.Equal(t, data, doc.Data)
}

func TestSigner_WrongSignerRejected(t *testing.T) {
	data := []byte("body")
	d := digest.Sum(data)

	env, err := EncryptWithSigner(data, "f", hmacSigner{secret: []byte("alice")}, d)
	require.NoError(t, err)

	_, err = DecryptWithSigner(env, hmacSigner{secret: []byte("bob")}, d)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSigner_WrongDigestRejected(t *testing.T) {
	s := hmacSigner{secret: []byte("alice")}
	env, err := EncryptWithSigner([]byte("body"), "f", s, digest.Sum([]byte("body")))
	require.NoError(t, err)

	_, err = DecryptWithSigner(env, s, digest.Sum([]byte("other")))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSigner_TamperDetection(t *testing.T) {
	s := hmacSigner{secret: []byte("alice")}
	d := digest.Sum([]byte("x"))
	env, err := EncryptWithSigner([]byte("x"), "f", s, d)
	require.NoError(t, err)

	for i := range env {
		tampered := append([]byte(nil), env...)
		tampered[i] ^= 0x80
		_, err := DecryptWithSigner(tampered, s, d)
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "byte %d", i)
	}

	_, err = DecryptWithSigner(env[:MinSignerEnvelopeLen-1], s, d)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSigner_KeyDerivationErrors(t *testing.T) {
	d := digest.Sum([]byte("x"))
	boom := errors.New("wallet locked")

	_, err := EncryptWithSigner([]byte("x"), "f", errSigner{err: boom}, d)
	assert.ErrorIs(t, err, ErrKeyDerivation)
	assert.ErrorIs(t, err, boom)

	_, err = EncryptWithSigner([]byte("x"), "f", emptySigner{}, d)
	assert.ErrorIs(t, err, ErrKeyDerivation)

	_, err = EncryptWithSigner([]byte("x"), "f", nil, d)
	assert.ErrorIs(t, err, ErrKeyDerivation)

	_, err = DecryptWithSigner(make([]byte, 64), errSigner{err: boom}, d)
	assert.ErrorIs(t, err, ErrKeyDerivation)
	assert.NotErrorIs(t, err, ErrAuthenticationFailed)
}

func TestKeyMessage(t *testing.T) {
	d := digest.Sum([]byte("hello"))
	assert.Equal(t,
		"Encrypting doc: 0x2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		string(KeyMessage(d)))
}

func TestDeriveSignerKey_IsSHA256OfSignature(t *testing.T) {
	s := hmacSigner{secret: []byte("k")}
	d := digest.Sum([]byte("doc"))

	sig, err := s.Sign(KeyMessage(d))
	require.NoError(t, err)
	want := sha256.Sum256(sig)

	got, err := DeriveSignerKey(s, d)
	require.NoError(t, err)
	assert.Equal(t, want[:], got)

	textKey := sha256.Sum256([]byte(base64.StdEncoding.EncodeToString(sig)))
	assert.NotEqual(t, textKey[:], got)
}

func TestSigner_WithBSMKeySigner(t *testing.T) {
	alice, err := signer.GenerateKeySigner(signer.MainNet)
	require.NoError(t, err)
	bob, err := signer.GenerateKeySigner(signer.MainNet)
	require.NoError(t, err)

	data := []byte("title deed")
	d := digest.Sum(data)

	env, err := EncryptWithSigner(data, "deed.txt", alice, d)
	require.NoError(t, err)

	doc, err := DecryptWithSigner(env, alice, d)
	require.NoError(t, err)
	assert.Equal(t, data, doc.Data)

	_, err = DecryptWithSigner(env, bob, d)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

// --- Payload ---

func TestMarshalPayload_ArrayForm(t *testing.T) {
	out, err := marshalPayload(Document{Name: "a<b>.txt", Data: []byte{104, 105}})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a<b>.txt","data":[104,105]}`, string(out))
}

func TestUnmarshalPayload_Forms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"array", `{"name":"n","data":[0,1,255]}`, []byte{0, 1, 255}},
		{"base64", `{"name":"n","data":"AAH/"}`, []byte{0, 1, 255}},
		{"empty array", `{"name":"n","data":[]}`, []byte{}},
		{"null", `{"name":"n","data":null}`, []byte{}},
		{"missing", `{"name":"n"}`, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := unmarshalPayload([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, "n", doc.Name)
			assert.Equal(t, tt.want, doc.Data)
		})
	}
}

func TestUnmarshalPayload_Invalid(t *testing.T) {
	for _, in := range []string{
		`{"name":"n","data":[256]}`,
		`{"name":"n","data":[-1]}`,
		`{"name":"n","data":[1.5]}`,
		`not json`,
	} {
		_, err := unmarshalPayload([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestOpen_InvalidPayloadIsAuthenticationFailure(t *testing.T) {
	// A correctly authenticated envelope whose payload is not JSON must not
	// leak a parse error.
	key := bytes.Repeat([]byte{0x42}, KeyLen)
	gcm, err := newGCM(key)
	require.NoError(t, err)
	iv := bytes.Repeat([]byte{0x01}, IVLen)
	sealed := gcm.Seal(append([]byte{}, iv...), iv, []byte("garbage"), nil)

	_, err = open(key, sealed)
	assert.Equal(t, ErrAuthenticationFailed, err)
}

// --- Concurrency ---

func TestConcurrentEncryptDecrypt(t *testing.T) {
	s := hmacSigner{secret: []byte("shared")}
	var wg sync.WaitGroup
	errs := make(chan error, 16)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := []byte(strings.Repeat("d", i+1))
			d := digest.Sum(data)
			env, err := EncryptWithSigner(data, "f", s, d)
			if err != nil {
				errs <- err
				return
			}
			doc, err := DecryptWithSigner(env, s, d)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(doc.Data, data) {
				errs <- errors.New("data mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

package registryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/logger"
	"github.com/bitfsorg/docnotary-go/registry"
	"github.com/bitfsorg/docnotary-go/signer"
)

// --- Helpers ---

var fixedNow = time.Date(2024, 5, 1, 9, 30, 45, 0, time.UTC)

func testOwner(t *testing.T, b byte) string {
	t.Helper()
	id, err := signer.IdentityFromHash(bytes.Repeat([]byte{b}, signer.HashLen), signer.MainNet)
	require.NoError(t, err)
	return id.Address()
}

func newTestServer(t *testing.T, ledger registry.Ledger) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(ledger, logger.Nop()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{BaseURL: baseURL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

// newPair returns a client talking to a server over an in-memory registry.
func newPair(t *testing.T) (*Client, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.NewMemStore(),
		registry.WithClock(func() time.Time { return fixedNow }),
		registry.WithLogger(logger.Nop()))
	srv := newTestServer(t, reg)
	return newTestClient(t, srv.URL), reg
}

// stubLedger returns err from every call.
type stubLedger struct{ err error }

func (s stubLedger) Store(context.Context, registry.StoreRequest) (*registry.Receipt, error) {
	return nil, s.err
}
func (s stubLedger) Get(context.Context, digest.Digest) (*registry.Record, bool, error) {
	return nil, false, s.err
}
func (s stubLedger) Verify(context.Context, digest.Digest) (bool, error) { return false, s.err }
func (s stubLedger) List(context.Context, string) ([]*registry.Record, error) {
	return nil, s.err
}

// --- Client over a live server ---

func TestClient_StoreAndGet(t *testing.T) {
	c, _ := newPair(t)
	ctx := context.Background()
	owner := testOwner(t, 0x11)
	d := digest.Sum([]byte("hello"))

	receipt, err := c.Store(ctx, registry.StoreRequest{
		Digest:    d,
		Locator:   "b3:abcd",
		Owner:     owner,
		Signature: registry.SignatureOf([]byte("sig")),
	})
	require.NoError(t, err)
	assert.Equal(t, d, receipt.Digest)
	assert.Equal(t, owner, receipt.Owner)
	assert.Equal(t, "b3:abcd", receipt.Locator)
	assert.True(t, fixedNow.Equal(receipt.Timestamp))

	rec, ok, err := c.Get(ctx, d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d, rec.Digest)
	assert.Equal(t, owner, rec.Owner)
	assert.True(t, rec.Signature.Present)
	assert.Equal(t, []byte("sig"), rec.Signature.Bytes)
	assert.True(t, fixedNow.Equal(rec.Timestamp))
}

func TestClient_SignaturePresence(t *testing.T) {
	tests := []struct {
		name    string
		sig     registry.Signature
		present bool
	}{
		{"absent", registry.NoSignature(), false},
		{"empty but present", registry.SignatureOf(nil), true},
		{"bytes", registry.SignatureOf([]byte{1, 2, 3}), true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newPair(t)
			ctx := context.Background()
			d := digest.Sum([]byte{byte(i)})

			_, err := c.Store(ctx, registry.StoreRequest{Digest: d, Owner: testOwner(t, 0x22), Signature: tt.sig})
			require.NoError(t, err)

			rec, ok, err := c.Get(ctx, d)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.present, rec.Signature.Present)
			assert.Equal(t, len(tt.sig.Bytes), len(rec.Signature.Bytes))
		})
	}
}

func TestClient_DuplicateStore(t *testing.T) {
	c, _ := newPair(t)
	ctx := context.Background()
	d := digest.Sum([]byte("dup"))
	first := testOwner(t, 0x01)

	_, err := c.Store(ctx, registry.StoreRequest{Digest: d, Owner: first, Locator: "b3:01"})
	require.NoError(t, err)

	_, err = c.Store(ctx, registry.StoreRequest{Digest: d, Owner: testOwner(t, 0x02), Locator: "b3:02"})
	require.ErrorIs(t, err, registry.ErrAlreadyRegistered)

	rec, ok, err := c.Get(ctx, d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, rec.Owner)
	assert.Equal(t, "b3:01", rec.Locator)
}

func TestClient_GetMissing(t *testing.T) {
	c, _ := newPair(t)

	rec, ok, err := c.Get(context.Background(), digest.Sum([]byte("nothing")))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestClient_Verify(t *testing.T) {
	c, _ := newPair(t)
	ctx := context.Background()
	d := digest.Sum([]byte("exists"))

	ok, err := c.Verify(ctx, d)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Store(ctx, registry.StoreRequest{Digest: d, Owner: testOwner(t, 0x33)})
	require.NoError(t, err)

	ok, err = c.Verify(ctx, d)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_List(t *testing.T) {
	c, _ := newPair(t)
	ctx := context.Background()
	alice := testOwner(t, 0x0a)
	bob := testOwner(t, 0x0b)

	for _, s := range []string{"a1", "a2"} {
		_, err := c.Store(ctx, registry.StoreRequest{Digest: digest.Sum([]byte(s)), Owner: alice})
		require.NoError(t, err)
	}
	_, err := c.Store(ctx, registry.StoreRequest{Digest: digest.Sum([]byte("b1")), Owner: bob})
	require.NoError(t, err)

	recs, err := c.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, alice, rec.Owner)
	}

	recs, err = c.List(ctx, testOwner(t, 0x0c))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClient_InvalidRequest(t *testing.T) {
	c, _ := newPair(t)
	ctx := context.Background()

	_, err := c.Store(ctx, registry.StoreRequest{Digest: digest.Sum([]byte("x")), Owner: "not an identity"})
	assert.ErrorIs(t, err, registry.ErrInvalidRequest)

	_, err = c.Store(ctx, registry.StoreRequest{Owner: testOwner(t, 0x01)})
	assert.ErrorIs(t, err, registry.ErrInvalidRequest)

	_, err = c.List(ctx, "not an identity")
	assert.ErrorIs(t, err, registry.ErrInvalidRequest)
}

func TestClient_ServerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unavailable", http.StatusServiceUnavailable, registry.ErrUnavailable},
		{"internal", http.StatusInternalServerError, registry.ErrUnavailable},
		{"throttled", http.StatusTooManyRequests, registry.ErrUnavailable},
		{"conflict", http.StatusConflict, registry.ErrAlreadyRegistered},
		{"bad request", http.StatusBadRequest, registry.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"boom","code":"x"}`))
			}))
			defer srv.Close()
			c := newTestClient(t, srv.URL)

			_, err := c.Store(context.Background(), registry.StoreRequest{Digest: digest.Sum([]byte("s")), Owner: "o"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, _, err := c.Get(context.Background(), digest.Sum([]byte("x")))
	assert.ErrorIs(t, err, registry.ErrUnavailable)
}

func TestClient_CancelledIsNotUnavailable(t *testing.T) {
	c, _ := newPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Verify(ctx, digest.Sum([]byte("x")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, registry.ErrUnavailable))
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://host", "http://", "::"} {
		_, err := NewClient(ClientConfig{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

// --- Server edge cases ---

func decodeError(t *testing.T, resp *http.Response) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestServer_BadDigest(t *testing.T) {
	srv, _ := newServerOnly(t)

	resp, err := http.Get(srv.URL + "/v1/documents/0xnothex")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeInvalidRequest, decodeError(t, resp).Code)
}

func TestServer_MissingDocumentIs404(t *testing.T) {
	srv, _ := newServerOnly(t)

	resp, err := http.Get(srv.URL + "/v1/documents/" + digest.Sum([]byte("none")).String())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeNotFound, decodeError(t, resp).Code)
}

func TestServer_StoreBodyValidation(t *testing.T) {
	srv, _ := newServerOnly(t)
	owner := testOwner(t, 0x44)
	d := digest.Sum([]byte("body")).String()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"digest":`, http.StatusBadRequest},
		{"unknown field", `{"digest":"` + d + `","owner":"` + owner + `","extra":1}`, http.StatusBadRequest},
		{"bad digest", `{"digest":"0x12","owner":"` + owner + `"}`, http.StatusBadRequest},
		{"bad signature", `{"digest":"` + d + `","owner":"` + owner + `","signature":"***"}`, http.StatusBadRequest},
		{"missing owner", `{"digest":"` + d + `"}`, http.StatusBadRequest},
		{"ok", `{"digest":"` + d + `","owner":"` + owner + `","signature":null}`, http.StatusCreated},
		{"duplicate", `{"digest":"` + d + `","owner":"` + owner + `"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/documents", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestServer_LedgerFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unavailable", registry.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, CodeUnavailable},
		{"storage", registry.ErrStorage, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, stubLedger{err: tt.err})

			resp, err := http.Get(srv.URL + "/v1/documents/" + digest.Sum([]byte("x")).String() + "/exists")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, tt.code, body.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Error, "registry:")
			}
		})
	}
}

func TestServer_FailureLoggedWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	s := NewServer(stubLedger{err: registry.ErrStorage}, logger.New("registry", "info", &buf))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/"+digest.Sum([]byte("x")).String(), nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var failure map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "request failed" {
			failure = entry
		}
	}
	require.NotNil(t, failure, buf.String())
	assert.Equal(t, "error", failure["level"])
	assert.Equal(t, "registryapi", failure["component"])
	assert.NotEmpty(t, failure["request_id"])
	assert.Contains(t, failure["error"], "registry:")
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newServerOnly(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	s := NewServer(stubLedger{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func newServerOnly(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.NewMemStore(), registry.WithLogger(logger.Nop()))
	return newTestServer(t, reg), reg
}

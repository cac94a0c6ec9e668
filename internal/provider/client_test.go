package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/boardlink/internal/domain"
	"github.com/smallbiznis/boardlink/internal/secrets"
	"github.com/smallbiznis/boardlink/internal/store"
	"github.com/smallbiznis/boardlink/internal/token"
)

// countingEnsurer records EnsureFreshToken invocations without refreshing.
type countingEnsurer struct {
	mu    sync.Mutex
	calls int
}

func (e *countingEnsurer) EnsureFreshToken(context.Context, string) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
}

func (e *countingEnsurer) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *secrets.Vault, *countingEnsurer) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cipher, err := secrets.NewAEADCipher(bytes.Repeat([]byte{0x7a}, 32))
	require.NoError(t, err)
	vault := secrets.NewVault(store.NewMemoryStore(), cipher)
	require.NoError(t, vault.SetUserSecret(context.Background(), "user1", domain.KeyToken, "the-token"))

	ensurer := &countingEnsurer{}
	return NewClient(srv.Client(), srv.URL, vault, ensurer, zap.NewNop()), vault, ensurer
}

func TestCall_RejectsUnknownMethodWithoutIO(t *testing.T) {
	var hits int
	client, _, ensurer := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits++
	}))

	_, err := client.Call(context.Background(), "user1", "v2/boards", nil, "PATCH", true)
	require.ErrorIs(t, err, domain.ErrBadMethod)
	require.Equal(t, 0, hits)
	require.Equal(t, 0, ensurer.callCount())
}

func TestCall_EnsuresFreshTokenBeforeRequest(t *testing.T) {
	client, _, ensurer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.Call(context.Background(), "user1", "v2/boards", nil, http.MethodGet, true)
	require.NoError(t, err)
	require.Equal(t, 1, ensurer.callCount())
}

func TestCall_SetsAuthHeaders(t *testing.T) {
	var header http.Header
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.Call(context.Background(), "user1", "v2/boards", nil, http.MethodGet, true)
	require.NoError(t, err)
	require.Equal(t, "Bearer the-token", header.Get("Authorization"))
	require.Equal(t, "application/json", header.Get("Accept"))
	require.Equal(t, token.UserAgent, header.Get("User-Agent"))
}

func TestCall_UpstreamErrorBecomesBadCredentials(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"insufficient scope","context":"secret detail"}`))
	}))

	_, err := client.Call(context.Background(), "user1", "v2/boards", nil, http.MethodGet, true)
	require.ErrorIs(t, err, domain.ErrBadCredentials)
	require.NotContains(t, err.Error(), "secret detail")
}

func TestCall_ArrayParamsPrecedeScalars(t *testing.T) {
	var rawQuery string
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	}))

	params := map[string]any{
		"team_id": "t 1",
		"fields":  []string{"id", "name"},
		"tags":    []string{"x"},
		"limit":   "50",
	}
	_, err := client.Call(context.Background(), "user1", "v2/boards", params, http.MethodGet, true)
	require.NoError(t, err)
	require.Equal(t, "fields[]=id&fields[]=name&tags[]=x&limit=50&team_id=t+1", rawQuery)
}

func TestCall_NonGetParamsBecomeJSONBody(t *testing.T) {
	var (
		contentType string
		body        []byte
	)
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{}`))
	}))

	params := map[string]any{"name": "board one"}
	_, err := client.Call(context.Background(), "user1", "v2/boards", params, http.MethodPost, true)
	require.NoError(t, err)
	require.Equal(t, "application/json", contentType)
	require.JSONEq(t, `{"name":"board one"}`, string(body))
}

func TestCall_DecodesJSONAndKeepsRawBody(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"b1"}`))
	}))

	res, err := client.Call(context.Background(), "user1", "v2/boards/b1", nil, http.MethodGet, true)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"id":"b1"}`), res.Body)
	payload, ok := res.JSON.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "b1", payload["id"])
}

func TestCall_RawModeLeavesJSONNil(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("raw-image-bytes"))
	}))

	res, err := client.Call(context.Background(), "user1", "users/u1/image", nil, http.MethodGet, false)
	require.NoError(t, err)
	require.Nil(t, res.JSON)
	require.Equal(t, []byte("raw-image-bytes"), res.Body)
}

func TestCall_EmptyBodyLeavesJSONNil(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	res, err := client.Call(context.Background(), "user1", "v2/boards/b1", nil, http.MethodDelete, true)
	require.NoError(t, err)
	require.Nil(t, res.JSON)
	require.Empty(t, res.Body)
}

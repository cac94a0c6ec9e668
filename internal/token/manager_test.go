package token

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/boardlink/internal/domain"
	"github.com/smallbiznis/boardlink/internal/secrets"
	"github.com/smallbiznis/boardlink/internal/store"
)

// tokenEndpoint is a scriptable stand-in for the provider token endpoint.
type tokenEndpoint struct {
	mu       sync.Mutex
	calls    int
	lastForm map[string]string

	status int
	body   string
	delay  time.Duration
}

func (e *tokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	_ = r.ParseForm()
	e.mu.Lock()
	e.calls++
	e.lastForm = map[string]string{}
	for key := range r.PostForm {
		e.lastForm[key] = r.PostForm.Get(key)
	}
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if e.status != 0 {
		w.WriteHeader(e.status)
	}
	_, _ = w.Write([]byte(e.body))
}

func (e *tokenEndpoint) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *tokenEndpoint) form(key string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastForm[key]
}

func newTestManager(t *testing.T, endpoint *tokenEndpoint) (*Manager, *secrets.Vault, *store.MemoryStore) {
	t.Helper()

	srv := httptest.NewServer(endpoint)
	t.Cleanup(srv.Close)

	cipher, err := secrets.NewAEADCipher(bytes.Repeat([]byte{0x24}, 32))
	require.NoError(t, err)
	mem := store.NewMemoryStore()
	vault := secrets.NewVault(mem, cipher)

	return NewManager(vault, srv.Client(), srv.URL, zap.NewNop()), vault, mem
}

func seedCredential(t *testing.T, vault *secrets.Vault, userID string, expiresAt int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, vault.SetAppSecret(ctx, domain.KeyClientID, "client-1"))
	require.NoError(t, vault.SetAppSecret(ctx, domain.KeyClientSecret, "secret-1"))
	require.NoError(t, vault.SetUserSecret(ctx, userID, domain.KeyToken, "old-access"))
	require.NoError(t, vault.SetUserSecret(ctx, userID, domain.KeyRefreshToken, "old-refresh"))
	require.NoError(t, vault.SetUserValue(ctx, userID, domain.KeyTokenExpiresAt, strconv.FormatInt(expiresAt, 10)))
}

func TestEnsureFreshToken_RefreshesExpiringToken(t *testing.T) {
	endpoint := &tokenEndpoint{
		body: `{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600}`,
	}
	manager, vault, _ := newTestManager(t, endpoint)
	ctx := context.Background()
	seedCredential(t, vault, "user1", time.Now().Unix()+30)

	manager.EnsureFreshToken(ctx, "user1")

	require.Equal(t, 1, endpoint.callCount())
	require.Equal(t, "refresh_token", endpoint.form("grant_type"))
	require.Equal(t, "old-refresh", endpoint.form("refresh_token"))
	require.Equal(t, "client-1", endpoint.form("client_id"))

	accessToken, err := vault.GetUserSecret(ctx, "user1", domain.KeyToken)
	require.NoError(t, err)
	require.Equal(t, "new-access", accessToken)

	refreshToken, err := vault.GetUserSecret(ctx, "user1", domain.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "new-refresh", refreshToken)

	expiresRaw, err := vault.GetUserValue(ctx, "user1", domain.KeyTokenExpiresAt)
	require.NoError(t, err)
	expiresAt, err := strconv.ParseInt(expiresRaw, 10, 64)
	require.NoError(t, err)
	require.InDelta(t, time.Now().Unix()+3600, expiresAt, 5)

	// The new expiry is far enough out that a second pass does nothing.
	manager.EnsureFreshToken(ctx, "user1")
	require.Equal(t, 1, endpoint.callCount())
}

func TestEnsureFreshToken_SkipsValidToken(t *testing.T) {
	endpoint := &tokenEndpoint{body: `{}`}
	manager, vault, _ := newTestManager(t, endpoint)
	seedCredential(t, vault, "user1", time.Now().Unix()+3600)

	manager.EnsureFreshToken(context.Background(), "user1")

	require.Equal(t, 0, endpoint.callCount())
}

func TestEnsureFreshToken_SkipsWithoutRefreshToken(t *testing.T) {
	endpoint := &tokenEndpoint{body: `{}`}
	manager, vault, _ := newTestManager(t, endpoint)
	ctx := context.Background()
	require.NoError(t, vault.SetUserSecret(ctx, "user1", domain.KeyToken, "old-access"))
	require.NoError(t, vault.SetUserValue(ctx, "user1", domain.KeyTokenExpiresAt, "1"))

	manager.EnsureFreshToken(ctx, "user1")

	require.Equal(t, 0, endpoint.callCount())
}

func TestEnsureFreshToken_SkipsWithoutExpiry(t *testing.T) {
	endpoint := &tokenEndpoint{body: `{}`}
	manager, vault, _ := newTestManager(t, endpoint)
	ctx := context.Background()
	require.NoError(t, vault.SetUserSecret(ctx, "user1", domain.KeyToken, "old-access"))
	require.NoError(t, vault.SetUserSecret(ctx, "user1", domain.KeyRefreshToken, "old-refresh"))

	manager.EnsureFreshToken(ctx, "user1")

	require.Equal(t, 0, endpoint.callCount())
}

func TestEnsureFreshToken_FailedRefreshLeavesCredentialUntouched(t *testing.T) {
	endpoint := &tokenEndpoint{
		body: `{"error":"invalid_grant","error_description":"refresh token revoked"}`,
	}
	manager, vault, mem := newTestManager(t, endpoint)
	ctx := context.Background()
	seedCredential(t, vault, "user1", time.Now().Unix()+30)

	before := map[string]string{}
	for _, key := range []string{domain.KeyToken, domain.KeyRefreshToken, domain.KeyTokenExpiresAt} {
		value, err := mem.GetUserValue(ctx, "user1", key)
		require.NoError(t, err)
		before[key] = value
	}

	manager.EnsureFreshToken(ctx, "user1")

	require.Equal(t, 1, endpoint.callCount())
	for key, want := range before {
		value, err := mem.GetUserValue(ctx, "user1", key)
		require.NoError(t, err)
		require.Equal(t, want, value, "stored %s changed after failed refresh", key)
	}
}

func TestEnsureFreshToken_ConcurrentCallsRefreshOnce(t *testing.T) {
	endpoint := &tokenEndpoint{
		body:  `{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600}`,
		delay: 150 * time.Millisecond,
	}
	manager, vault, _ := newTestManager(t, endpoint)
	ctx := context.Background()
	seedCredential(t, vault, "user1", time.Now().Unix()+30)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.EnsureFreshToken(ctx, "user1")
		}()
	}
	wg.Wait()

	require.Equal(t, 1, endpoint.callCount())
}

func TestExchangeAuthorizationCode_PersistsCredential(t *testing.T) {
	endpoint := &tokenEndpoint{
		body: `{"access_token":"first-access","refresh_token":"first-refresh","expires_in":3600,` +
			`"scope":"boards:read boards:write","user_id":"3074457345618265432","team_id":"team-9"}`,
	}
	manager, vault, mem := newTestManager(t, endpoint)
	ctx := context.Background()
	require.NoError(t, vault.SetAppSecret(ctx, domain.KeyClientID, "client-1"))
	require.NoError(t, vault.SetAppSecret(ctx, domain.KeyClientSecret, "secret-1"))

	resp, err := manager.ExchangeAuthorizationCode(ctx, "user1", "auth-code", "https://app.example.com/oauth-redirect")
	require.NoError(t, err)
	require.Equal(t, "first-access", resp.AccessToken)

	require.Equal(t, "authorization_code", endpoint.form("grant_type"))
	require.Equal(t, "auth-code", endpoint.form("code"))
	require.Equal(t, "https://app.example.com/oauth-redirect", endpoint.form("redirect_uri"))

	accessToken, err := vault.GetUserSecret(ctx, "user1", domain.KeyToken)
	require.NoError(t, err)
	require.Equal(t, "first-access", accessToken)

	// Access token must not sit in the store in clear text.
	rawToken, err := mem.GetUserValue(ctx, "user1", domain.KeyToken)
	require.NoError(t, err)
	require.NotEqual(t, "first-access", rawToken)

	scope, err := vault.GetUserValue(ctx, "user1", domain.KeyScope)
	require.NoError(t, err)
	require.Equal(t, "boards:read boards:write", scope)

	providerUserID, err := vault.GetUserValue(ctx, "user1", domain.KeyUserID)
	require.NoError(t, err)
	require.Equal(t, "3074457345618265432", providerUserID)

	teamID, err := vault.GetUserValue(ctx, "user1", domain.KeyTeamID)
	require.NoError(t, err)
	require.Equal(t, "team-9", teamID)
}

func TestExchangeAuthorizationCode_RequiresClientCredentials(t *testing.T) {
	endpoint := &tokenEndpoint{body: `{}`}
	manager, _, _ := newTestManager(t, endpoint)

	_, err := manager.ExchangeAuthorizationCode(context.Background(), "user1", "code", "https://app.example.com")
	require.ErrorIs(t, err, domain.ErrOAuthNotConfigured)
	require.Equal(t, 0, endpoint.callCount())
}

func TestExchangeAuthorizationCode_ProviderErrorSurfacesRefusal(t *testing.T) {
	endpoint := &tokenEndpoint{
		body: `{"error":"invalid_request","error_description":"code expired"}`,
	}
	manager, vault, _ := newTestManager(t, endpoint)
	ctx := context.Background()
	require.NoError(t, vault.SetAppSecret(ctx, domain.KeyClientID, "client-1"))
	require.NoError(t, vault.SetAppSecret(ctx, domain.KeyClientSecret, "secret-1"))

	_, err := manager.ExchangeAuthorizationCode(ctx, "user1", "stale-code", "https://app.example.com")
	require.ErrorIs(t, err, domain.ErrTokenRefused)
}

func TestRequestOAuthToken_StatusAboveBadRequestIsRefused(t *testing.T) {
	endpoint := &tokenEndpoint{status: http.StatusUnauthorized, body: `{"error":"unauthorized"}`}
	manager, _, _ := newTestManager(t, endpoint)

	_, err := manager.RequestOAuthToken(context.Background(), url.Values{"grant_type": {"refresh_token"}})
	require.ErrorIs(t, err, domain.ErrTokenRefused)
}

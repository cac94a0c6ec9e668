// Package token owns the OAuth token lifecycle: expiry checks, the refresh
// protocol, and grant exchanges against the provider token endpoint.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/smallbiznis/boardlink/internal/domain"
	"github.com/smallbiznis/boardlink/internal/secrets"
)

const (
	tokenPath = "/v1/oauth/token"

	// expiryMargin absorbs clock skew and in-flight latency: a token that
	// expires within the margin is treated as already expired.
	expiryMargin = 60 * time.Second
)

// UserAgent identifies boardlink on every outbound provider call.
const UserAgent = "SmallBiznis Boardlink integration"

// Manager guarantees a valid access token is stored for a user before the
// API client issues a request on their behalf.
type Manager struct {
	vault      *secrets.Vault
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger

	// refreshes deduplicates concurrent refresh attempts per user within this
	// process; across processes the policy is last write wins.
	refreshes singleflight.Group

	now func() time.Time
}

// NewManager wires the token manager.
func NewManager(vault *secrets.Vault, client *http.Client, baseURL string, logger *zap.Logger) *Manager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Manager{
		vault:      vault,
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureFreshToken refreshes the stored access token when it expires within
// the safety margin. Credentials without a refresh token or a known expiry
// are left alone. Failures are logged, never returned: a refresh failure must
// not abort the caller's primary action, which will surface a bad-credentials
// result on its own call instead.
func (m *Manager) EnsureFreshToken(ctx context.Context, userID string) {
	refreshToken, err := m.vault.GetUserSecret(ctx, userID, domain.KeyRefreshToken)
	if err != nil {
		m.logger.Warn("read refresh token", zap.String("user", userID), zap.Error(err))
		return
	}
	expiresRaw, err := m.vault.GetUserValue(ctx, userID, domain.KeyTokenExpiresAt)
	if err != nil {
		m.logger.Warn("read token expiry", zap.String("user", userID), zap.Error(err))
		return
	}
	if refreshToken == "" || expiresRaw == "" {
		return
	}

	expiresAt, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		m.logger.Warn("malformed token expiry", zap.String("user", userID), zap.String("value", expiresRaw))
		return
	}

	if m.now().Unix() > expiresAt-int64(expiryMargin.Seconds()) {
		m.refreshes.Do(userID, func() (any, error) {
			return m.refresh(ctx, userID), nil
		})
	}
}

// refresh performs the refresh_token grant and atomically replaces the stored
// token pair and expiry. On any failure nothing is mutated.
func (m *Manager) refresh(ctx context.Context, userID string) bool {
	clientID, err := m.vault.GetAppSecret(ctx, domain.KeyClientID)
	if err != nil {
		m.logger.Error("read client id", zap.Error(err))
		return false
	}
	clientSecret, err := m.vault.GetAppSecret(ctx, domain.KeyClientSecret)
	if err != nil {
		m.logger.Error("read client secret", zap.Error(err))
		return false
	}
	refreshToken, err := m.vault.GetUserSecret(ctx, userID, domain.KeyRefreshToken)
	if err != nil || refreshToken == "" {
		m.logger.Error("no refresh token found", zap.String("user", userID), zap.Error(err))
		return false
	}

	params := url.Values{}
	params.Set("grant_type", "refresh_token")
	params.Set("client_id", clientID)
	params.Set("client_secret", clientSecret)
	params.Set("refresh_token", refreshToken)

	resp, err := m.RequestOAuthToken(ctx, params)
	if err != nil {
		m.logger.Error("token refresh request failed", zap.String("user", userID), zap.Error(err))
		return false
	}
	if resp.AccessToken == "" {
		m.logger.Error("token is not valid anymore and could not be refreshed",
			zap.String("user", userID),
			zap.String("provider_error", resp.Error),
			zap.String("provider_error_description", resp.ErrorDesc),
		)
		return false
	}

	if err := m.persistTokens(ctx, userID, resp); err != nil {
		m.logger.Error("persist refreshed tokens", zap.String("user", userID), zap.Error(err))
		return false
	}

	m.logger.Info("access token refreshed", zap.String("user", userID))
	return true
}

// ExchangeAuthorizationCode performs the initial authorization_code grant and
// persists the resulting credential. Fields the provider returns alongside
// the token pair (scope, user_id, team_id) are stored as well.
func (m *Manager) ExchangeAuthorizationCode(ctx context.Context, userID, code, redirectURI string) (*domain.TokenResponse, error) {
	clientID, err := m.vault.GetAppSecret(ctx, domain.KeyClientID)
	if err != nil {
		return nil, err
	}
	clientSecret, err := m.vault.GetAppSecret(ctx, domain.KeyClientSecret)
	if err != nil {
		return nil, err
	}
	if clientID == "" || clientSecret == "" {
		return nil, domain.ErrOAuthNotConfigured
	}

	params := url.Values{}
	params.Set("grant_type", "authorization_code")
	params.Set("client_id", clientID)
	params.Set("client_secret", clientSecret)
	params.Set("code", code)
	params.Set("redirect_uri", redirectURI)

	resp, err := m.RequestOAuthToken(ctx, params)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrTokenRefused, resp.Error)
		}
		return nil, domain.ErrTokenRefused
	}

	if err := m.persistTokens(ctx, userID, resp); err != nil {
		return nil, err
	}

	extra := map[string]string{}
	if resp.Scope != "" {
		extra[domain.KeyScope] = resp.Scope
	}
	if v := stringValue(resp.Raw["user_id"]); v != "" {
		extra[domain.KeyUserID] = v
	}
	if v := stringValue(resp.Raw["team_id"]); v != "" {
		extra[domain.KeyTeamID] = v
	}
	if len(extra) > 0 {
		if err := m.vault.SetUserSecrets(ctx, userID, extra); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// RequestOAuthToken posts a form-encoded grant request to the provider token
// endpoint and decodes the response. A status >= 400 resolves to
// ErrTokenRefused; transport failures are wrapped, never panicked.
func (m *Manager) RequestOAuthToken(ctx context.Context, params url.Values) (*domain.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+tokenPath, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)

	httpResp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: status=%d", domain.ErrTokenRefused, httpResp.StatusCode)
	}

	var resp domain.TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if err := json.Unmarshal(body, &resp.Raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &resp, nil
}

// persistTokens writes the new token pair and expiry in one batch so a
// partially applied refresh can never corrupt the stored credential.
func (m *Manager) persistTokens(ctx context.Context, userID string, resp *domain.TokenResponse) error {
	values := map[string]string{
		domain.KeyToken:        resp.AccessToken,
		domain.KeyRefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		values[domain.KeyTokenExpiresAt] = strconv.FormatInt(m.now().Unix()+resp.ExpiresIn, 10)
	}
	return m.vault.SetUserSecrets(ctx, userID, values, domain.KeyToken, domain.KeyRefreshToken)
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

package handler

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/boardlink/internal/config"
	"github.com/smallbiznis/boardlink/internal/domain"
	"github.com/smallbiznis/boardlink/internal/http/middleware"
	"github.com/smallbiznis/boardlink/internal/provider"
	"github.com/smallbiznis/boardlink/internal/secrets"
	"github.com/smallbiznis/boardlink/internal/token"
)

// ConfigHandler serves connection status, the OAuth flow, and settings writes.
type ConfigHandler struct {
	Cfg    config.Config
	Vault  *secrets.Vault
	Tokens *token.Manager
	Client *provider.Client
	Logger *zap.Logger
}

// NewConfigHandler creates the handler set.
func NewConfigHandler(cfg config.Config, vault *secrets.Vault, tokens *token.Manager, client *provider.Client, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{Cfg: cfg, Vault: vault, Tokens: tokens, Client: client, Logger: logger}
}

// IsConnected reports the user's connection flag, whether OAuth is available,
// and whether the popup flow is configured.
func (h *ConfigHandler) IsConnected(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ctx := c.Request.Context()

	accessToken, err := h.Vault.GetUserSecret(ctx, userID, domain.KeyToken)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	clientID, err := h.Vault.GetAppSecret(ctx, domain.KeyClientID)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	clientSecret, err := h.Vault.GetAppSecret(ctx, domain.KeyClientSecret)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	usePopup, err := h.Vault.GetAppValue(ctx, domain.KeyUsePopup)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":      accessToken != "",
		"oauth_possible": clientID != "" && clientSecret != "",
		"use_popup":      usePopup == "1",
		"client_id":      clientID,
	})
}

// Connect prepares the authorization redirect: it generates a random state,
// stores it with the callback target, and returns the provider authorization
// URL for the host to redirect (or pop up) to.
func (h *ConfigHandler) Connect(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ctx := c.Request.Context()

	redirectURI := c.Query("redirect_uri")
	if redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "redirect_uri is required"})
		return
	}

	clientID, err := h.Vault.GetAppSecret(ctx, domain.KeyClientID)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	clientSecret, err := h.Vault.GetAppSecret(ctx, domain.KeyClientSecret)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	if clientID == "" || clientSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrOAuthNotConfigured.Error()})
		return
	}

	state, err := secureRandomString(32)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate state failed"})
		return
	}

	err = h.Vault.SetUserSecrets(ctx, userID, map[string]string{
		domain.KeyOAuthState:  state,
		domain.KeyRedirectURI: redirectURI,
		domain.KeyOAuthOrigin: c.DefaultQuery("origin", "settings"),
	})
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	authURL, err := url.Parse(h.Cfg.ProviderAuthorizeURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bad authorize URL"})
		return
	}
	params := authURL.Query()
	params.Set("response_type", "code")
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	authURL.RawQuery = params.Encode()

	c.JSON(http.StatusOK, gin.H{
		"authorization_url": authURL.String(),
		"state":             state,
	})
}

// OAuthRedirect receives the authorization code, exchanges it, persists the
// credential, and redirects to a success page or back to settings with an
// error message. The stored state is consumed and deleted regardless of the
// verification outcome.
func (h *ConfigHandler) OAuthRedirect(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ctx := c.Request.Context()

	code := c.Query("code")
	state := c.Query("state")

	storedState, err := h.Vault.GetUserValue(ctx, userID, domain.KeyOAuthState)
	if err != nil {
		h.redirectError(c, err.Error())
		return
	}
	if err := h.Vault.DeleteUserValue(ctx, userID, domain.KeyOAuthState); err != nil {
		h.Logger.Warn("failed to delete oauth state", zap.String("user", userID), zap.Error(err))
	}

	if storedState == "" || storedState != state {
		h.redirectError(c, domain.ErrInvalidState.Error())
		return
	}

	redirectURI, err := h.Vault.GetUserValue(ctx, userID, domain.KeyRedirectURI)
	if err != nil {
		h.redirectError(c, err.Error())
		return
	}

	if _, err := h.Tokens.ExchangeAuthorizationCode(ctx, userID, code, redirectURI); err != nil {
		h.Logger.Error("authorization code exchange failed", zap.String("user", userID), zap.Error(err))
		h.redirectError(c, fmt.Sprintf("Error getting OAuth access token. %s", err.Error()))
		return
	}

	identity, err := h.Client.StoreUserInfo(ctx, userID)
	if err != nil {
		h.Logger.Warn("identity lookup after exchange failed", zap.String("user", userID), zap.Error(err))
	}

	origin, _ := h.Vault.GetUserValue(ctx, userID, domain.KeyOAuthOrigin)
	if err := h.Vault.DeleteUserValue(ctx, userID, domain.KeyOAuthOrigin); err != nil {
		h.Logger.Warn("failed to delete oauth origin", zap.String("user", userID), zap.Error(err))
	}

	usePopup, _ := h.Vault.GetAppValue(ctx, domain.KeyUsePopup)
	switch {
	case usePopup == "1":
		c.Redirect(http.StatusFound, "/popup-success?"+url.Values{
			"user_name": {identity.UserName},
			"user_id":   {identity.UserID},
		}.Encode())
	case origin == "app":
		c.Redirect(http.StatusFound, "/")
	default:
		c.Redirect(http.StatusFound, h.Cfg.SettingsURL+"?boardToken=success")
	}
}

// PopupSuccess returns the connected identity for the popup close page.
func (h *ConfigHandler) PopupSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_name": c.Query("user_name"),
		"user_id":   c.Query("user_id"),
	})
}

// SetConfig writes user settings. The token key is special-cased: clearing it
// revokes the remote token and cascade-deletes the credential and identity;
// setting it stores the encrypted value and repopulates identity. Either way
// the refresh token and expiry are reset.
func (h *ConfigHandler) SetConfig(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ctx := c.Request.Context()

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if tokenValue, ok := values[domain.KeyToken]; ok && tokenValue == "" {
		h.Client.RevokeToken(ctx, userID)
	}

	for key, value := range values {
		var err error
		if key == domain.KeyToken && value != "" {
			err = h.Vault.SetUserSecret(ctx, userID, key, value)
		} else {
			err = h.Vault.SetUserValue(ctx, userID, key, value)
		}
		if err != nil {
			h.respondStoreError(c, err)
			return
		}
	}

	result := gin.H{}
	if tokenValue, ok := values[domain.KeyToken]; ok {
		if tokenValue != "" {
			identity, err := h.Client.StoreUserInfo(ctx, userID)
			if err != nil {
				h.respondStoreError(c, err)
				return
			}
			result[domain.KeyUserID] = identity.UserID
			result[domain.KeyUserName] = identity.UserName
		} else {
			for _, key := range domain.IdentityKeys {
				if err := h.Vault.DeleteUserValue(ctx, userID, key); err != nil {
					h.respondStoreError(c, err)
					return
				}
			}
			if err := h.Vault.DeleteUserValue(ctx, userID, domain.KeyToken); err != nil {
				h.respondStoreError(c, err)
				return
			}
			result[domain.KeyUserID] = ""
			result[domain.KeyUserName] = ""
		}

		for _, key := range []string{domain.KeyRefreshToken, domain.KeyTokenExpiresAt} {
			if err := h.Vault.DeleteUserValue(ctx, userID, key); err != nil {
				h.respondStoreError(c, err)
				return
			}
		}
	}

	c.JSON(http.StatusOK, result)
}

// SetAdminConfig writes non-sensitive app settings. Client credentials must
// go through the sensitive endpoint.
func (h *ConfigHandler) SetAdminConfig(c *gin.Context) {
	ctx := c.Request.Context()

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	for key, value := range values {
		if key == domain.KeyClientID || key == domain.KeyClientSecret {
			c.JSON(http.StatusBadRequest, gin.H{"error": "client credentials are sensitive"})
			return
		}
		if err := h.Vault.SetAppValue(ctx, key, value); err != nil {
			h.respondStoreError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SetSensitiveAdminConfig stores admin settings, encrypting the client
// credentials at app scope.
func (h *ConfigHandler) SetSensitiveAdminConfig(c *gin.Context) {
	ctx := c.Request.Context()

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	for key, value := range values {
		var err error
		if (key == domain.KeyClientID || key == domain.KeyClientSecret) && value != "" {
			err = h.Vault.SetAppSecret(ctx, key, value)
		} else {
			err = h.Vault.SetAppValue(ctx, key, value)
		}
		if err != nil {
			h.respondStoreError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ConfigHandler) respondStoreError(c *gin.Context, err error) {
	h.Logger.Error("settings store failure", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "settings store failure"})
}

func (h *ConfigHandler) redirectError(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, h.Cfg.SettingsURL+"?"+url.Values{
		"boardToken": {"error"},
		"message":    {message},
	}.Encode())
}

func secureRandomString(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random string: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

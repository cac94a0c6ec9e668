package provider

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/smallbiznis/boardlink/internal/domain"
)

// RevokeToken invalidates the user's access token at the provider. The revoke
// endpoint signals success with an empty body; anything else is a failure.
// Invoked before the local credential is deleted on explicit disconnect.
func (c *Client) RevokeToken(ctx context.Context, userID string) bool {
	accessToken, err := c.vault.GetUserSecret(ctx, userID, domain.KeyToken)
	if err != nil || accessToken == "" {
		return false
	}

	endpoint := "v1/oauth/revoke?access_token=" + url.QueryEscape(accessToken)
	res, err := c.Call(ctx, userID, endpoint, nil, http.MethodPost, false)
	if err != nil {
		c.logger.Debug("token revoke failed", zap.String("user", userID), zap.Error(err))
		return false
	}
	return len(res.Body) == 0
}

package provider

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/smallbiznis/boardlink/internal/domain"
)

// whoAmIEndpoint returns the token's owning user and team.
const whoAmIEndpoint = "v1/oauth-token"

// StoreUserInfo refreshes the stored display identity from the provider.
// A response missing any required field clears the identity fields instead of
// leaving a stale one from a previous connection; that path is not an error.
func (c *Client) StoreUserInfo(ctx context.Context, userID string) (domain.Identity, error) {
	res, err := c.Call(ctx, userID, whoAmIEndpoint, nil, http.MethodGet, true)
	if err != nil {
		c.logger.Debug("identity lookup failed", zap.String("user", userID), zap.Error(err))
		return domain.Identity{}, c.clearIdentity(ctx, userID)
	}

	payload, _ := res.JSON.(map[string]any)
	user, _ := payload["user"].(map[string]any)
	team, _ := payload["team"].(map[string]any)

	identity := domain.Identity{
		UserID:   stringValue(user["id"]),
		UserName: stringValue(user["name"]),
		TeamID:   stringValue(team["id"]),
		TeamName: stringValue(team["name"]),
	}
	if identity.UserID == "" || identity.UserName == "" || identity.TeamID == "" || identity.TeamName == "" {
		return domain.Identity{}, c.clearIdentity(ctx, userID)
	}

	err = c.vault.SetUserSecrets(ctx, userID, map[string]string{
		domain.KeyUserID:   identity.UserID,
		domain.KeyUserName: identity.UserName,
		domain.KeyTeamID:   identity.TeamID,
		domain.KeyTeamName: identity.TeamName,
	})
	if err != nil {
		return domain.Identity{}, err
	}
	return identity, nil
}

func (c *Client) clearIdentity(ctx context.Context, userID string) error {
	values := make(map[string]string, len(domain.IdentityKeys))
	for _, key := range domain.IdentityKeys {
		values[key] = ""
	}
	return c.vault.SetUserSecrets(ctx, userID, values)
}

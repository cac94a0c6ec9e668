package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// Avatar is the outcome of an avatar lookup: either raw image bytes or the
// entity's profile for the caller to render a generated placeholder from.
type Avatar struct {
	Content []byte
	Info    map[string]any
}

// avatarTier is one step of the fallback chain. Image tiers win with raw
// bytes; the profile tier terminates the chain with an identity payload.
type avatarTier struct {
	endpoint string
	image    bool
}

// GetUserAvatar resolves a user avatar through the three-tier fallback:
// real image, provider default image, then profile for a placeholder.
func (c *Client) GetUserAvatar(ctx context.Context, userID, remoteUserID string) (*Avatar, error) {
	return c.resolveAvatar(ctx, userID, []avatarTier{
		{endpoint: "users/" + remoteUserID + "/image", image: true},
		{endpoint: "users/" + remoteUserID + "/image/default", image: true},
		{endpoint: "users/" + remoteUserID},
	})
}

// GetTeamAvatar resolves a team avatar. Teams have no default-image tier.
func (c *Client) GetTeamAvatar(ctx context.Context, userID, remoteTeamID string) (*Avatar, error) {
	return c.resolveAvatar(ctx, userID, []avatarTier{
		{endpoint: "teams/" + remoteTeamID + "/image", image: true},
		{endpoint: "teams/" + remoteTeamID},
	})
}

// resolveAvatar tries each tier in order; the first non-empty result wins.
// Image tiers that fail or come back structured (meaning "no image") fall
// through to the next tier.
func (c *Client) resolveAvatar(ctx context.Context, userID string, tiers []avatarTier) (*Avatar, error) {
	for _, tier := range tiers {
		if tier.image {
			res, err := c.Call(ctx, userID, tier.endpoint, nil, http.MethodGet, false)
			if err != nil {
				continue
			}
			if len(res.Body) > 0 && !isStructured(res.Body) {
				return &Avatar{Content: res.Body}, nil
			}
			continue
		}

		res, err := c.Call(ctx, userID, tier.endpoint, nil, http.MethodGet, true)
		if err != nil {
			return nil, err
		}
		info, _ := res.JSON.(map[string]any)
		return &Avatar{Info: info}, nil
	}
	return &Avatar{}, nil
}

// isStructured reports whether a body is a JSON document rather than raw
// image bytes.
func isStructured(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return false
	}
	return json.Valid(trimmed)
}

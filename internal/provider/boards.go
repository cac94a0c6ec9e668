package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/smallbiznis/boardlink/internal/domain"
)

const boardsEndpoint = "v2/boards"

// Board creation ships the provider's default permission and sharing policy
// alongside the caller-supplied fields.
var (
	defaultPermissionPolicy = map[string]any{
		"collaborationToolsStartAccess": "all_editors",
		"copyAccess":                    "anyone",
		"sharingAccess":                 "team_members_with_editing_rights",
	}
	defaultSharingPolicy = map[string]any{
		"access":                            "edit",
		"inviteToAccountAndBoardLinkAccess": "editor",
		"organizationAccess":                "edit",
		"teamAccess":                        "edit",
	}
)

type boardListPayload struct {
	Data []domain.Board `json:"data"`
}

// ListBoards returns the boards of the acting user's stored team, most
// recently modified first.
func (c *Client) ListBoards(ctx context.Context, userID string) ([]domain.Board, error) {
	teamID, err := c.vault.GetUserValue(ctx, userID, domain.KeyTeamID)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		"team_id": teamID,
		"limit":   "50",
		"sort":    "last_modified",
	}
	res, err := c.Call(ctx, userID, boardsEndpoint, params, http.MethodGet, true)
	if err != nil {
		return nil, err
	}

	var payload boardListPayload
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode board list: %w", err)
	}
	for i := range payload.Data {
		payload.Data[i].Format()
	}
	return payload.Data, nil
}

// CreateBoard creates a board with the default sharing policy and returns the
// formatted result.
func (c *Client) CreateBoard(ctx context.Context, userID, name, description, teamID string) (*domain.Board, error) {
	params := map[string]any{
		"name":             name,
		"description":      description,
		"teamId":           teamID,
		"permissionPolicy": defaultPermissionPolicy,
		"sharingPolicy":    defaultSharingPolicy,
	}
	res, err := c.Call(ctx, userID, boardsEndpoint, params, http.MethodPost, true)
	if err != nil {
		return nil, err
	}

	var board domain.Board
	if err := json.Unmarshal(res.Body, &board); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	board.Format()
	return &board, nil
}

// DeleteBoard removes a board. The provider signals success with an empty
// body; any non-null payload on a 2xx status is still a failure.
func (c *Client) DeleteBoard(ctx context.Context, userID, boardID string) error {
	res, err := c.Call(ctx, userID, boardsEndpoint+"/"+boardID, nil, http.MethodDelete, true)
	if err != nil {
		return err
	}
	if res.JSON != nil {
		return fmt.Errorf("delete board %s: unexpected response body", boardID)
	}
	return nil
}

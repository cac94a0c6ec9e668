package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/boardlink/internal/domain"
	"github.com/smallbiznis/boardlink/internal/http/middleware"
	"github.com/smallbiznis/boardlink/internal/provider"
)

// BoardHandler exposes the board and avatar operations.
type BoardHandler struct {
	Client *provider.Client
	Logger *zap.Logger
}

// NewBoardHandler creates the handler set.
func NewBoardHandler(client *provider.Client, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{Client: client, Logger: logger}
}

// GetBoards lists the acting user's team boards.
func (h *BoardHandler) GetBoards(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	boards, err := h.Client.ListBoards(c.Request.Context(), userID)
	if err != nil {
		respondProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, boards)
}

type createBoardRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	TeamID      string `json:"teamId" binding:"required"`
}

// CreateBoard creates a board in the given team.
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req createBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	board, err := h.Client.CreateBoard(c.Request.Context(), userID, req.Name, req.Description, req.TeamID)
	if err != nil {
		respondProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// DeleteBoard removes a board.
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.Client.DeleteBoard(c.Request.Context(), userID, c.Param("boardId")); err != nil {
		respondProviderError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// GetUserAvatar serves a remote user's avatar, falling back to an identity
// payload when the provider has no image for them.
func (h *BoardHandler) GetUserAvatar(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	avatar, err := h.Client.GetUserAvatar(c.Request.Context(), userID, c.Param("userId"))
	if err != nil {
		respondProviderError(c, err)
		return
	}
	respondAvatar(c, avatar, "userInfo")
}

// GetTeamAvatar serves a team's avatar with the same fallback contract.
func (h *BoardHandler) GetTeamAvatar(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	avatar, err := h.Client.GetTeamAvatar(c.Request.Context(), userID, c.Param("teamId"))
	if err != nil {
		respondProviderError(c, err)
		return
	}
	respondAvatar(c, avatar, "teamInfo")
}

func respondAvatar(c *gin.Context, avatar *provider.Avatar, infoKey string) {
	switch {
	case len(avatar.Content) > 0:
		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, http.DetectContentType(avatar.Content), avatar.Content)
	case avatar.Info != nil:
		c.JSON(http.StatusOK, gin.H{infoKey: avatar.Info})
	default:
		c.Status(http.StatusNotFound)
	}
}

// respondProviderError keeps the error surface uniform: upstream rejections
// become a generic bad-credentials message, everything else carries its own.
func respondProviderError(c *gin.Context, err error) {
	message := err.Error()
	if errors.Is(err, domain.ErrBadCredentials) {
		message = "Bad credentials"
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

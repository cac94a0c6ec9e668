package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/smallbiznis/boardlink/internal/config"
	"github.com/smallbiznis/boardlink/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/boardlink/internal/http/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, configHandler *handler.ConfigHandler, boardHandler *handler.BoardHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	r.Use(httpmiddleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Admin settings writes; admin authorization is enforced by the host in
	// front of this service.
	r.PUT("/admin-config", configHandler.SetAdminConfig)
	r.PUT("/sensitive-admin-config", configHandler.SetSensitiveAdminConfig)

	r.GET("/popup-success", configHandler.PopupSuccess)

	user := r.Group("/", httpmiddleware.RequireUser)
	{
		user.GET("/is-connected", configHandler.IsConnected)
		user.GET("/oauth/connect", configHandler.Connect)
		user.GET("/oauth-redirect", configHandler.OAuthRedirect)
		user.PUT("/config", configHandler.SetConfig)

		user.GET("/boards", boardHandler.GetBoards)
		user.POST("/boards", boardHandler.CreateBoard)
		user.DELETE("/boards/:boardId", boardHandler.DeleteBoard)
		user.GET("/users/:userId/image", boardHandler.GetUserAvatar)
		user.GET("/teams/:teamId/image", boardHandler.GetTeamAvatar)
	}

	return r
}

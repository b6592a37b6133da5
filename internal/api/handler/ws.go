package handler

import (
	"net/http"

	"chatterbox/backend/internal/auth"
	"chatterbox/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow any origin; tighten behind a gateway in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and registers it as a
// delivery channel for the authenticated actor. Browsers cannot set
// headers on websocket dials, so the token is also accepted as a
// query parameter.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
		return
	}

	claims, err := h.Auth.ValidateToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	client := chathub.NewWebSocketClient(claims.UserID, conn, h.Hub, h.Log)
	h.Hub.Register(client)
	client.Run()

	h.Log.Debug("websocket connected", zap.String("user_id", claims.UserID))
}

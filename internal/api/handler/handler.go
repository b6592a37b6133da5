// Package handler exposes the REST and websocket surface over the
// chat core.
package handler

import (
	"errors"
	"net/http"

	"chatterbox/backend/internal/apperr"
	"chatterbox/backend/internal/auth"
	"chatterbox/backend/internal/chathub"
	"chatterbox/backend/internal/chats"
	"chatterbox/backend/internal/messages"
	"chatterbox/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	Store    storage.Storage
	Chats    *chats.Service
	Messages *messages.Service
	Hub      *chathub.Hub
	Auth     *auth.Manager
	Log      *zap.Logger
}

func NewHandler(store storage.Storage, chatSvc *chats.Service, msgSvc *messages.Service,
	hub *chathub.Hub, authMgr *auth.Manager, log *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		Chats:    chatSvc,
		Messages: msgSvc,
		Hub:      hub,
		Auth:     authMgr,
		Log:      log,
	}
}

// RegisterRoutes wires every endpoint onto the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/users/register", h.Register)
	api.POST("/users/login", h.Login)

	authed := api.Group("", h.Auth.Middleware())
	authed.GET("/users", h.SearchUsers)
	authed.GET("/users/online", h.OnlineUsers)
	authed.PATCH("/users/profile", h.UpdateProfile)
	authed.PUT("/users/wallpaper", h.UpdateWallpaper)

	authed.GET("/chats", h.MyChats)
	authed.POST("/chats/direct", h.DirectChat)
	authed.POST("/chats/group", h.CreateGroup)
	authed.PATCH("/chats/group/:chatId/rename", h.RenameGroup)
	authed.PATCH("/chats/group/:chatId/add", h.AddMember)
	authed.PATCH("/chats/group/:chatId/remove", h.RemoveMember)
	authed.PATCH("/chats/group/:chatId/leave", h.LeaveGroup)
	authed.DELETE("/chats/group/:chatId", h.DeleteGroup)

	authed.GET("/messages/:chatId", h.ListMessages)
	authed.POST("/messages/create/:chatId", h.CreateMessage)

	r.GET("/ws", h.ServeWebSocket)
}

// actor returns the authenticated user ID injected by the middleware.
func actor(c *gin.Context) string {
	return c.GetString(auth.ContextUserID)
}

// fail renders an error with its stable code; unexpected errors are
// logged and surfaced as a generic upstream failure.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := "something went wrong"

	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"success": false,
		"code":    string(apperr.CodeOf(err)),
		"message": msg,
	})
}

package handler

import (
	"net/http"

	"chatterbox/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// MyChats returns the actor's chats, most recently active first. The
// client seeds its reconciler from this snapshot.
func (h *Handler) MyChats(c *gin.Context) {
	chats, err := h.Chats.MyChats(actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chats fetched.", "chats": chats})
}

type directChatRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// DirectChat returns the direct chat with another user, creating it if
// it does not exist yet.
func (h *Handler) DirectChat(c *gin.Context) {
	var req directChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("invalid user"))
		return
	}

	chat, created, err := h.Chats.GetOrCreateDirectChat(actor(c), req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	msg := "Chat found."
	if created {
		status = http.StatusCreated
		msg = "Chat created."
	}
	c.JSON(status, gin.H{"success": true, "message": msg, "chat": chat})
}

type createGroupRequest struct {
	ChatName string   `json:"chatName" binding:"required"`
	Users    []string `json:"users" binding:"required"`
}

// CreateGroup creates a group chat with the actor as admin.
func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("chat name and users are required"))
		return
	}

	chat, err := h.Chats.CreateGroup(actor(c), req.ChatName, req.Users)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "New Group Chat created.", "chat": chat})
}

type renameGroupRequest struct {
	NewName string `json:"newName" binding:"required"`
}

// RenameGroup renames a group chat. Admin only.
func (h *Handler) RenameGroup(c *gin.Context) {
	var req renameGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("new name is required"))
		return
	}

	chat, err := h.Chats.RenameGroup(actor(c), c.Param("chatId"), req.NewName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Group renamed.", "chat": chat})
}

type memberRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// AddMember adds a user to a group chat. Admin only.
func (h *Handler) AddMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("user id is required"))
		return
	}

	chat, err := h.Chats.AddMember(actor(c), c.Param("chatId"), req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User added to group.", "chat": chat})
}

// RemoveMember removes a user from a group chat. Admin only. Removing
// the last member deletes the group.
func (h *Handler) RemoveMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("user id is required"))
		return
	}

	chat, err := h.Chats.RemoveMember(c.Request.Context(), actor(c), c.Param("chatId"), req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if chat == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User removed from group and group chat deleted."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User removed from group.", "chat": chat})
}

// LeaveGroup removes the actor from a group chat they belong to.
func (h *Handler) LeaveGroup(c *gin.Context) {
	chat, err := h.Chats.LeaveGroup(c.Request.Context(), actor(c), c.Param("chatId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if chat == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "You left the group and the group was deleted."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You have left the group.", "chat": chat})
}

// DeleteGroup deletes a group chat and all of its messages. Admin
// only.
func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.Chats.DeleteGroup(c.Request.Context(), actor(c), c.Param("chatId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Group deleted."})
}

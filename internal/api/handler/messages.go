package handler

import (
	"net/http"
	"strconv"

	"chatterbox/backend/internal/apperr"
	"chatterbox/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ListMessages returns one history page for a chat, oldest first
// within the page. Page 1 is the most recent page.
func (h *Handler) ListMessages(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	msgs, count, err := h.Messages.ListPage(c.Param("chatId"), page)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Messages fetched successfully.",
		"count":    count,
		"messages": msgs,
	})
}

type createMessageRequest struct {
	Message struct {
		MessageContent string          `json:"messageContent"`
		IsFile         bool            `json:"isFile"`
		FileInfo       *models.FileRef `json:"fileInfo"`
	} `json:"message" binding:"required"`
}

// CreateMessage persists a new message and returns it fully resolved
// for the client to fan out over its socket.
func (h *Handler) CreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("message is required"))
		return
	}

	var file *models.FileRef
	if req.Message.IsFile && req.Message.FileInfo != nil {
		file = req.Message.FileInfo
	}

	msg, err := h.Messages.Create(actor(c), c.Param("chatId"), req.Message.MessageContent, file)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"message":        "New Message created.",
		"createdMessage": msg,
	})
}

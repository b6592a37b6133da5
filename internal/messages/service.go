// Package messages creates chat messages and paginates history.
package messages

import (
	"strings"

	"chatterbox/backend/internal/apperr"
	"chatterbox/backend/internal/chats"
	"chatterbox/backend/internal/metrics"
	"chatterbox/backend/internal/models"
	"chatterbox/backend/internal/storage"

	"go.uber.org/zap"
)

// PageSize is the fixed history page size. Page 1 is the most recent
// PageSize messages, page 2 the previous PageSize, and so on.
const PageSize = 50

type Service struct {
	store storage.Storage
	log   *zap.Logger
}

func NewService(store storage.Storage, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Create persists a message, bumps the chat's latest-activity pointer
// and returns the message with sender and chat resolved for delivery.
// The sender must be a member of the chat.
func (s *Service) Create(actorID, chatID, content string, file *models.FileRef) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" && file == nil {
		return nil, apperr.Validation("message content or attachment is required")
	}

	chat, err := s.store.FindChatByID(chatID)
	if err != nil {
		return nil, apperr.Upstream("failed to fetch chat", err)
	}
	if chat == nil {
		return nil, apperr.NotFound("chat not found")
	}
	if !chat.HasMember(actorID) {
		return nil, apperr.Forbidden("sender is not a member of this chat")
	}

	msg := &models.Message{
		ChatID:   chatID,
		SenderID: actorID,
		Content:  content,
	}
	if file != nil {
		msg.IsFile = true
		msg.File = *file
	}

	if err := s.store.CreateMessage(msg); err != nil {
		return nil, apperr.Upstream("failed to create message", err)
	}
	if err := s.store.SetLatestMessage(chatID, msg.ID); err != nil {
		return nil, apperr.Upstream("failed to update latest message", err)
	}
	metrics.MessagesCreated.Inc()

	sender, err := s.store.FindUserByID(actorID)
	if err != nil {
		return nil, apperr.Upstream("failed to resolve sender", err)
	}
	msg.Sender = sender

	chat.LatestMessageID = &msg.ID
	chat.LatestMessage = msg
	if err := chats.ResolveChat(s.store, chat); err != nil {
		return nil, err
	}
	msg.Chat = chat

	s.log.Debug("message created",
		zap.Uint("message_id", msg.ID),
		zap.String("chat_id", chatID))
	return msg, nil
}

// ListPage returns one history page in ascending chronological order,
// paginating backward from now: page 1 holds the newest PageSize
// messages. Pages below 1 are treated as page 1; pages past the end
// come back empty. The total message count is returned alongside.
func (s *Service) ListPage(chatID string, page int) ([]models.Message, int64, error) {
	chat, err := s.store.FindChatByID(chatID)
	if err != nil {
		return nil, 0, apperr.Upstream("failed to fetch chat", err)
	}
	if chat == nil {
		return nil, 0, apperr.NotFound("chat not found")
	}

	if page < 1 {
		page = 1
	}

	count, err := s.store.CountMessagesByChat(chatID)
	if err != nil {
		return nil, 0, apperr.Upstream("failed to count messages", err)
	}

	msgs, err := s.store.FindMessagesByChatPage(chatID, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, 0, apperr.Upstream("failed to fetch messages", err)
	}

	// Storage order is newest-first; callers always receive ascending
	// chronological order within a page.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, count, nil
}

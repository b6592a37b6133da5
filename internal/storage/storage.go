package storage

import (
	"context"
	"errors"

	"chatterbox/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// presenceKey is the redis set holding the IDs of users with at least
// one live delivery channel.
const presenceKey = "presence:online"

// Storage is the repository surface the chat core depends on. Lookups
// return (nil, nil) when the entity does not exist; callers translate
// that into their own not-found errors.
type Storage interface {
	CreateUser(user *models.User) error
	SaveUser(user *models.User) error
	FindUserByID(id string) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	FindUsersByIDs(ids []string) ([]models.User, error)
	SearchUsers(keyword, excludeID string) ([]models.User, error)

	CreateChat(chat *models.Chat) error
	SaveChat(chat *models.Chat) error
	DeleteChat(chatID string) error
	FindChatByID(chatID string) (*models.Chat, error)
	FindChatsByMember(userID string) ([]models.Chat, error)
	FindDirectChatByPair(pairKey string) (*models.Chat, error)

	CreateMessage(msg *models.Message) error
	FindMessageByID(id uint) (*models.Message, error)
	FindMessagesByChatPage(chatID string, offset, limit int) ([]models.Message, error)
	CountMessagesByChat(chatID string) (int64, error)
	FindFileMessagesByChat(chatID string) ([]models.Message, error)
	DeleteMessagesByChat(chatID string) error
	SetLatestMessage(chatID string, messageID uint) error
	ClearLatestMessage(chatID string) error

	MarkOnline(userID string) error
	MarkOffline(userID string) error
	OnlineUsers() ([]string, error)
}

// Service implements Storage on top of PostgreSQL (entities) and Redis
// (ephemeral presence).
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// --- Users ---

func (s *Service) CreateUser(user *models.User) error {
	return s.DB.Create(user).Error
}

func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *Service) FindUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) FindUsersByIDs(ids []string) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := s.DB.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SearchUsers matches name or email case-insensitively, excluding the
// searching user themselves.
func (s *Service) SearchUsers(keyword, excludeID string) ([]models.User, error) {
	var users []models.User
	pattern := "%" + keyword + "%"
	err := s.DB.
		Where("id <> ?", excludeID).
		Where("name ILIKE ? OR email ILIKE ?", pattern, pattern).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// --- Chats ---

func (s *Service) CreateChat(chat *models.Chat) error {
	return s.DB.Create(chat).Error
}

func (s *Service) SaveChat(chat *models.Chat) error {
	return s.DB.Save(chat).Error
}

func (s *Service) DeleteChat(chatID string) error {
	return s.DB.Delete(&models.Chat{}, "id = ?", chatID).Error
}

func (s *Service) FindChatByID(chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.
		Preload("LatestMessage").
		Preload("LatestMessage.Sender").
		First(&chat, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindChatsByMember returns every chat containing userID, most recently
// active first.
func (s *Service) FindChatsByMember(userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.DB.
		Preload("LatestMessage").
		Preload("LatestMessage.Sender").
		Where("? = ANY(members)", userID).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *Service) FindDirectChatByPair(pairKey string) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.
		Preload("LatestMessage").
		Preload("LatestMessage.Sender").
		First(&chat, "pair_key = ?", pairKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// --- Messages ---

func (s *Service) CreateMessage(msg *models.Message) error {
	return s.DB.Create(msg).Error
}

func (s *Service) FindMessageByID(id uint) (*models.Message, error) {
	var msg models.Message
	err := s.DB.Preload("Sender").First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindMessagesByChatPage returns messages newest-first; callers reverse
// a page into chronological order before handing it out.
func (s *Service) FindMessagesByChatPage(chatID string, offset, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.
		Preload("Sender").
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Service) CountMessagesByChat(chatID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&count).Error
	return count, err
}

// FindFileMessagesByChat returns the messages whose attachments need
// releasing before a cascade delete.
func (s *Service) FindFileMessagesByChat(chatID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.
		Where("chat_id = ? AND is_file = ?", chatID, true).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Service) DeleteMessagesByChat(chatID string) error {
	return s.DB.Delete(&models.Message{}, "chat_id = ?", chatID).Error
}

func (s *Service) SetLatestMessage(chatID string, messageID uint) error {
	return s.DB.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("latest_message_id", messageID).Error
}

// ClearLatestMessage drops the latest-activity pointer so the chat's
// messages can be deleted without violating the reference.
func (s *Service) ClearLatestMessage(chatID string) error {
	return s.DB.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("latest_message_id", nil).Error
}

// --- Presence ---

func (s *Service) MarkOnline(userID string) error {
	return s.Redis.SAdd(s.Ctx, presenceKey, userID).Err()
}

func (s *Service) MarkOffline(userID string) error {
	return s.Redis.SRem(s.Ctx, presenceKey, userID).Err()
}

func (s *Service) OnlineUsers() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, presenceKey).Result()
}

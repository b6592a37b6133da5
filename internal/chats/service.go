// Package chats implements the chat lifecycle: direct-chat creation,
// group creation and membership edits, admin succession and cascade
// deletion. All invariants around the member set live here.
package chats

import (
	"context"
	"strings"

	"chatterbox/backend/internal/apperr"
	"chatterbox/backend/internal/attachments"
	"chatterbox/backend/internal/models"
	"chatterbox/backend/internal/storage"

	"go.uber.org/zap"
)

// Service enforces the chat lifecycle invariants. Operations on the
// same chat are serialized through per-chat locks; different chats
// proceed in parallel.
type Service struct {
	store storage.Storage
	files attachments.Store
	log   *zap.Logger
	locks *keyedLocks
}

func NewService(store storage.Storage, files attachments.Store, log *zap.Logger) *Service {
	return &Service{
		store: store,
		files: files,
		log:   log,
		locks: newKeyedLocks(),
	}
}

// MyChats returns every chat the actor belongs to, most recently
// active first, with members resolved for display.
func (s *Service) MyChats(actorID string) ([]models.Chat, error) {
	chats, err := s.store.FindChatsByMember(actorID)
	if err != nil {
		return nil, apperr.Upstream("failed to fetch chats", err)
	}
	for i := range chats {
		if err := ResolveChat(s.store, &chats[i]); err != nil {
			return nil, err
		}
	}
	return chats, nil
}

// GetChat returns a single chat the actor belongs to.
func (s *Service) GetChat(actorID, chatID string) (*models.Chat, error) {
	chat, err := s.store.FindChatByID(chatID)
	if err != nil {
		return nil, apperr.Upstream("failed to fetch chat", err)
	}
	if chat == nil || !chat.HasMember(actorID) {
		return nil, apperr.NotFound("chat not found")
	}
	if err := ResolveChat(s.store, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetOrCreateDirectChat finds the direct chat between actor and other,
// creating it when missing. At most one such chat exists per unordered
// pair; concurrent calls for the same pair resolve to a single chat.
func (s *Service) GetOrCreateDirectChat(actorID, otherID string) (*models.Chat, bool, error) {
	if otherID == "" || otherID == actorID {
		return nil, false, apperr.Validation("invalid target user")
	}

	other, err := s.store.FindUserByID(otherID)
	if err != nil {
		return nil, false, apperr.Upstream("failed to look up user", err)
	}
	if other == nil {
		return nil, false, apperr.NotFound("user not found")
	}

	pairKey := models.DirectPairKey(actorID, otherID)
	unlock := s.locks.Lock(pairKey)
	defer unlock()

	chat, err := s.store.FindDirectChatByPair(pairKey)
	if err != nil {
		return nil, false, apperr.Upstream("failed to look up direct chat", err)
	}
	if chat != nil {
		if err := ResolveChat(s.store, chat); err != nil {
			return nil, false, err
		}
		return chat, false, nil
	}

	chat = &models.Chat{
		Name:    "direct",
		IsGroup: false,
		Members: []string{actorID, otherID},
		PairKey: &pairKey,
	}
	if err := s.store.CreateChat(chat); err != nil {
		return nil, false, apperr.Upstream("failed to create direct chat", err)
	}
	if err := ResolveChat(s.store, chat); err != nil {
		return nil, false, err
	}

	s.log.Info("direct chat created",
		zap.String("chat_id", chat.ID),
		zap.String("pair_key", pairKey))
	return chat, true, nil
}

// CreateGroup creates a group chat with the actor as admin. The group
// must end up with at least three members including the actor.
func (s *Service) CreateGroup(actorID, name string, memberIDs []string) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("chat name is required")
	}

	members := dedupe(append([]string{actorID}, memberIDs...))
	if len(members) < 3 {
		return nil, apperr.Validation("a group chat needs at least three members")
	}

	users, err := s.store.FindUsersByIDs(members)
	if err != nil {
		return nil, apperr.Upstream("failed to look up members", err)
	}
	if len(users) != len(members) {
		return nil, apperr.NotFound("one or more members not found")
	}

	chat := &models.Chat{
		Name:    name,
		IsGroup: true,
		Members: members,
		AdminID: actorID,
	}
	if err := s.store.CreateChat(chat); err != nil {
		return nil, apperr.Upstream("failed to create group chat", err)
	}
	if err := ResolveChat(s.store, chat); err != nil {
		return nil, err
	}

	s.log.Info("group created",
		zap.String("chat_id", chat.ID),
		zap.String("admin", actorID),
		zap.Int("members", len(members)))
	return chat, nil
}

// RenameGroup changes a group's name. Admin only.
func (s *Service) RenameGroup(actorID, chatID, newName string) (*models.Chat, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperr.Validation("chat name is required")
	}

	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.loadGroup(chatID)
	if err != nil {
		return nil, err
	}
	if chat.AdminID != actorID {
		return nil, apperr.Forbidden("only the group admin can rename this group")
	}

	chat.Name = newName
	if err := s.store.SaveChat(chat); err != nil {
		return nil, apperr.Upstream("failed to rename group", err)
	}
	if err := ResolveChat(s.store, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// AddMember adds a user to a group. Admin only.
func (s *Service) AddMember(actorID, chatID, userID string) (*models.Chat, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.loadGroup(chatID)
	if err != nil {
		return nil, err
	}
	if chat.AdminID != actorID {
		return nil, apperr.Forbidden("only the group admin can add users")
	}
	if chat.HasMember(userID) {
		return nil, apperr.Conflict("user is already in the group")
	}

	user, err := s.store.FindUserByID(userID)
	if err != nil {
		return nil, apperr.Upstream("failed to look up user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}

	chat.Members = append(chat.Members, userID)
	if err := s.store.SaveChat(chat); err != nil {
		return nil, apperr.Upstream("failed to add user to group", err)
	}
	if err := ResolveChat(s.store, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// RemoveMember removes a user from a group. Admin only. Removing the
// last member cascade-deletes the chat; removing the admin promotes
// the first remaining member. The returned chat is nil when the group
// was deleted.
func (s *Service) RemoveMember(ctx context.Context, actorID, chatID, userID string) (*models.Chat, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.loadGroup(chatID)
	if err != nil {
		return nil, err
	}
	if chat.AdminID != actorID {
		return nil, apperr.Forbidden("only the group admin can remove users")
	}
	return s.removeFromGroup(ctx, chat, userID)
}

// LeaveGroup removes the actor from a group they belong to. Same
// cascade and admin-succession rules as RemoveMember, without the
// admin check.
func (s *Service) LeaveGroup(ctx context.Context, actorID, chatID string) (*models.Chat, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.loadGroup(chatID)
	if err != nil {
		return nil, err
	}
	return s.removeFromGroup(ctx, chat, actorID)
}

// DeleteGroup deletes a group and all its messages. Admin only.
func (s *Service) DeleteGroup(ctx context.Context, actorID, chatID string) error {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.loadGroup(chatID)
	if err != nil {
		return err
	}
	if chat.AdminID != actorID {
		return apperr.Forbidden("only the group admin can delete the group")
	}
	return s.cascadeDelete(ctx, chat)
}

// removeFromGroup applies the membership invariants: empty group is
// deleted, admin removal promotes the first remaining member.
func (s *Service) removeFromGroup(ctx context.Context, chat *models.Chat, userID string) (*models.Chat, error) {
	if !chat.RemoveMember(userID) {
		return nil, apperr.Conflict("user is not in the group")
	}

	if len(chat.Members) == 0 {
		if err := s.cascadeDelete(ctx, chat); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if chat.AdminID == userID {
		chat.AdminID = chat.Members[0]
	}
	if err := s.store.SaveChat(chat); err != nil {
		return nil, apperr.Upstream("failed to update group", err)
	}
	if err := ResolveChat(s.store, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// cascadeDelete removes a chat and every message in it. Attachment
// release is best effort: failures are logged and do not block the
// deletion.
func (s *Service) cascadeDelete(ctx context.Context, chat *models.Chat) error {
	fileMessages, err := s.store.FindFileMessagesByChat(chat.ID)
	if err != nil {
		s.log.Warn("failed to list attachments for cleanup",
			zap.String("chat_id", chat.ID), zap.Error(err))
	}
	for _, msg := range fileMessages {
		if msg.File.StorageID == "" {
			continue
		}
		if err := s.files.Release(ctx, msg.File.StorageID); err != nil {
			s.log.Warn("failed to release attachment",
				zap.String("chat_id", chat.ID),
				zap.String("storage_id", msg.File.StorageID),
				zap.Error(err))
		}
	}

	if err := s.store.ClearLatestMessage(chat.ID); err != nil {
		return apperr.Upstream("failed to clear latest message", err)
	}
	if err := s.store.DeleteMessagesByChat(chat.ID); err != nil {
		return apperr.Upstream("failed to delete chat messages", err)
	}
	if err := s.store.DeleteChat(chat.ID); err != nil {
		return apperr.Upstream("failed to delete chat", err)
	}

	s.log.Info("chat deleted", zap.String("chat_id", chat.ID))
	return nil
}

// loadGroup fetches a chat and requires it to be an existing group.
func (s *Service) loadGroup(chatID string) (*models.Chat, error) {
	chat, err := s.store.FindChatByID(chatID)
	if err != nil {
		return nil, apperr.Upstream("failed to fetch chat", err)
	}
	if chat == nil || !chat.IsGroup {
		return nil, apperr.NotFound("group not found")
	}
	return chat, nil
}

// ResolveChat fills the denormalized Users and Admin fields from the
// member ID set.
func ResolveChat(store storage.Storage, chat *models.Chat) error {
	users, err := store.FindUsersByIDs(chat.Members)
	if err != nil {
		return apperr.Upstream("failed to resolve chat members", err)
	}
	chat.Users = users
	chat.Admin = nil
	if chat.IsGroup {
		for i := range users {
			if users[i].ID == chat.AdminID {
				chat.Admin = &users[i]
				break
			}
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

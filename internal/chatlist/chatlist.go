// Package chatlist is the client-side ordered cache of "my chats".
// It merges server snapshots with live events and keeps the
// most-recently-active chat first, plus a deduplicated notification
// set for messages arriving in chats that are not open.
package chatlist

import (
	"sync"

	"chatterbox/backend/internal/models"
)

// List holds the ordered chat list and the notification set. All
// operations are pure state transitions over the in-memory snapshot.
type List struct {
	mu            sync.Mutex
	chats         []models.Chat
	notifications []models.Message
}

func New() *List {
	return &List{}
}

// ApplySnapshot replaces the entire list, used after an initial or
// recovery fetch.
func (l *List) ApplySnapshot(chats []models.Chat) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chats = append([]models.Chat(nil), chats...)
}

// UpsertAndPromote removes any existing entry with the same ID and
// prepends the chat. Applying the same update twice leaves the list
// unchanged from applying it once.
func (l *List) UpsertAndPromote(chat models.Chat) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.chats[:0]
	for _, c := range l.chats {
		if c.ID != chat.ID {
			kept = append(kept, c)
		}
	}
	l.chats = append([]models.Chat{chat}, kept...)
}

// Remove drops a chat from the list, e.g. after leaving a group.
func (l *List) Remove(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.chats[:0]
	for _, c := range l.chats {
		if c.ID != chatID {
			kept = append(kept, c)
		}
	}
	l.chats = kept
}

// AddNotification records a message notification, deduplicated by
// message identity.
func (l *List) AddNotification(msg models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, n := range l.notifications {
		if n.ID == msg.ID {
			return
		}
	}
	l.notifications = append([]models.Message{msg}, l.notifications...)
}

// ClearNotifications removes every notification belonging to the chat.
func (l *List) ClearNotifications(chatID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.notifications[:0]
	for _, n := range l.notifications {
		if n.ChatID != chatID {
			kept = append(kept, n)
		}
	}
	l.notifications = kept
}

// Chats returns a copy of the current ordering.
func (l *List) Chats() []models.Chat {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Chat(nil), l.chats...)
}

// Notifications returns a copy of the pending notifications, newest
// first.
func (l *List) Notifications() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Message(nil), l.notifications...)
}

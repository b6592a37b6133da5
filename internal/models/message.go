package models

import "time"

// Message is a single chat message. The ChatID reference is immutable
// after creation; messages are only ever deleted as part of their
// chat's cascade delete.
type Message struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ChatID   string `gorm:"type:uuid;not null;index:idx_chat_created" json:"chatId"`
	SenderID string `gorm:"not null" json:"senderId"`
	Content  string `gorm:"type:text" json:"messageContent"`

	IsFile bool    `json:"isFile"`
	File   FileRef `gorm:"embedded;embeddedPrefix:file_" json:"fileInfo"`

	// Sender and Chat are denormalized for delivery payloads.
	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Chat   *Chat `gorm:"-" json:"chat,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_chat_created" json:"createdAt"`
}

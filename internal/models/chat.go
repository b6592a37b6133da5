package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Chat is a conversation between two or more users. A direct chat is a
// Chat with IsGroup=false and exactly two members; group chats carry a
// meaningful name and an admin who must always be a member.
type Chat struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"not null" json:"chatName"`
	IsGroup bool   `gorm:"not null" json:"isGroupChat"`

	// Members holds the member user IDs. Order is irrelevant for
	// membership but stable in storage; admin succession picks the
	// first remaining element.
	Members pq.StringArray `gorm:"type:text[];not null" json:"memberIds"`

	// AdminID is set iff IsGroup and always references a member.
	AdminID string `json:"adminId,omitempty"`

	// PairKey uniquely identifies a direct chat by its unordered member
	// pair. Nil for group chats so the unique index ignores them.
	PairKey *string `gorm:"uniqueIndex" json:"-"`

	LatestMessageID *uint    `json:"-"`
	LatestMessage   *Message `gorm:"foreignKey:LatestMessageID" json:"latestMessage,omitempty"`

	// Users and Admin are denormalized for delivery payloads; they are
	// resolved at read time and never stored on the chat row.
	Users []User `gorm:"-" json:"users,omitempty"`
	Admin *User  `gorm:"-" json:"groupAdmin,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is unset.
func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// HasMember reports whether userID is currently a member.
func (c *Chat) HasMember(userID string) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// RemoveMember drops userID from the member set and reports whether it
// was present.
func (c *Chat) RemoveMember(userID string) bool {
	for i, id := range c.Members {
		if id == userID {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return true
		}
	}
	return false
}

// DirectPairKey builds the canonical key for a direct chat between two
// users, independent of argument order.
func DirectPairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

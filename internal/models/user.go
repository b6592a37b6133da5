package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileRef points at an uploaded binary held by the external attachment
// store. The core never inspects it beyond handing the StorageID back
// for release.
type FileRef struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

// User represents an authenticated participant (an actor).
type User struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	About    string `gorm:"type:text" json:"about"`

	// Avatar and Wallpaper are opaque (url, storageId) pairs.
	Avatar    FileRef `gorm:"embedded;embeddedPrefix:avatar_" json:"profileImage"`
	Wallpaper FileRef `gorm:"embedded;embeddedPrefix:wallpaper_" json:"chatWallpaper"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate is a GORM hook that assigns a UUID when the ID is unset.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

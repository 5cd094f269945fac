package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is one entry on the comment board. Content is stored HTML escaped.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Author    string    `gorm:"size:100;not null" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Avatar    *string   `gorm:"size:500" json:"avatar"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"isAdmin"`
	Pinned    bool      `gorm:"index;not null;default:false" json:"pinned"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// BeforeCreate assigns a random uuid unless the caller set an id.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	return nil
}

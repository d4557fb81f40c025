package models

import "time"

// User mirrors the identity records managed by the external auth service.
// This service never creates or authenticates users; the row exists so that
// comments can reference and display their sender.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;not null" json:"username"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Comments  []Comment `gorm:"foreignKey:SenderID" json:"-"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Attachment kinds stored on a comment.
const (
	AttachmentKindImage = "image"
	AttachmentKindText  = "text"
)

// Comment represents one message in the shared comment stream. A comment may
// reply to any other comment; IsReply is derived from ParentCommentID and is
// never accepted from callers.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Text            string    `gorm:"size:2000;not null" json:"text"`
	SenderID        uint      `gorm:"index;not null" json:"sender_id"`
	Sender          User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"sender"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	IsReply         bool      `gorm:"not null" json:"is_reply"`
	AttachmentURL   *string   `gorm:"size:1024" json:"attachment,omitempty"`
	AttachmentType  *string   `gorm:"size:16" json:"attachment_type,omitempty"`
	AttachmentName  *string   `gorm:"size:255" json:"attachment_name,omitempty"`
	AttachmentSize  *int64    `json:"attachment_size,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Replies         []Comment `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:CASCADE;" json:"-"`
}

// HasAttachment reports whether the attachment metadata trio is populated.
func (c *Comment) HasAttachment() bool {
	return c.AttachmentType != nil && c.AttachmentName != nil && c.AttachmentSize != nil
}

// BeforeSave keeps IsReply in lockstep with ParentCommentID regardless of
// which code path writes the row.
func (c *Comment) BeforeSave(tx *gorm.DB) error {
	c.IsReply = c.ParentCommentID != nil
	return nil
}

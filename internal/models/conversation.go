package models

import (
	"gorm.io/gorm"
)

// Conversation is a single WhatsApp thread with one contact.
type Conversation struct {
	// gorm.Model gives us ID (uint), CreatedAt, UpdatedAt, DeletedAt automatically
	gorm.Model

	// Normalized chat id, e.g. "525512345678@c.us" - one conversation per contact
	ContactNumber string `json:"contact_number" gorm:"size:64;uniqueIndex;not null"`
	ContactName   string `json:"contact_name" gorm:"size:255"`

	// Messages are deleted with the conversation
	Messages []Message `json:"messages,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// DisplayName returns the contact name, falling back to the chat id.
func (c *Conversation) DisplayName() string {
	if c.ContactName != "" {
		return c.ContactName
	}
	return c.ContactNumber
}

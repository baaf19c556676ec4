package models

import (
	"time"

	"gorm.io/gorm"
)

// Sender types for a message
const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
)

// Message is one entry in a conversation timeline.
type Message struct {
	gorm.Model

	ConversationID uint      `json:"conversation_id" gorm:"index;not null"`
	SenderType     string    `json:"sender_type" gorm:"size:32;not null"` // "customer" or "agent"
	MessageText    string    `json:"message_text" gorm:"type:text;not null"`
	SentAt         time.Time `json:"sent_at" gorm:"index;not null"`

	// Gateway-assigned message id; used to match delivery callbacks against
	// rows we already stored. Not unique across conversations.
	ExternalID string `json:"external_id" gorm:"size:128;index"`
}

// FromCustomer reports whether the message came from the contact side.
func (m *Message) FromCustomer() bool {
	return m.SenderType == SenderCustomer
}

package storage

import (
	"errors"
	"time"

	"github.com/rcastellanos/wainbox-backend/internal/models"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Store defines the interface for storage operations
type Store interface {
	// InTransaction runs fn as one atomic unit of work. If fn returns an
	// error, every write made through the Store it received is rolled back.
	InTransaction(fn func(tx Store) error) error

	// Conversation operations
	CreateConversation(conv *models.Conversation) error
	GetConversation(id uint) (*models.Conversation, error)
	FindConversationByContact(contactNumber string) (*models.Conversation, error)
	ListConversations() ([]*models.Conversation, error)
	TouchConversation(id uint, at time.Time) error

	// Message operations
	AppendMessage(msg *models.Message) error
	ListMessages(conversationID uint) ([]*models.Message, error)
	LastMessage(conversationID uint) (*models.Message, error)
	FindMessageByExternalID(externalID string) (*models.Message, error)
	// FindConversationMessageByExternalID returns the most recently inserted
	// match in the conversation (highest id first). Late webhook echoes must
	// land on the row the local send path just created.
	FindConversationMessageByExternalID(conversationID uint, externalID string) (*models.Message, error)
	UpdateMessageSentAt(id uint, at time.Time) error
}

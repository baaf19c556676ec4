package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rcastellanos/wainbox-backend/internal/models"
	"github.com/rcastellanos/wainbox-backend/internal/storage"
)

// GatewaySender is the outbound side of the messaging gateway.
type GatewaySender interface {
	SendMessage(rawNumber, messageText string) (string, error)
}

// ConversationService orchestrates conversation creation and operator sends
type ConversationService struct {
	store   storage.Store
	gateway GatewaySender
}

// NewConversationService creates a new conversation service
func NewConversationService(store storage.Store, gateway GatewaySender) *ConversationService {
	return &ConversationService{
		store:   store,
		gateway: gateway,
	}
}

// CreateConversation opens a conversation with the given contact, optionally
// sending an initial message. When a conversation with the same normalized
// number already exists it is returned with existing=true instead of
// creating a duplicate. A failed initial send rolls the creation back
// entirely; no conversation row survives it.
func (s *ConversationService) CreateConversation(rawNumber, contactName, initialMessage string) (conv *models.Conversation, existing bool, err error) {
	chatID, err := NormalizeChatID(rawNumber)
	if err != nil {
		return nil, false, err
	}

	if found, err := s.store.FindConversationByContact(chatID); err == nil {
		return found, true, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	conv = &models.Conversation{
		ContactNumber: chatID,
		ContactName:   contactName,
	}

	err = s.store.InTransaction(func(tx storage.Store) error {
		if err := tx.CreateConversation(conv); err != nil {
			return err
		}

		if initialMessage == "" {
			return nil
		}

		externalID, err := s.gateway.SendMessage(chatID, initialMessage)
		if err != nil {
			return err
		}

		return tx.AppendMessage(&models.Message{
			ConversationID: conv.ID,
			SenderType:     models.SenderAgent,
			MessageText:    initialMessage,
			SentAt:         now,
			ExternalID:     externalID,
		})
	})
	if err != nil {
		return nil, false, err
	}
	return conv, false, nil
}

// PostMessage sends an agent message in an existing conversation and records
// it with the gateway-assigned external id. Nothing is persisted if the send
// fails.
func (s *ConversationService) PostMessage(conversationID uint, messageText string) (*models.Message, error) {
	if messageText == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := s.store.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}

	externalID, err := s.gateway.SendMessage(conv.ContactNumber, messageText)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderType:     models.SenderAgent,
		MessageText:    messageText,
		SentAt:         now,
		ExternalID:     externalID,
	}

	err = s.store.InTransaction(func(tx storage.Store) error {
		if err := tx.AppendMessage(msg); err != nil {
			return err
		}
		return tx.TouchConversation(conv.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

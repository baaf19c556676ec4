package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/rcastellanos/wainbox-backend/internal/models"
)

// DatabaseStore implements Store on top of GORM/PostgreSQL
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) InTransaction(fn func(tx Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&DatabaseStore{db: tx})
	})
}

// Conversation operations

func (s *DatabaseStore) CreateConversation(conv *models.Conversation) error {
	return s.db.Create(conv).Error
}

func (s *DatabaseStore) GetConversation(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.First(&conv, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &conv, nil
}

func (s *DatabaseStore) FindConversationByContact(contactNumber string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("contact_number = ?", contactNumber).First(&conv).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &conv, nil
}

func (s *DatabaseStore) ListConversations() ([]*models.Conversation, error) {
	var convs []*models.Conversation
	if err := s.db.Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

func (s *DatabaseStore) TouchConversation(id uint, at time.Time) error {
	return s.db.Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

// Message operations

func (s *DatabaseStore) AppendMessage(msg *models.Message) error {
	return s.db.Create(msg).Error
}

func (s *DatabaseStore) ListMessages(conversationID uint) ([]*models.Message, error) {
	var msgs []*models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("sent_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *DatabaseStore) LastMessage(conversationID uint) (*models.Message, error) {
	var msg models.Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("sent_at DESC, id DESC").
		First(&msg).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &msg, nil
}

func (s *DatabaseStore) FindMessageByExternalID(externalID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.Where("external_id = ?", externalID).
		Order("id ASC").
		First(&msg).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &msg, nil
}

func (s *DatabaseStore) FindConversationMessageByExternalID(conversationID uint, externalID string) (*models.Message, error) {
	var msg models.Message
	// Newest insert first: a webhook echo must match the row the operator
	// send path just created, not an older reuse of the same external id.
	err := s.db.Where("conversation_id = ? AND external_id = ?", conversationID, externalID).
		Order("id DESC").
		First(&msg).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &msg, nil
}

func (s *DatabaseStore) UpdateMessageSentAt(id uint, at time.Time) error {
	return s.db.Model(&models.Message{}).
		Where("id = ?", id).
		Update("sent_at", at).Error
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

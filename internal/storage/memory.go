package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/rcastellanos/wainbox-backend/internal/models"
)

// MemoryStore holds all data in memory for tests and local development
type MemoryStore struct {
	mu sync.RWMutex
	// Serializes transactions so a snapshot/restore pair never interleaves
	txMu sync.Mutex

	conversations map[uint]models.Conversation
	messages      map[uint]models.Message

	// Counters for ID generation
	conversationCounter uint
	messageCounter      uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uint]models.Conversation),
		messages:      make(map[uint]models.Message),
	}
}

// InTransaction takes a snapshot and restores it if fn fails, which gives the
// same all-or-nothing behavior as the database store's transaction.
func (m *MemoryStore) InTransaction(fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	convSnap := make(map[uint]models.Conversation, len(m.conversations))
	for id, c := range m.conversations {
		convSnap[id] = c
	}
	msgSnap := make(map[uint]models.Message, len(m.messages))
	for id, msg := range m.messages {
		msgSnap[id] = msg
	}
	convCounter, msgCounter := m.conversationCounter, m.messageCounter
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.conversations = convSnap
		m.messages = msgSnap
		m.conversationCounter = convCounter
		m.messageCounter = msgCounter
		m.mu.Unlock()
		return err
	}
	return nil
}

// Conversation operations

func (m *MemoryStore) CreateConversation(conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversationCounter++
	conv.ID = m.conversationCounter
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}

	stored := *conv
	stored.Messages = nil
	m.conversations[conv.ID] = stored
	return nil
}

func (m *MemoryStore) GetConversation(id uint) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &conv, nil
}

func (m *MemoryStore) FindConversationByContact(contactNumber string) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, conv := range m.conversations {
		if conv.ContactNumber == contactNumber {
			found := conv
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListConversations() ([]*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		c := conv
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (m *MemoryStore) TouchConversation(id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, exists := m.conversations[id]
	if !exists {
		return ErrNotFound
	}
	conv.UpdatedAt = at
	m.conversations[id] = conv
	return nil
}

// Message operations

func (m *MemoryStore) AppendMessage(msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[msg.ConversationID]; !exists {
		return ErrNotFound
	}

	m.messageCounter++
	msg.ID = m.messageCounter
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = now
	}

	m.messages[msg.ID] = *msg
	return nil
}

func (m *MemoryStore) ListMessages(conversationID uint) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.Message, 0)
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			mm := msg
			list = append(list, &mm)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].SentAt.Equal(list[j].SentAt) {
			return list[i].SentAt.Before(list[j].SentAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (m *MemoryStore) LastMessage(conversationID uint) (*models.Message, error) {
	msgs, err := m.ListMessages(conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrNotFound
	}
	return msgs[len(msgs)-1], nil
}

func (m *MemoryStore) FindMessageByExternalID(externalID string) (*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *models.Message
	for _, msg := range m.messages {
		if msg.ExternalID != "" && msg.ExternalID == externalID {
			if found == nil || msg.ID < found.ID {
				mm := msg
				found = &mm
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m *MemoryStore) FindConversationMessageByExternalID(conversationID uint, externalID string) (*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest insert wins, same as the database store's ORDER BY id DESC
	var found *models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.ExternalID != "" && msg.ExternalID == externalID {
			if found == nil || msg.ID > found.ID {
				mm := msg
				found = &mm
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m *MemoryStore) UpdateMessageSentAt(id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, exists := m.messages[id]
	if !exists {
		return ErrNotFound
	}
	msg.SentAt = at
	msg.UpdatedAt = time.Now().UTC()
	m.messages[id] = msg
	return nil
}

package services

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/rcastellanos/wainbox-backend/internal/models"
	"github.com/rcastellanos/wainbox-backend/internal/storage"
)

// Webhook event types emitted by the Green API gateway
const (
	eventIncomingMessage = "incomingMessageReceived"
	eventOutgoingMessage = "outgoingMessageReceived"
	eventOutgoingStatus  = "outgoingMessageStatus"
)

// Ack is the body returned to the gateway for a processed webhook delivery.
// The gateway retries on non-2xx, so every classification outcome, including
// discards, acknowledges with 200.
type Ack struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func ignored(detail string) Ack {
	return Ack{Status: "ignored", Detail: detail}
}

// WebhookService merges gateway events into the stored conversation
// timelines. Deliveries can arrive out of order and more than once; every
// branch is idempotent.
type WebhookService struct {
	store storage.Store
	locks keyedMutex
}

// NewWebhookService creates a new webhook reconciler
func NewWebhookService(store storage.Store) *WebhookService {
	return &WebhookService{store: store}
}

type webhookHead struct {
	TypeWebhook string `json:"typeWebhook"`
}

type senderData struct {
	ChatID     string `json:"chatId"`
	SenderName string `json:"senderName"`
}

type textMessageData struct {
	TextMessage string `json:"textMessage"`
}

type extendedTextMessageData struct {
	Text string `json:"text"`
}

type incomingMessagePayload struct {
	IDMessage   string     `json:"idMessage"`
	Timestamp   int64      `json:"timestamp"`
	SenderData  senderData `json:"senderData"`
	MessageData struct {
		TextMessageData *textMessageData `json:"textMessageData"`
	} `json:"messageData"`
}

type outgoingMessagePayload struct {
	IDMessage   string `json:"idMessage"`
	Timestamp   int64  `json:"timestamp"`
	MessageData struct {
		ChatID                  string                   `json:"chatId"`
		TextMessageData         *textMessageData         `json:"textMessageData"`
		ExtendedTextMessageData *extendedTextMessageData `json:"extendedTextMessageData"`
	} `json:"messageData"`
}

type outgoingStatusPayload struct {
	IDMessage string `json:"idMessage"`
	Status    string `json:"status"`
}

// Process classifies one webhook delivery and applies it to the store.
// The returned error is reserved for genuine persistence failures; every
// classification outcome, malformed bodies included, is an Ack.
func (s *WebhookService) Process(body []byte) (Ack, error) {
	var head webhookHead
	if err := json.Unmarshal(body, &head); err != nil {
		return ignored("unreadable payload"), nil
	}

	switch head.TypeWebhook {
	case eventIncomingMessage:
		return s.handleIncomingMessage(body)
	case eventOutgoingMessage:
		return s.handleOutgoingMessage(body)
	case eventOutgoingStatus:
		return s.handleOutgoingStatus(body)
	default:
		return ignored("unhandled event type"), nil
	}
}

func (s *WebhookService) handleIncomingMessage(body []byte) (Ack, error) {
	var payload incomingMessagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ignored("malformed incoming message"), nil
	}

	messageText := ""
	if payload.MessageData.TextMessageData != nil {
		messageText = payload.MessageData.TextMessageData.TextMessage
	}
	if messageText == "" {
		// Media, reactions, location pins: nothing to store, still a 200
		return ignored("message without text"), nil
	}

	chatID := payload.SenderData.ChatID
	if chatID == "" {
		return ignored("message without chat id"), nil
	}

	contactName := payload.SenderData.SenderName
	if contactName == "" {
		contactName = chatID
	}
	sentAt := timestampOrNow(payload.Timestamp)
	receivedAt := time.Now().UTC()

	unlock := s.locks.lock(chatID)
	defer unlock()

	err := s.store.InTransaction(func(tx storage.Store) error {
		conv, err := resolveConversation(tx, chatID, contactName, sentAt)
		if err != nil {
			return err
		}

		if err := tx.AppendMessage(&models.Message{
			ConversationID: conv.ID,
			SenderType:     models.SenderCustomer,
			MessageText:    messageText,
			SentAt:         sentAt,
			ExternalID:     payload.IDMessage,
		}); err != nil {
			return err
		}

		// Recency ordering follows local receipt time, not the gateway's
		// clock, so skewed timestamps cannot bury an active conversation
		return tx.TouchConversation(conv.ID, receivedAt)
	})
	if err != nil {
		return Ack{}, err
	}

	log.Printf("📥 Incoming message from %s stored", chatID)
	return Ack{Status: "received"}, nil
}

func (s *WebhookService) handleOutgoingMessage(body []byte) (Ack, error) {
	var payload outgoingMessagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ignored("malformed outgoing message"), nil
	}

	chatID := payload.MessageData.ChatID
	messageText := ""
	if payload.MessageData.TextMessageData != nil {
		messageText = payload.MessageData.TextMessageData.TextMessage
	}
	if messageText == "" && payload.MessageData.ExtendedTextMessageData != nil {
		messageText = payload.MessageData.ExtendedTextMessageData.Text
	}
	if chatID == "" || messageText == "" {
		return ignored("outgoing message without data"), nil
	}

	sentAt := timestampOrNow(payload.Timestamp)
	receivedAt := time.Now().UTC()

	unlock := s.locks.lock(chatID)
	defer unlock()

	err := s.store.InTransaction(func(tx storage.Store) error {
		conv, err := resolveConversation(tx, chatID, chatID, sentAt)
		if err != nil {
			return err
		}

		// The gateway echoes messages this system sent itself; the operator
		// send path already stored those under the same idMessage. A match
		// only refreshes sent_at, it never inserts a second row.
		existing, err := tx.FindConversationMessageByExternalID(conv.ID, payload.IDMessage)
		switch {
		case err == nil:
			if err := tx.UpdateMessageSentAt(existing.ID, sentAt); err != nil {
				return err
			}
		case errors.Is(err, storage.ErrNotFound):
			if err := tx.AppendMessage(&models.Message{
				ConversationID: conv.ID,
				SenderType:     models.SenderAgent,
				MessageText:    messageText,
				SentAt:         sentAt,
				ExternalID:     payload.IDMessage,
			}); err != nil {
				return err
			}
		default:
			return err
		}

		return tx.TouchConversation(conv.ID, receivedAt)
	})
	if err != nil {
		return Ack{}, err
	}

	return Ack{Status: "stored"}, nil
}

func (s *WebhookService) handleOutgoingStatus(body []byte) (Ack, error) {
	var payload outgoingStatusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ignored("malformed status update"), nil
	}

	if payload.IDMessage == "" {
		return ignored("status without message id"), nil
	}

	_, err := s.store.FindMessageByExternalID(payload.IDMessage)
	if errors.Is(err, storage.ErrNotFound) {
		return ignored("unknown message"), nil
	}
	if err != nil {
		return Ack{}, err
	}

	// Delivery states (sent/delivered/read) are acknowledged but not
	// persisted; the timeline only tracks message rows
	return Ack{Status: "acknowledged", Detail: payload.Status}, nil
}

// resolveConversation finds the conversation for a chat id or creates it,
// stamping a fresh conversation with the event time.
func resolveConversation(tx storage.Store, chatID, contactName string, at time.Time) (*models.Conversation, error) {
	conv, err := tx.FindConversationByContact(chatID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	conv = &models.Conversation{
		ContactNumber: chatID,
		ContactName:   contactName,
	}
	conv.CreatedAt = at
	conv.UpdatedAt = at
	if err := tx.CreateConversation(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func timestampOrNow(unix int64) time.Time {
	if unix > 0 {
		return time.Unix(unix, 0).UTC()
	}
	return time.Now().UTC()
}

// keyedMutex serializes webhook processing per contact so two deliveries of
// the same outgoing event cannot race the dedup lookup.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

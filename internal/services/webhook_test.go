package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcastellanos/wainbox-backend/internal/models"
	"github.com/rcastellanos/wainbox-backend/internal/storage"
)

func incomingEvent(chatID, sender, text, idMessage string, ts int64) []byte {
	return []byte(fmt.Sprintf(`{
		"typeWebhook": "incomingMessageReceived",
		"idMessage": %q,
		"timestamp": %d,
		"senderData": {"chatId": %q, "senderName": %q},
		"messageData": {"textMessageData": {"textMessage": %q}}
	}`, idMessage, ts, chatID, sender, text))
}

func outgoingEvent(chatID, text, idMessage string, ts int64) []byte {
	return []byte(fmt.Sprintf(`{
		"typeWebhook": "outgoingMessageReceived",
		"idMessage": %q,
		"timestamp": %d,
		"messageData": {"chatId": %q, "textMessageData": {"textMessage": %q}}
	}`, idMessage, ts, chatID, text))
}

func TestIncomingMessageCreatesConversationAndMessage(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	ack, err := svc.Process(incomingEvent("1@c.us", "Ana", "hola", "MSG1", 1700000000))
	require.NoError(t, err)
	assert.Equal(t, "received", ack.Status)

	conv, err := store.FindConversationByContact("1@c.us")
	require.NoError(t, err)
	assert.Equal(t, "Ana", conv.ContactName)

	msgs, err := store.ListMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderCustomer, msgs[0].SenderType)
	assert.Equal(t, "hola", msgs[0].MessageText)
	assert.Equal(t, "MSG1", msgs[0].ExternalID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msgs[0].SentAt)
}

func TestIncomingMessageReusesConversation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	_, err := svc.Process(incomingEvent("1@c.us", "Ana", "hola", "MSG1", 1700000000))
	require.NoError(t, err)
	_, err = svc.Process(incomingEvent("1@c.us", "Ana", "sigues ahí?", "MSG2", 1700000060))
	require.NoError(t, err)

	convs, err := store.ListConversations()
	require.NoError(t, err)
	require.Len(t, convs, 1)

	msgs, err := store.ListMessages(convs[0].ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestIncomingMessageNameFallsBackToChatID(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	_, err := svc.Process(incomingEvent("2@c.us", "", "hey", "MSG1", 0))
	require.NoError(t, err)

	conv, err := store.FindConversationByContact("2@c.us")
	require.NoError(t, err)
	assert.Equal(t, "2@c.us", conv.ContactName)
}

func TestIncomingMessageWithoutTextIsDiscarded(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	ack, err := svc.Process([]byte(`{
		"typeWebhook": "incomingMessageReceived",
		"idMessage": "MSG1",
		"senderData": {"chatId": "1@c.us"},
		"messageData": {"fileMessageData": {"downloadUrl": "https://x"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "ignored", ack.Status)

	convs, err := store.ListConversations()
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestOutgoingEchoDeduplicatesLocalSend(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	// Row the operator-send path already created under the same idMessage
	conv := &models.Conversation{ContactNumber: "1@c.us", ContactName: "Ana"}
	require.NoError(t, store.CreateConversation(conv))
	firstSent := time.Unix(1700000000, 0).UTC()
	require.NoError(t, store.AppendMessage(&models.Message{
		ConversationID: conv.ID,
		SenderType:     models.SenderAgent,
		MessageText:    "hola!",
		SentAt:         firstSent,
		ExternalID:     "OUT1",
	}))

	ack, err := svc.Process(outgoingEvent("1@c.us", "hola!", "OUT1", 1700000042))
	require.NoError(t, err)
	assert.Equal(t, "stored", ack.Status)

	msgs, err := store.ListMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "echo must not insert a second row")
	assert.Equal(t, time.Unix(1700000042, 0).UTC(), msgs[0].SentAt)
}

func TestOutgoingEchoUpdatesMostRecentMatch(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	conv := &models.Conversation{ContactNumber: "1@c.us"}
	require.NoError(t, store.CreateConversation(conv))
	for i := 0; i < 2; i++ {
		require.NoError(t, store.AppendMessage(&models.Message{
			ConversationID: conv.ID,
			SenderType:     models.SenderAgent,
			MessageText:    "reused id",
			SentAt:         time.Unix(int64(1700000000+i), 0).UTC(),
			ExternalID:     "DUP",
		}))
	}

	_, err := svc.Process(outgoingEvent("1@c.us", "reused id", "DUP", 1700009999))
	require.NoError(t, err)

	msgs, err := store.ListMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// The later insert absorbs the timestamp update
	updated := time.Unix(1700009999, 0).UTC()
	assert.Equal(t, updated, msgs[1].SentAt)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msgs[0].SentAt)
}

func TestOutgoingMessageFromPhoneCreatesAgentRow(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	ack, err := svc.Process(outgoingEvent("3@c.us", "sent from my phone", "OUT9", 1700000000))
	require.NoError(t, err)
	assert.Equal(t, "stored", ack.Status)

	conv, err := store.FindConversationByContact("3@c.us")
	require.NoError(t, err)
	assert.Equal(t, "3@c.us", conv.ContactName, "no sender name on outgoing events")

	msgs, err := store.ListMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderAgent, msgs[0].SenderType)
}

func TestOutgoingExtendedTextShape(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	ack, err := svc.Process([]byte(`{
		"typeWebhook": "outgoingMessageReceived",
		"idMessage": "OUT2",
		"timestamp": 1700000000,
		"messageData": {"chatId": "4@c.us", "extendedTextMessageData": {"text": "quoted reply"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "stored", ack.Status)

	conv, err := store.FindConversationByContact("4@c.us")
	require.NoError(t, err)
	msgs, err := store.ListMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "quoted reply", msgs[0].MessageText)
}

func TestOutgoingMessageWithoutDataIsDiscarded(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	ack, err := svc.Process([]byte(`{
		"typeWebhook": "outgoingMessageReceived",
		"idMessage": "OUT3",
		"messageData": {"chatId": "5@c.us"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "ignored", ack.Status)

	convs, err := store.ListConversations()
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestStatusForKnownMessageIsAcknowledged(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	conv := &models.Conversation{ContactNumber: "1@c.us"}
	require.NoError(t, store.CreateConversation(conv))
	require.NoError(t, store.AppendMessage(&models.Message{
		ConversationID: conv.ID,
		SenderType:     models.SenderAgent,
		MessageText:    "hi",
		SentAt:         time.Now().UTC(),
		ExternalID:     "OUT1",
	}))

	ack, err := svc.Process([]byte(`{"typeWebhook": "outgoingMessageStatus", "idMessage": "OUT1", "status": "delivered"}`))
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", ack.Status)
	assert.Equal(t, "delivered", ack.Detail)
}

func TestStatusForUnknownMessageIsIgnored(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	ack, err := svc.Process([]byte(`{"typeWebhook": "outgoingMessageStatus", "idMessage": "NOPE", "status": "read"}`))
	require.NoError(t, err)
	assert.Equal(t, "ignored", ack.Status)
	assert.Equal(t, "unknown message", ack.Detail)

	convs, err := store.ListConversations()
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestUnknownEventTypesAreIgnored(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewWebhookService(store)

	for _, body := range []string{
		`{"typeWebhook": "deviceInfo"}`,
		`{}`,
		`not even json`,
	} {
		ack, err := svc.Process([]byte(body))
		require.NoError(t, err, "body %q", body)
		assert.Equal(t, "ignored", ack.Status, "body %q", body)
	}
}

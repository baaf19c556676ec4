package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcastellanos/wainbox-backend/internal/models"
	"github.com/rcastellanos/wainbox-backend/internal/storage"
)

// fakeGateway records sends and can be told to fail
type fakeGateway struct {
	sent      []string
	idMessage string
	err       error
}

func (f *fakeGateway) SendMessage(rawNumber, messageText string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, messageText)
	return f.idMessage, nil
}

func TestCreateConversationWithoutInitialMessage(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewConversationService(store, &fakeGateway{})

	conv, existing, err := svc.CreateConversation("+52 55 1234 5678", "Ana", "")
	require.NoError(t, err)
	assert.False(t, existing)
	assert.Equal(t, "525512345678@c.us", conv.ContactNumber)
	assert.Equal(t, "Ana", conv.ContactName)
}

func TestCreateConversationSendsInitialMessage(t *testing.T) {
	store := storage.NewMemoryStore()
	gateway := &fakeGateway{idMessage: "OUT1"}
	svc := NewConversationService(store, gateway)

	conv, _, err := svc.CreateConversation("123", "", "bienvenido")
	require.NoError(t, err)
	assert.Equal(t, []string{"bienvenido"}, gateway.sent)

	msgs, err := store.ListMessages(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderAgent, msgs[0].SenderType)
	assert.Equal(t, "OUT1", msgs[0].ExternalID)
}

func TestCreateConversationMergesExistingNumber(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewConversationService(store, &fakeGateway{})

	first, _, err := svc.CreateConversation("5255", "Ana", "")
	require.NoError(t, err)

	// Same number in a different raw spelling must land on the same thread
	second, existing, err := svc.CreateConversation("+52 55", "Other", "")
	require.NoError(t, err)
	assert.True(t, existing)
	assert.Equal(t, first.ID, second.ID)

	convs, err := store.ListConversations()
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestCreateConversationRollsBackOnFailedInitialSend(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewConversationService(store, &fakeGateway{err: ErrGatewayUnavailable})

	_, _, err := svc.CreateConversation("5255", "Ana", "hola")
	require.ErrorIs(t, err, ErrGatewayUnavailable)

	// No orphan conversation with a failed first message
	convs, listErr := store.ListConversations()
	require.NoError(t, listErr)
	assert.Empty(t, convs)
}

func TestCreateConversationRejectsInvalidNumber(t *testing.T) {
	svc := NewConversationService(storage.NewMemoryStore(), &fakeGateway{})

	_, _, err := svc.CreateConversation("abc", "", "")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestPostMessageStoresAgentRow(t *testing.T) {
	store := storage.NewMemoryStore()
	gateway := &fakeGateway{idMessage: "OUT7"}
	svc := NewConversationService(store, gateway)

	conv, _, err := svc.CreateConversation("5255", "Ana", "")
	require.NoError(t, err)

	before, err := store.GetConversation(conv.ID)
	require.NoError(t, err)

	msg, err := svc.PostMessage(conv.ID, "en qué te ayudo?")
	require.NoError(t, err)
	assert.Equal(t, "OUT7", msg.ExternalID)
	assert.Equal(t, models.SenderAgent, msg.SenderType)

	after, err := store.GetConversation(conv.ID)
	require.NoError(t, err)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt), "posting must bump recency")
}

func TestPostMessageLeavesNoRowWhenSendFails(t *testing.T) {
	store := storage.NewMemoryStore()
	gateway := &fakeGateway{}
	svc := NewConversationService(store, gateway)

	conv, _, err := svc.CreateConversation("5255", "Ana", "")
	require.NoError(t, err)

	gateway.err = &GatewayHTTPError{StatusCode: 466}
	_, err = svc.PostMessage(conv.ID, "no llega")

	var gatewayErr *GatewayHTTPError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, 466, gatewayErr.StatusCode)

	msgs, err := store.ListMessages(conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPostMessageValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewConversationService(store, &fakeGateway{})

	_, err := svc.PostMessage(1, "")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.PostMessage(99, "hola")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

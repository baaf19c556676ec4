package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/rcastellanos/wainbox-backend/internal/models"
	"github.com/rcastellanos/wainbox-backend/internal/services"
	"github.com/rcastellanos/wainbox-backend/internal/storage"
)

// InboxHandler serves the operator dashboard pages
type InboxHandler struct {
	store         storage.Store
	conversations *services.ConversationService
	sessions      *session.Store
}

// NewInboxHandler creates a new inbox handler
func NewInboxHandler(store storage.Store, conversations *services.ConversationService, sessions *session.Store) *InboxHandler {
	return &InboxHandler{
		store:         store,
		conversations: conversations,
		sessions:      sessions,
	}
}

// Flash is a one-shot notice rendered on the next page load
type Flash struct {
	Category string // "success", "info", "danger"
	Message  string
}

type conversationSummary struct {
	*models.Conversation
	LastMessage *models.Message
}

// Dashboard renders the conversation list, most recently active first.
func (h *InboxHandler) Dashboard(c *fiber.Ctx) error {
	convs, err := h.store.ListConversations()
	if err != nil {
		return err
	}

	summaries := make([]conversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := conversationSummary{Conversation: conv}
		if last, err := h.store.LastMessage(conv.ID); err == nil {
			summary.LastMessage = last
		}
		summaries = append(summaries, summary)
	}

	return c.Render("index", fiber.Map{
		"Conversations": summaries,
		"Flash":         h.popFlash(c),
	})
}

// ConversationDetail renders one thread, messages in sent order.
func (h *InboxHandler) ConversationDetail(c *fiber.Ctx) error {
	conv, err := h.getConversation(c)
	if err != nil {
		return err
	}

	messages, err := h.store.ListMessages(conv.ID)
	if err != nil {
		return err
	}

	return c.Render("conversation", fiber.Map{
		"Conversation": conv,
		"Messages":     messages,
		"Flash":        h.popFlash(c),
	})
}

// PostMessage sends an agent reply in an existing conversation.
func (h *InboxHandler) PostMessage(c *fiber.Ctx) error {
	conv, err := h.getConversation(c)
	if err != nil {
		return err
	}

	messageText := strings.TrimSpace(c.FormValue("message"))
	if messageText == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message cannot be empty")
	}

	if _, err := h.conversations.PostMessage(conv.ID, messageText); err != nil {
		var gatewayErr *services.GatewayHTTPError
		if errors.As(err, &gatewayErr) {
			return fiber.NewError(gatewayErr.StatusCode, fmt.Sprintf("failed to send message: %v", err))
		}
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("could not send the message: %v", err))
	}

	return c.Redirect(fmt.Sprintf("/conversation/%d", conv.ID), fiber.StatusSeeOther)
}

// NewConversationForm renders the conversation creation form.
func (h *InboxHandler) NewConversationForm(c *fiber.Ctx) error {
	return c.Render("new_conversation", fiber.Map{
		"Flash": h.popFlash(c),
	})
}

// CreateConversation handles the creation form. A number that already has a
// conversation redirects there instead of erroring; a failed initial send
// leaves nothing behind.
func (h *InboxHandler) CreateConversation(c *fiber.Ctx) error {
	rawNumber := strings.TrimSpace(c.FormValue("contact_number"))
	contactName := strings.TrimSpace(c.FormValue("contact_name"))
	initialMessage := strings.TrimSpace(c.FormValue("initial_message"))

	if rawNumber == "" {
		return h.renderFormError(c, "You must provide a WhatsApp number")
	}

	conv, existing, err := h.conversations.CreateConversation(rawNumber, contactName, initialMessage)
	switch {
	case errors.Is(err, services.ErrInvalidIdentifier):
		return h.renderFormError(c, err.Error())
	case err != nil:
		return h.renderFormError(c, fmt.Sprintf("Could not send the initial message: %v", err))
	}

	if existing {
		h.flash(c, "info", "A conversation with that number already exists. Redirecting you there.")
	} else {
		h.flash(c, "success", "Conversation created.")
	}
	return c.Redirect(fmt.Sprintf("/conversation/%d", conv.ID), fiber.StatusSeeOther)
}

func (h *InboxHandler) getConversation(c *fiber.Ctx) (*models.Conversation, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return nil, fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}

	conv, err := h.store.GetConversation(uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (h *InboxHandler) renderFormError(c *fiber.Ctx, message string) error {
	return c.Render("new_conversation", fiber.Map{
		"Flash": []Flash{{Category: "danger", Message: message}},
	})
}

func (h *InboxHandler) flash(c *fiber.Ctx, category, message string) {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return
	}
	sess.Set("flash_category", category)
	sess.Set("flash_message", message)
	_ = sess.Save()
}

func (h *InboxHandler) popFlash(c *fiber.Ctx) []Flash {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return nil
	}
	message, _ := sess.Get("flash_message").(string)
	if message == "" {
		return nil
	}
	category, _ := sess.Get("flash_category").(string)
	sess.Delete("flash_message")
	sess.Delete("flash_category")
	_ = sess.Save()
	return []Flash{{Category: category, Message: message}}
}

package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/rcastellanos/wainbox-backend/internal/services"
)

// Gateway providers that post to /webhook/:provider
const providerGreen = "green"

// WebhookHandler receives gateway event callbacks
type WebhookHandler struct {
	service *services.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// Handle processes one gateway delivery. Classification outcomes always
// answer 200 so the gateway does not retry discards; only persistence
// failures bubble up as 500.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	if c.Params("provider") != providerGreen {
		return c.JSON(services.Ack{Status: "ignored", Detail: "unknown provider"})
	}

	ack, err := h.service.Process(c.Body())
	if err != nil {
		log.Printf("❌ Webhook processing failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(ack)
}
